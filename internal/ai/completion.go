package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"financas/internal/core"
)

// Prompt is a single provider-neutral model request.
type Prompt struct {
	System      string
	History     []ChatMessage
	Text        string
	Attachments []Document
	JSON        bool // ask the model for a JSON object reply
}

// Completer is implemented by the remote model clients.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

type insightReply struct {
	Alerts []core.Insight `json:"alerts"`
}

// completerBackend builds every AI operation out of prompt completions.
type completerBackend struct {
	c Completer
}

// FromCompleter returns a Backend that prompts c for every operation.
func FromCompleter(c Completer) Backend {
	return &completerBackend{c: c}
}

func (b *completerBackend) Name() string { return b.c.Name() }

func (b *completerBackend) ExtractTransactions(ctx context.Context, doc Document) (Extraction, error) {
	reply, err := b.c.Complete(ctx, Prompt{
		Text:        ExtractionInstruction,
		Attachments: []Document{doc},
		JSON:        true,
	})
	if err != nil {
		return Extraction{}, err
	}

	var out Extraction
	if err := DecodeJSON(reply, &out); err != nil {
		return Extraction{}, err
	}
	if out.Items == nil {
		out.Items = []ExtractedItem{}
	}
	return out, nil
}

func (b *completerBackend) GenerateInsights(ctx context.Context, txs []core.Transaction) ([]core.Insight, error) {
	text, err := InsightsPrompt(txs)
	if err != nil {
		return nil, err
	}
	reply, err := b.c.Complete(ctx, Prompt{Text: text, JSON: true})
	if err != nil {
		return nil, err
	}

	var out insightReply
	if err := DecodeJSON(reply, &out); err != nil {
		return nil, err
	}
	// nil Alerts stays nil so the controller can tell a missing list from an empty one
	return out.Alerts, nil
}

func (b *completerBackend) Chat(ctx context.Context, req ChatRequest) (string, error) {
	system, err := AdvisorInstruction(req.Profile, req.Transactions)
	if err != nil {
		return "", err
	}
	reply, err := b.c.Complete(ctx, Prompt{
		System:  system,
		History: req.History,
		Text:    req.Message,
	})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// DecodeJSON unmarshals a model reply, tolerating a surrounding markdown fence.
func DecodeJSON(reply string, v any) error {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if s == "" {
		return ErrEmptyReply
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}
