// Package openai talks to any OpenAI compatible chat completions endpoint.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"financas/internal/ai"
	"financas/internal/log"
)

const (
	Name         = "openai"
	DefaultModel = openai.GPT4oMini
)

var ErrMissingAPIKey = errors.New("openai: api key is required")

// Client implements ai.Completer with chat completions.
type Client struct {
	api    *openai.Client
	model  string
	logger *log.Logger
}

type Config struct {
	APIKey  string
	BaseURL string // blank keeps the public endpoint
	Model   string
}

func New(cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: log.OrNop(logger).WithComponent(log.ComponentAI).With(log.FieldBackend, Name, log.FieldModel, model),
	}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) Complete(ctx context.Context, p ai.Prompt) (string, error) {
	msgs, err := messages(p)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}
	if p.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	c.logger.DebugContext(ctx, "Chat completion finished",
		log.FieldDuration, time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyReply
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ai.ErrEmptyReply
	}
	return text, nil
}

func messages(p ai.Prompt) ([]openai.ChatCompletionMessage, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	for _, m := range p.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == ai.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}

	if len(p.Attachments) == 0 {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.Text}), nil
	}

	parts := make([]openai.ChatMessagePart, 0, len(p.Attachments)+1)
	for _, doc := range p.Attachments {
		part, err := attachment(doc)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}), nil
}

// attachment inlines images as data URLs and text documents verbatim.
func attachment(doc ai.Document) (openai.ChatMessagePart, error) {
	switch {
	case strings.HasPrefix(doc.MimeType, "image/"):
		url := "data:" + doc.MimeType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
		return openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto},
		}, nil
	case strings.HasPrefix(doc.MimeType, "text/"):
		return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: string(doc.Data)}, nil
	default:
		return openai.ChatMessagePart{}, fmt.Errorf("%w: %s", ai.ErrUnsupportedDocument, doc.MimeType)
	}
}
