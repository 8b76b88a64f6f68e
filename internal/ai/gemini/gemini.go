// Package gemini talks to the Gemini API through the Google API client.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	genlang "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"financas/internal/ai"
	"financas/internal/log"
)

const (
	Name         = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

var ErrMissingAPIKey = errors.New("gemini: api key is required")

// Client implements ai.Completer on top of generateContent.
type Client struct {
	svc    *genlang.Service
	model  string
	logger *log.Logger
}

type config struct {
	model   string
	logger  *log.Logger
	options []option.ClientOption
}

type Option func(*config)

func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithEndpoint points the client at another base URL, mostly for tests.
func WithEndpoint(url string) Option {
	return func(c *config) { c.options = append(c.options, option.WithEndpoint(url)) }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := config{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, cfg.options...)
	svc, err := genlang.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}

	return &Client{
		svc:    svc,
		model:  cfg.model,
		logger: log.OrNop(cfg.logger).WithComponent(log.ComponentAI).With(log.FieldBackend, Name, log.FieldModel, cfg.model),
	}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) Complete(ctx context.Context, p ai.Prompt) (string, error) {
	req := &genlang.GenerateContentRequest{Contents: contents(p)}
	if p.System != "" {
		req.SystemInstruction = &genlang.Content{Parts: []*genlang.Part{{Text: p.System}}}
	}
	if p.JSON {
		req.GenerationConfig = &genlang.GenerationConfig{ResponseMimeType: "application/json"}
	}

	start := time.Now()
	resp, err := c.svc.Models.GenerateContent("models/"+c.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	c.logger.DebugContext(ctx, "Gemini call completed", log.FieldDuration, time.Since(start).Milliseconds())

	text := replyText(resp)
	if text == "" {
		return "", ai.ErrEmptyReply
	}
	return text, nil
}

func contents(p ai.Prompt) []*genlang.Content {
	out := make([]*genlang.Content, 0, len(p.History)+1)
	for _, m := range p.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := "user"
		if m.Role == ai.RoleModel {
			role = "model"
		}
		out = append(out, &genlang.Content{Role: role, Parts: []*genlang.Part{{Text: m.Text}}})
	}

	parts := make([]*genlang.Part, 0, len(p.Attachments)+1)
	for _, doc := range p.Attachments {
		parts = append(parts, &genlang.Part{InlineData: &genlang.Blob{
			MimeType: doc.MimeType,
			Data:     base64.StdEncoding.EncodeToString(doc.Data),
		}})
	}
	parts = append(parts, &genlang.Part{Text: p.Text})
	return append(out, &genlang.Content{Role: "user", Parts: parts})
}

func replyText(resp *genlang.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
