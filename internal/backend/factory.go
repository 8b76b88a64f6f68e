package backend

import (
	"context"
	"fmt"

	"financas/internal/ai"
	"financas/internal/ai/gemini"
	"financas/internal/ai/offline"
	"financas/internal/ai/openai"
	"financas/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: log.OrNop(logger).WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case GeminiBackend:
		return f.createGeminiBackend(ctx, config)
	case OpenAIBackend:
		return f.createOpenAIBackend(config)
	case OfflineBackend:
		return f.createOfflineBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createGeminiBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts := []gemini.Option{gemini.WithModel(config.GeminiModel), gemini.WithLogger(f.logger)}
	if config.GeminiEndpoint != "" {
		opts = append(opts, gemini.WithEndpoint(config.GeminiEndpoint))
	}
	client, err := gemini.New(ctx, config.GeminiAPIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	f.logger.Info("Initialized Gemini backend", log.FieldModel, config.GeminiModel)

	return &BackendResult{Backend: ai.FromCompleter(client)}, nil
}

func (f *DefaultFactory) createOpenAIBackend(config Config) (*BackendResult, error) {
	client, err := openai.New(openai.Config{
		APIKey:  config.OpenAIAPIKey,
		BaseURL: config.OpenAIBaseURL,
		Model:   config.OpenAIModel,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	f.logger.Info("Initialized OpenAI compatible backend",
		log.FieldModel, config.OpenAIModel,
		"base_url", config.OpenAIBaseURL)

	return &BackendResult{Backend: ai.FromCompleter(client)}, nil
}

func (f *DefaultFactory) createOfflineBackend() (*BackendResult, error) {
	f.logger.Info("Initialized offline backend, AI features use local heuristics")
	return &BackendResult{Backend: offline.New()}, nil
}

// Close runs the cleanup of r, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
