package backend

import (
	"context"

	"financas/internal/ai"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend ai.Backend
	Cleanup CleanupFunc
}

// Factory creates AI backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Gemini specific
	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string // blank keeps the public API

	// OpenAI compatible specific
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// BackendType represents the type of backend
type BackendType string

const (
	GeminiBackend  BackendType = "gemini"
	OpenAIBackend  BackendType = "openai"
	OfflineBackend BackendType = "offline"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case GeminiBackend, OpenAIBackend, OfflineBackend:
		return true
	default:
		return false
	}
}
