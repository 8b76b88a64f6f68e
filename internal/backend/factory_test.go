package backend

import (
	"context"
	"testing"

	"financas/internal/config"
)

func TestFactory_CreateBackend(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{name: "offline", config: Config{Type: OfflineBackend}, wantName: "offline"},
		{name: "gemini", config: Config{Type: GeminiBackend, GeminiAPIKey: "k", GeminiModel: "gemini-2.5-flash"}, wantName: "gemini"},
		{name: "openai", config: Config{Type: OpenAIBackend, OpenAIAPIKey: "sk", OpenAIBaseURL: "http://localhost:11434/v1"}, wantName: "openai"},
		{name: "gemini without key", config: Config{Type: GeminiBackend}, wantErr: true},
		{name: "openai without key", config: Config{Type: OpenAIBackend}, wantErr: true},
		{name: "unknown type", config: Config{Type: "sheets"}, wantErr: true},
	}

	factory := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := factory.CreateBackend(context.Background(), tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := res.Backend.Name(); got != tt.wantName {
				t.Errorf("Backend.Name() = %q, want %q", got, tt.wantName)
			}
			if err := res.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	cfg, err := FromAppConfig(&config.Config{AIBackend: "openai", OpenAIAPIKey: "sk", OpenAIModel: "llama3"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != OpenAIBackend || cfg.OpenAIModel != "llama3" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{AIBackend: "memory"}); err == nil {
		t.Error("FromAppConfig() should reject unknown backends")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	want := []string{"gemini", "openai", "offline"}
	if len(got) != len(want) {
		t.Fatalf("GetBackendTypeStrings() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetBackendTypeStrings()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
