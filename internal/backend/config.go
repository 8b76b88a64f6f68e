package backend

import (
	"fmt"

	"financas/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.AIBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.AIBackend)
	}

	return Config{
		Type: backendType,

		GeminiAPIKey: appConfig.GeminiAPIKey,
		GeminiModel:  appConfig.GeminiModel,

		OpenAIAPIKey:  appConfig.OpenAIAPIKey,
		OpenAIBaseURL: appConfig.OpenAIBaseURL,
		OpenAIModel:   appConfig.OpenAIModel,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case GeminiBackend:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required for gemini backend")
		}
	case OpenAIBackend:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OpenAI API key is required for openai backend")
		}
	case OfflineBackend:
		// nothing to configure
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{GeminiBackend, OpenAIBackend, OfflineBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
