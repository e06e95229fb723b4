package llm

import (
	"fmt"

	"github.com/tabletalk/tabletalk/internal/config"
)

// NewTextGenerator creates a TextGenerator for the configured provider,
// wrapped in a circuit breaker. Supported providers: "ollama" (default),
// "openai".
func NewTextGenerator(cfg config.LLMConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "", "ollama":
		return Protect(NewOllamaClient(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
		})), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("llm: openai provider requires an API key")
		}
		return Protect(NewOpenAIClient(OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}
