package ai

import (
	"github.com/pkg/errors"
)

// NewGenerator selects and constructs the provider adapter for the
// configured backend. Credential problems surface here, at startup.
func NewGenerator(cfg *Config, prompts Prompts) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, prompts)

	case "deepseek":
		return NewDeepSeek(cfg.DeepSeekAPIKey, cfg.DeepSeekURL, cfg.Model, prompts)

	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.Model, prompts)

	case "yandex":
		return NewYandex(cfg.YandexAPIKey, cfg.YandexFolderID, prompts)

	default:
		return nil, errors.Errorf("unsupported chat provider: %s", cfg.Provider)
	}
}
