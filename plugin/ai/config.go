// Package ai implements the chat assistant for the course landing pages:
// per-user sessions, prompt assembly and streaming adapters over the
// supported LLM backends.
package ai

import (
	"github.com/pkg/errors"

	"github.com/nbolat/course-site/internal/profile"
)

// Config represents the chat assistant configuration.
type Config struct {
	Provider string // openai, deepseek, gemini, yandex
	Model    string // provider-specific default when empty

	OpenAIAPIKey   string
	DeepSeekAPIKey string
	DeepSeekURL    string
	GeminiAPIKey   string
	YandexAPIKey   string
	YandexFolderID string
}

// NewConfigFromProfile creates the chat config from the server profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Provider:       p.AIProvider,
		Model:          p.AIModel,
		OpenAIAPIKey:   p.AIOpenAIAPIKey,
		DeepSeekAPIKey: p.AIDeepSeekAPIKey,
		DeepSeekURL:    p.AIDeepSeekURL,
		GeminiAPIKey:   p.AIGeminiAPIKey,
		YandexAPIKey:   p.AIYandexAPIKey,
		YandexFolderID: p.AIYandexFolderID,
	}
}

// Validate checks that the selected provider has its credentials set.
// Missing credentials are a startup failure, not a runtime surprise.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("openai API key is required")
		}
	case "deepseek":
		if c.DeepSeekAPIKey == "" {
			return errors.New("deepseek API key is required")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("gemini API key is required")
		}
	case "yandex":
		if c.YandexAPIKey == "" || c.YandexFolderID == "" {
			return errors.New("yandex API key and folder id are required")
		}
	case "":
		return errors.New("chat provider is required")
	default:
		return errors.Errorf("unsupported chat provider: %s", c.Provider)
	}
	return nil
}
