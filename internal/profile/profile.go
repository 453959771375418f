package profile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory (sqlite database, prompt files)
	Data string
	// DSN points to the sqlite database file
	DSN string
	// StaticDir is the directory the landing pages are served from
	StaticDir string
	// Version is the current version of the server
	Version string

	// AI configuration
	AIProvider       string // COURSE_AI_PROVIDER: openai, deepseek, gemini, yandex
	AIModel          string // COURSE_AI_MODEL (provider-specific default when empty)
	AIOpenAIAPIKey   string // COURSE_AI_OPENAI_API_KEY
	AIDeepSeekAPIKey string // COURSE_AI_DEEPSEEK_API_KEY
	AIDeepSeekURL    string // COURSE_AI_DEEPSEEK_BASE_URL
	AIGeminiAPIKey   string // COURSE_AI_GEMINI_API_KEY
	AIYandexAPIKey   string // COURSE_AI_YANDEX_API_KEY
	AIYandexFolderID string // COURSE_AI_YANDEX_FOLDER_ID
	PromptDir        string // COURSE_AI_PROMPT_DIR (default: <data>/ai)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from COURSE_* environment variables.
// Values already set on the profile (e.g. from flags) take precedence.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("COURSE_MODE", "dev")
	}
	if p.Addr == "" {
		p.Addr = os.Getenv("COURSE_ADDR")
	}
	if p.Port == 0 {
		if port, err := strconv.Atoi(getEnvOrDefault("COURSE_PORT", "3000")); err == nil {
			p.Port = port
		}
	}
	if p.Data == "" {
		p.Data = getEnvOrDefault("COURSE_DATA", "./data")
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("COURSE_DSN")
	}
	if p.StaticDir == "" {
		p.StaticDir = getEnvOrDefault("COURSE_STATIC_DIR", "./dist")
	}

	p.AIProvider = getEnvOrDefault("COURSE_AI_PROVIDER", "deepseek")
	p.AIModel = os.Getenv("COURSE_AI_MODEL")
	p.AIOpenAIAPIKey = os.Getenv("COURSE_AI_OPENAI_API_KEY")
	p.AIDeepSeekAPIKey = os.Getenv("COURSE_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekURL = getEnvOrDefault("COURSE_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIGeminiAPIKey = os.Getenv("COURSE_AI_GEMINI_API_KEY")
	p.AIYandexAPIKey = os.Getenv("COURSE_AI_YANDEX_API_KEY")
	p.AIYandexFolderID = os.Getenv("COURSE_AI_YANDEX_FOLDER_ID")
	p.PromptDir = os.Getenv("COURSE_AI_PROMPT_DIR")
}

// Validate checks the profile and fills derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "invalid data directory")
	}
	p.Data = dataDir

	if p.DSN == "" {
		p.DSN = filepath.Join(p.Data, "course.sqlite")
	}
	if p.PromptDir == "" {
		p.PromptDir = filepath.Join(p.Data, "ai")
	}
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if a relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case the user supplies one.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return "", errors.Wrapf(err, "unable to create data directory %s", dataDir)
		}
	}
	return dataDir, nil
}
