package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	var p Profile
	p.FromEnv()

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, 3000, p.Port)
	assert.Equal(t, "deepseek", p.AIProvider)
	assert.Equal(t, "https://api.deepseek.com", p.AIDeepSeekURL)
}

func TestFromEnvFlagPrecedence(t *testing.T) {
	t.Setenv("COURSE_MODE", "prod")
	t.Setenv("COURSE_PORT", "8080")

	p := Profile{Mode: "dev", Port: 4000}
	p.FromEnv()

	// Values already set on the profile win over the environment.
	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, 4000, p.Port)
}

func TestFromEnvReadsAIKeys(t *testing.T) {
	t.Setenv("COURSE_AI_PROVIDER", "yandex")
	t.Setenv("COURSE_AI_YANDEX_API_KEY", "key")
	t.Setenv("COURSE_AI_YANDEX_FOLDER_ID", "folder")

	var p Profile
	p.FromEnv()

	assert.Equal(t, "yandex", p.AIProvider)
	assert.Equal(t, "key", p.AIYandexAPIKey)
	assert.Equal(t, "folder", p.AIYandexFolderID)
}

func TestValidateFillsDerivedPaths(t *testing.T) {
	p := Profile{Mode: "dev", Data: t.TempDir()}
	require.NoError(t, p.Validate())

	assert.Equal(t, filepath.Join(p.Data, "course.sqlite"), p.DSN)
	assert.Equal(t, filepath.Join(p.Data, "ai"), p.PromptDir)
}

func TestValidateCreatesDataDir(t *testing.T) {
	p := Profile{Mode: "prod", Data: filepath.Join(t.TempDir(), "nested", "data")}
	require.NoError(t, p.Validate())
	assert.DirExists(t, p.Data)
}
