package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
models:
  default_chat: gpt-4o
  definitions:
    gpt-4o:
      provider: openai
      model_name: gpt-4o
      api_key: ${TEST_OPENAI_KEY}
      timeout: 60s
tools:
  pdf_ingestion:
    enabled: false
  search:
    enabled: true
    timeout: 20s
weather:
  api_key: ${TEST_WEATHER_KEY}
memory:
  strategy: window
  window_size: 4
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	t.Setenv("TEST_WEATHER_KEY", "owm-test")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	chat, ok := cfg.Models.Definitions[cfg.Models.DefaultChat]
	require.True(t, ok)
	assert.Equal(t, "sk-test", chat.APIKey)
	assert.Equal(t, 60*time.Second, chat.Timeout)

	assert.Equal(t, "owm-test", cfg.Weather.APIKey)
	assert.Equal(t, "metric", cfg.Weather.Units)
	assert.Equal(t, "https://api.openweathermap.org", cfg.Weather.BaseURL)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, MemoryWindow, cfg.Memory.Strategy)
	assert.Equal(t, 4, cfg.Memory.WindowSize)
	assert.Equal(t, 10, cfg.App.MaxIterations)
}

func TestLoad_MissingAPIKeyFailsFast(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	t.Setenv("TEST_WEATHER_KEY", "")

	_, err := Load(writeConfig(t, sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvOpenAIKey)
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	t.Setenv("TEST_WEATHER_KEY", "")

	cfg, err := Read(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
	assert.Equal(t, MemoryWindow, cfg.Memory.Strategy)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestDefault_FromEnvironment(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-env")
	t.Setenv(EnvOpenAIModel, "")
	t.Setenv(EnvWeatherKey, "owm-env")

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "gpt-4o", cfg.Models.DefaultChat)
	assert.Equal(t, "owm-env", cfg.Weather.APIKey)
	assert.True(t, cfg.Extraction.ExtractImages)
	assert.NoError(t, cfg.ValidateTools())
}

func TestValidateTools_WeatherKeyRequired(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	t.Setenv("TEST_WEATHER_KEY", "")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	err = cfg.ValidateTools()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvWeatherKey)

	cfg.Tools[ToolWeather] = ToolConfig{Enabled: false}
	assert.NoError(t, cfg.ValidateTools())
}

func TestIsToolEnabled(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.True(t, cfg.IsToolEnabled(ToolSearch))
	assert.False(t, cfg.IsToolEnabled(ToolPDFIngestion))
	assert.True(t, cfg.IsToolEnabled(ToolOCR), "tools absent from config are enabled")
	assert.Equal(t, 20*time.Second, cfg.ToolTimeout(ToolSearch))
	assert.Zero(t, cfg.ToolTimeout(ToolOCR))
}

func TestValidate_UnknownMemoryStrategy(t *testing.T) {
	cfg := &AppConfig{
		Models: ModelsConfig{
			DefaultChat: "m",
			Definitions: map[string]ModelDef{"m": {APIKey: "k"}},
		},
		Memory: MemoryConfig{Strategy: "forever"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory.strategy")
}

func TestAliases_FallBackToChat(t *testing.T) {
	cfg := &AppConfig{Models: ModelsConfig{DefaultChat: "chat"}}
	assert.Equal(t, "chat", cfg.VisionAlias())
	assert.Equal(t, "chat", cfg.SummaryAlias())

	cfg.Models.DefaultVision = "vision"
	assert.Equal(t, "vision", cfg.VisionAlias())
}

func TestValidate_S3(t *testing.T) {
	base := func() *AppConfig {
		return &AppConfig{
			Models: ModelsConfig{
				DefaultChat: "m",
				Definitions: map[string]ModelDef{"m": {APIKey: "k"}},
			},
			Memory: MemoryConfig{Strategy: MemoryBuffer},
			S3: S3Config{
				Enabled: true, Endpoint: "s3.local", Bucket: "b",
				AccessKey: "ak", SecretKey: "sk",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"no bucket", func(c *AppConfig) { c.S3.Bucket = "" }, "s3.bucket"},
		{"no endpoint", func(c *AppConfig) { c.S3.Endpoint = "" }, "s3.endpoint"},
		{"no secret", func(c *AppConfig) { c.S3.SecretKey = "" }, EnvS3Secret},
		{"disabled ignores keys", func(c *AppConfig) { c.S3 = S3Config{} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
