package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
models:
  default_chat: gpt-4o
  definitions:
    gpt-4o:
      provider: openai
      model_name: gpt-4o
      api_key: sk-test
tools:
  pdf_extractor:
    enabled: false
  weather:
    enabled: true
    timeout: 5s
weather:
  api_key: owm-test
memory:
  strategy: window
  window_size: 4
storage:
  transcript_path: ":memory:"
`

func testCfg(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild_AllTools(t *testing.T) {
	c, err := Build(testCfg(t), Options{Tools: ToolsAll, WithTranscript: true})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"search", "weather", "ocr", "pdf_ingestion"}, c.Tools.Names(),
		"registration order is fixed, disabled tools are skipped")
	assert.Nil(t, c.Storage)
	assert.NotNil(t, c.Transcript)
	assert.NotNil(t, c.Dispatcher)

	require.IsType(t, &memory.Window{}, c.Memory)
	assert.Equal(t, 4, c.Memory.(*memory.Window).Size())
}

func TestBuild_GeneralToolsAndMemoryOverride(t *testing.T) {
	c, err := Build(testCfg(t), Options{Tools: ToolsGeneral, MemoryStrategy: config.MemoryBuffer})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"search", "weather"}, c.Tools.Names())
	assert.IsType(t, &memory.Buffer{}, c.Memory)
	assert.Nil(t, c.Transcript, "transcript only when requested")
}

func TestBuild_FailsFast(t *testing.T) {
	t.Run("missing weather key", func(t *testing.T) {
		cfg := testCfg(t)
		cfg.Weather.APIKey = ""
		_, err := Build(cfg, Options{Tools: ToolsGeneral})
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.EnvWeatherKey)
	})

	t.Run("unknown memory strategy", func(t *testing.T) {
		_, err := Build(testCfg(t), Options{MemoryStrategy: "vector"})
		assert.Error(t, err)
	})
}

func TestToolTimeouts(t *testing.T) {
	c, err := Build(testCfg(t), Options{Tools: ToolsGeneral})
	require.NoError(t, err)

	got := toolTimeouts(c.Config, c.Tools)
	assert.Equal(t, map[string]time.Duration{"weather": 5 * time.Second}, got)
}

func TestToolSet_String(t *testing.T) {
	assert.Equal(t, "search|weather", ToolsGeneral.String())
	assert.Equal(t, "none", ToolSet(0).String())
}

func TestDefaultConfigPathFinder(t *testing.T) {
	f := &DefaultConfigPathFinder{ConfigFlag: "custom.yaml"}
	assert.True(t, filepath.IsAbs(f.FindConfigPath()))

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile("config.yaml", []byte(testConfig), 0o644))
	found := (&DefaultConfigPathFinder{}).FindConfigPath()
	assert.Equal(t, "config.yaml", filepath.Base(found))
}

func TestBuild_DebugRecorder(t *testing.T) {
	cfg := testCfg(t)
	cfg.App.Debug = true
	cfg.App.LogDir = t.TempDir()

	c, err := Build(cfg, Options{Tools: ToolsGeneral})
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.Debug)

	plain, err := Build(testCfg(t), Options{})
	require.NoError(t, err)
	defer plain.Close()
	assert.Nil(t, plain.Debug)
}
