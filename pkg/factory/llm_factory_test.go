package factory

import (
	"testing"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		wantErr  string
	}{
		{"openai", "openai", "gpt-4o", ""},
		{"empty provider means openai", "", "gpt-4o", ""},
		{"case insensitive", "DeepSeek", "deepseek-chat", ""},
		{"unknown provider", "anthropic-native", "x", "unknown provider type"},
		{"missing model", "openai", "", "model_name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(config.ModelDef{Provider: tt.provider, ModelName: tt.model, APIKey: "k"})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}
