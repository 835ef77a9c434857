package factory

import (
	"fmt"
	"strings"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/llm/openai"
)

// NewLLMProvider создает провайдера на основе конфигурации модели.
// Пустой provider трактуется как openai.
func NewLLMProvider(modelDef config.ModelDef) (llm.Provider, error) {
	if modelDef.ModelName == "" {
		return nil, fmt.Errorf("model_name is required")
	}

	switch strings.ToLower(modelDef.Provider) {
	case "", "openai", "zai", "deepseek", "openrouter":
		return openai.NewClient(modelDef), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", modelDef.Provider)
	}
}
