// Интерфейс Tool и структуры определений.

package tools

import "context"

// JSONSchema представляет JSON Schema для параметров инструмента.
type JSONSchema map[string]any

// Kind: категория инструмента. Документные инструменты предлагаются
// модели только когда к запросу приложен файл.
type Kind string

const (
	KindGeneral  Kind = "general"
	KindDocument Kind = "document"
)

// ToolDefinition описывает инструмент для LLM (Function Calling API format).
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
	Kind        Kind       `json:"-"`
}

// Tool: контракт, который должен реализовать любой инструмент.
type Tool interface {
	// Definition возвращает описание инструмента для LLM.
	Definition() ToolDefinition

	// Execute выполняет логику инструмента.
	// argsJSON: сырой JSON с аргументами, который прислала LLM.
	Execute(ctx context.Context, argsJSON string) (string, error)
}

// InputSchema: схема с единственным строковым параметром "input".
// Такой формат у всех адаптеров: строка на входе, строка на выходе.
func InputSchema(description string) JSONSchema {
	return JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []any{"input"},
	}
}
