// Реестр для хранения и поиска инструментов.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrToolNotFound: инструмента с таким именем нет в реестре.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool: имя уже занято другим инструментом.
	ErrDuplicateTool = errors.New("tool already registered")
)

// Registry: потокобезопасное хранилище инструментов.
//
// Сохраняет порядок регистрации: модель видит инструменты в том
// порядке, в котором их добавило приложение. Имена уникальны.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry создает новый пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// validateToolDefinition проверяет что ToolDefinition соответствует JSON Schema.
func validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Parameters == nil {
		return fmt.Errorf("tool '%s': parameters cannot be nil", def.Name)
	}

	// Гоняем через JSON, чтобы проверить то, что реально уйдёт в API
	paramsJSON, err := json.Marshal(def.Parameters)
	if err != nil {
		return fmt.Errorf("tool '%s': failed to marshal parameters: %w", def.Name, err)
	}
	var params map[string]any
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return fmt.Errorf("tool '%s': parameters must be a JSON object, got: %s", def.Name, string(paramsJSON))
	}

	if typeStr, _ := params["type"].(string); typeStr != "object" {
		return fmt.Errorf("tool '%s': parameters.type must be 'object'", def.Name)
	}

	if requiredVal, exists := params["required"]; exists {
		required, ok := requiredVal.([]any)
		if !ok {
			return fmt.Errorf("tool '%s': parameters.required must be an array", def.Name)
		}
		for i, item := range required {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("tool '%s': parameters.required[%d] must be a string, got: %T", def.Name, i, item)
			}
		}
	}
	return nil
}

// Register добавляет инструмент в реестр с валидацией схемы.
// Повторное имя: ошибка ErrDuplicateTool.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	if err := validateToolDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.tools[def.Name] = tool
	r.order = append(r.order, def.Name)
	return nil
}

// Get ищет инструмент по имени.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool, nil
}

// Has сообщает, зарегистрирован ли инструмент.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names возвращает имена в порядке регистрации.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// GetDefinitions возвращает определения в порядке регистрации.
func (r *Registry) GetDefinitions() []ToolDefinition {
	return r.Definitions(nil)
}

// Definitions возвращает определения, прошедшие фильтр (nil = все).
func (r *Registry) Definitions(keep func(ToolDefinition) bool) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name].Definition()
		if keep == nil || keep(def) {
			defs = append(defs, def)
		}
	}
	return defs
}

// Len возвращает количество инструментов.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
