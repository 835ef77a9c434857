package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// logPreviewRunes: сколько символов результата попадает в лог.
const logPreviewRunes = 300

// InvokeFunc - внешняя возможность, строка на входе и строка на выходе.
type InvokeFunc func(ctx context.Context, input string) (string, error)

// Adapter оборачивает одну внешнюю возможность (поиск, погода, OCR, PDF)
// в единый инструмент {name, description, invoke}.
//
// Ошибки и паники вызова не выходят за границу адаптера: они
// превращаются в строку "Error ..." и отдаются модели как результат
// инструмента, чтобы один упавший инструмент не обрывал весь диалог.
type Adapter struct {
	name             string
	description      string
	inputDescription string
	kind             Kind
	invoke           InvokeFunc
}

// AdapterOption настраивает Adapter.
type AdapterOption func(*Adapter)

// WithKind помечает категорию инструмента.
func WithKind(kind Kind) AdapterOption {
	return func(a *Adapter) {
		a.kind = kind
	}
}

// WithInputDescription задаёт описание параметра input для модели.
func WithInputDescription(desc string) AdapterOption {
	return func(a *Adapter) {
		a.inputDescription = desc
	}
}

// NewAdapter создаёт адаптер. Создаётся один раз при старте и не меняется.
func NewAdapter(name, description string, fn InvokeFunc, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		name:             name,
		description:      description,
		inputDescription: "Input for the tool.",
		kind:             KindGeneral,
		invoke:           fn,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name возвращает имя инструмента.
func (a *Adapter) Name() string { return a.name }

// Description возвращает описание, которое видит модель.
func (a *Adapter) Description() string { return a.description }

// Definition реализует Tool.
func (a *Adapter) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        a.name,
		Description: a.description,
		Parameters:  InputSchema(a.inputDescription),
		Kind:        a.kind,
	}
}

// Execute реализует Tool. Никогда не возвращает ошибку: сбой вызова
// уже превращён Invoke в строку.
func (a *Adapter) Execute(ctx context.Context, argsJSON string) (string, error) {
	return a.Invoke(ctx, ParseInput(argsJSON)), nil
}

// Invoke вызывает возможность с логированием входа и сокращённого выхода.
func (a *Adapter) Invoke(ctx context.Context, input string) (result string) {
	start := time.Now()
	utils.Info("Tool invoked", "tool", a.name, "input", input)

	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("Error running %s: panic: %v", a.name, r)
			utils.Error("Tool panicked", "tool", a.name, "panic", r)
		}
	}()

	out, err := a.invoke(ctx, input)
	if err != nil {
		utils.Error("Tool failed",
			"tool", a.name,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return fmt.Sprintf("Error running %s: %v", a.name, err)
	}

	utils.Info("Tool returned",
		"tool", a.name,
		"result_length", len(out),
		"result", utils.Preview(out, logPreviewRunes),
		"duration_ms", time.Since(start).Milliseconds())
	return out
}

// ParseInput достаёт строковый вход из аргументов, присланных моделью.
//
// Поддерживает {"input": "..."}, объект с одним строковым полем,
// JSON строку и просто сырой текст.
func ParseInput(argsJSON string) string {
	raw := utils.CleanJsonBlock(argsJSON)
	if raw == "" {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		if s, ok := obj["input"].(string); ok {
			return strings.TrimSpace(s)
		}
		if len(obj) == 1 {
			for _, v := range obj {
				if s, ok := v.(string); ok {
					return strings.TrimSpace(s)
				}
			}
		}
		return raw
	}

	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return strings.TrimSpace(s)
	}
	return raw
}
