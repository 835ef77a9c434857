// Package memory хранит историю диалога между запросами.
//
// Три стратегии: Buffer (всё), Window (последние k реплик) и Summary
// (резюме, которое ведёт сама модель). Buffer и Window хранят историю
// в langchaingo memory. Все реализации thread-safe:
// TUI читает память из другой горутины, пока диспетчер пишет.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/llm"
)

// DefaultWindowSize: размер окна, если k не задан.
const DefaultWindowSize = 6

// Turn: одна реплика диалога.
type Turn struct {
	Role    llm.Role
	Content string
}

// UserTurn собирает реплику пользователя.
func UserTurn(content string) Turn {
	return Turn{Role: llm.RoleUser, Content: content}
}

// AssistantTurn собирает реплику ассистента.
func AssistantTurn(content string) Turn {
	return Turn{Role: llm.RoleAssistant, Content: content}
}

// Memory: хранилище реплик. Порядок всегда хронологический.
type Memory interface {
	// Append добавляет реплики одним пакетом (обычно обмен вопрос-ответ).
	// Summary сворачивает весь пакет одним запросом к модели.
	Append(ctx context.Context, turns ...Turn) error

	// Messages возвращает то, что уходит модели перед новым запросом.
	Messages() []llm.Message

	// Turns возвращает все сохранённые реплики, без учёта стратегии.
	Turns() []Turn

	// Clear очищает память.
	Clear()
}

// New выбирает стратегию по конфигурации. provider нужен только для summary.
func New(cfg config.MemoryConfig, provider llm.Provider, opts SummaryOptions) (Memory, error) {
	switch cfg.Strategy {
	case "", config.MemoryBuffer:
		return NewBuffer(), nil
	case config.MemoryWindow:
		return NewWindow(cfg.WindowSize), nil
	case config.MemorySummary:
		if provider == nil {
			return nil, fmt.Errorf("summary memory requires an llm provider")
		}
		return NewSummary(provider, opts), nil
	default:
		return nil, fmt.Errorf("unknown memory strategy: %s", cfg.Strategy)
	}
}

// Format печатает содержимое памяти так, как его увидит модель.
func Format(m Memory) string {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return "(empty)"
	}

	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(roleLabel(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

func roleLabel(r llm.Role) string {
	switch r {
	case llm.RoleUser:
		return "Human"
	case llm.RoleAssistant:
		return "AI"
	case llm.RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

func toMessages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, len(turns))
	for i, t := range turns {
		msgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}
