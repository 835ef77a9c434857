// Package events: события диспетчера для UI и verbose режима.
//
// Диспетчер зависит только от интерфейса Emitter: TUI подписывается
// на канал, CLI в verbose режиме печатает шаги в терминал.
//
// Все реализации Emitter должны быть thread-safe.
package events

import (
	"context"
	"time"
)

// EventType представляет тип события.
type EventType string

const (
	// EventThinking: диспетчер отправил запрос модели.
	EventThinking EventType = "thinking"

	// EventToolCall: модель решила вызвать инструмент.
	EventToolCall EventType = "tool_call"

	// EventToolResult: инструмент вернул результат.
	EventToolResult EventType = "tool_result"

	// EventMessage: промежуточный текст модели вместе с вызовом инструментов.
	EventMessage EventType = "message"

	// EventError: запрос завершился ошибкой.
	EventError EventType = "error"

	// EventDone: финальный ответ готов.
	EventDone EventType = "done"
)

// EventData: sealed interface для данных события.
type EventData interface {
	eventData()
}

// ThinkingData содержит данные для EventThinking.
type ThinkingData struct {
	Query     string
	Iteration int
}

func (ThinkingData) eventData() {}

// ToolCallData содержит данные о вызове инструмента.
type ToolCallData struct {
	ToolName string
	Input    string
}

func (ToolCallData) eventData() {}

// ToolResultData содержит результат выполнения инструмента.
type ToolResultData struct {
	ToolName string
	Result   string
	Duration time.Duration
}

func (ToolResultData) eventData() {}

// MessageData содержит данные для EventMessage и EventDone.
type MessageData struct {
	Content string
}

func (MessageData) eventData() {}

// ErrorData содержит данные для EventError.
type ErrorData struct {
	Err error
}

func (ErrorData) eventData() {}

// Event: одно событие диспетчера.
type Event struct {
	Type      EventType
	Data      EventData
	Timestamp time.Time
}

// New собирает событие с текущим временем.
func New(t EventType, data EventData) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// Emitter: порт для отправки событий.
type Emitter interface {
	// Emit отправляет событие. Отменённый ctx прерывает блокирующую отправку.
	Emit(ctx context.Context, event Event)
}

// Subscriber позволяет читать события из канала.
type Subscriber interface {
	// Events возвращает read-only канал событий.
	Events() <-chan Event

	// Close освобождает подписчика.
	Close()
}

// Nop: Emitter, который ничего не делает.
type Nop struct{}

// Emit реализует Emitter.
func (Nop) Emit(context.Context, Event) {}

// Multi рассылает событие в несколько Emitter по порядку.
type Multi []Emitter

// Emit реализует Emitter.
func (m Multi) Emit(ctx context.Context, event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event)
		}
	}
}
