package memory

import (
	"context"
	"sync"

	lcmemory "github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"

	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// Buffer хранит все реплики (langchaingo ConversationBuffer).
type Buffer struct {
	mu  sync.RWMutex
	buf *lcmemory.ConversationBuffer
}

// NewBuffer создаёт пустой Buffer.
func NewBuffer() *Buffer {
	return &Buffer{buf: lcmemory.NewConversationBuffer(lcmemory.WithReturnMessages(true))}
}

func (b *Buffer) Append(ctx context.Context, turns ...Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return addTurns(ctx, b.buf.ChatHistory, turns)
}

func (b *Buffer) Messages() []llm.Message {
	return toMessages(b.Turns())
}

func (b *Buffer) Turns() []Turn {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msgs, err := b.buf.ChatHistory.Messages(context.Background())
	if err != nil {
		utils.Warn("Failed to read conversation buffer", "error", err)
		return nil
	}
	return fromChatMessages(msgs)
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.buf.Clear(context.Background())
}

// Window хранит только последние k реплик.
//
// ConversationWindowBuffer считает окно парами human/ai, поэтому
// окно библиотеки берётся на ceil(k/2) пар и дорезается до k реплик.
type Window struct {
	mu  sync.RWMutex
	k   int
	buf *lcmemory.ConversationWindowBuffer
}

// NewWindow создаёт окно на k реплик. k <= 0 означает DefaultWindowSize.
func NewWindow(k int) *Window {
	if k <= 0 {
		k = DefaultWindowSize
	}
	return &Window{
		k:   k,
		buf: lcmemory.NewConversationWindowBuffer((k+1)/2, lcmemory.WithReturnMessages(true)),
	}
}

// Size возвращает размер окна.
func (w *Window) Size() int { return w.k }

func (w *Window) Append(ctx context.Context, turns ...Turn) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := addTurns(ctx, w.buf.ChatHistory, turns); err != nil {
		return err
	}
	// Старые реплики вне окна из истории удаляются
	kept, err := w.window(ctx)
	if err != nil {
		return err
	}
	return w.buf.ChatHistory.SetMessages(ctx, kept)
}

func (w *Window) Messages() []llm.Message {
	return toMessages(w.Turns())
}

func (w *Window) Turns() []Turn {
	w.mu.RLock()
	defer w.mu.RUnlock()

	msgs, err := w.window(context.Background())
	if err != nil {
		utils.Warn("Failed to read conversation window", "error", err)
		return nil
	}
	return fromChatMessages(msgs)
}

func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.buf.Clear(context.Background())
}

// window: последние k сообщений по версии ConversationWindowBuffer.
func (w *Window) window(ctx context.Context) ([]schema.ChatMessage, error) {
	vars, err := w.buf.LoadMemoryVariables(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}
	msgs, _ := vars[w.buf.MemoryKey].([]schema.ChatMessage)
	if over := len(msgs) - w.k; over > 0 {
		msgs = msgs[over:]
	}
	return append([]schema.ChatMessage(nil), msgs...), nil
}

func addTurns(ctx context.Context, history schema.ChatMessageHistory, turns []Turn) error {
	for _, t := range turns {
		if err := history.AddMessage(ctx, toChatMessage(t)); err != nil {
			return err
		}
	}
	return nil
}

func toChatMessage(t Turn) schema.ChatMessage {
	switch t.Role {
	case llm.RoleUser:
		return schema.HumanChatMessage{Content: t.Content}
	case llm.RoleAssistant:
		return schema.AIChatMessage{Content: t.Content}
	case llm.RoleSystem:
		return schema.SystemChatMessage{Content: t.Content}
	default:
		return schema.GenericChatMessage{Role: string(t.Role), Content: t.Content}
	}
}

func fromChatMessages(msgs []schema.ChatMessage) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		var role llm.Role
		switch m.GetType() {
		case schema.ChatMessageTypeHuman:
			role = llm.RoleUser
		case schema.ChatMessageTypeAI:
			role = llm.RoleAssistant
		case schema.ChatMessageTypeSystem:
			role = llm.RoleSystem
		default:
			if g, ok := m.(schema.GenericChatMessage); ok {
				role = llm.Role(g.Role)
			}
		}
		turns = append(turns, Turn{Role: role, Content: m.GetContent()})
	}
	return turns
}

var (
	_ Memory = (*Buffer)(nil)
	_ Memory = (*Window)(nil)
)
