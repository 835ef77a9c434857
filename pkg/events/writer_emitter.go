package events

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// previewRunes: сколько символов результата инструмента печатается.
const previewRunes = 200

// WriterEmitter печатает шаги диспетчера в человекочитаемом виде.
// Это verbose режим CLI: видно, какой инструмент вызван и с чем.
type WriterEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterEmitter создаёт WriterEmitter поверх w (обычно os.Stderr).
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{w: w}
}

// Emit реализует Emitter.
func (e *WriterEmitter) Emit(_ context.Context, event Event) {
	line := FormatEvent(event)
	if line == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.w, line)
}

// FormatEvent возвращает строку для verbose вывода или "" если событие
// печатать не нужно.
func FormatEvent(event Event) string {
	switch d := event.Data.(type) {
	case ThinkingData:
		if d.Iteration > 1 {
			return fmt.Sprintf("> Thinking (step %d)...", d.Iteration)
		}
		return "> Thinking..."
	case ToolCallData:
		return fmt.Sprintf("> Invoking: `%s` with `%s`", d.ToolName, d.Input)
	case ToolResultData:
		return fmt.Sprintf("< %s (%s): %s", d.ToolName, d.Duration.Round(time.Millisecond), utils.Preview(d.Result, previewRunes))
	case MessageData:
		if event.Type == EventMessage && d.Content != "" {
			return "> " + utils.Preview(d.Content, previewRunes)
		}
		if event.Type == EventDone {
			return "> Finished chain."
		}
	case ErrorData:
		return fmt.Sprintf("! %v", d.Err)
	}
	return ""
}

var _ Emitter = (*WriterEmitter)(nil)
