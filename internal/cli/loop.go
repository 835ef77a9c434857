// Package cli: общий цикл "прочитать запрос / напечатать ответ" для утилит.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultQueryTimeout: сколько ждём ответа на один запрос.
const DefaultQueryTimeout = 3 * time.Minute

// HandlerFunc обрабатывает одну строку ввода и возвращает текст ответа.
type HandlerFunc func(ctx context.Context, line string) string

// Loop читает строки из In и печатает ответы в Out.
//
// Пустые строки пропускаются. q/quit (без учёта регистра и пробелов)
// завершают цикл до любого вызова Handler.
type Loop struct {
	In      io.Reader
	Out     io.Writer
	Prompt  string
	Timeout time.Duration
	Handler HandlerFunc

	// AfterAnswer вызывается после каждого ответа (например, печать памяти).
	AfterAnswer func(w io.Writer)
}

// IsQuit сообщает, что пользователь хочет выйти.
func IsQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit":
		return true
	}
	return false
}

// Run крутит цикл до quit, EOF или отмены ctx.
func (l *Loop) Run(ctx context.Context) error {
	if l.Handler == nil {
		return errors.New("cli loop: handler is nil")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	reader := bufio.NewReader(l.In)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(l.Out, l.Prompt)

		// Поддерживает pipe и интерактивный режим
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		eof := err != nil

		input := strings.TrimSpace(line)
		switch {
		case IsQuit(input):
			fmt.Fprintln(l.Out, "Goodbye!")
			return nil
		case input != "":
			qctx, cancel := context.WithTimeout(ctx, timeout)
			answer := l.Handler(qctx, input)
			cancel()

			fmt.Fprintf(l.Out, "\nAnswer: %s\n", answer)
			if l.AfterAnswer != nil {
				l.AfterAnswer(l.Out)
			}
		}

		if eof {
			fmt.Fprintln(l.Out)
			return nil
		}
	}
}
