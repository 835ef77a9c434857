package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// ErrSummarize: модель не смогла обновить резюме.
// Реплики при этом не теряются: они остаются в очереди и уйдут
// в следующее успешное обновление.
var ErrSummarize = errors.New("summary update failed")

const summaryPrompt = `Progressively summarize the lines of conversation provided, adding onto the previous summary returning a new summary.

Current summary:
%s

New lines of conversation:
%s

New summary:`

// SummaryOptions: параметры запроса на обновление резюме.
type SummaryOptions struct {
	Model     string // пусто = модель провайдера
	MaxTokens int
}

// Summary ведёт резюме диалога через модель.
//
// Messages возвращает резюме системным сообщением и, следом, реплики,
// которые ещё не вошли в резюме.
type Summary struct {
	provider llm.Provider
	opts     SummaryOptions

	foldMu sync.Mutex // сериализует обращения к модели

	mu      sync.RWMutex
	summary string
	pending []Turn
	turns   []Turn
}

// NewSummary создаёт пустую summary-память.
func NewSummary(provider llm.Provider, opts SummaryOptions) *Summary {
	return &Summary{provider: provider, opts: opts}
}

// Append добавляет реплики и сворачивает очередь в резюме одним
// запросом. При ошибке модели прежнее резюме сохраняется, а реплики
// остаются в очереди; возвращается ошибка, обёрнутая в ErrSummarize.
func (s *Summary) Append(ctx context.Context, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	s.turns = append(s.turns, turns...)
	s.pending = append(s.pending, turns...)
	s.mu.Unlock()

	return s.fold(ctx)
}

func (s *Summary) fold(ctx context.Context) error {
	s.foldMu.Lock()
	defer s.foldMu.Unlock()

	s.mu.RLock()
	current := s.summary
	batch := append([]Turn(nil), s.pending...)
	s.mu.RUnlock()

	if len(batch) == 0 {
		return nil
	}

	var lines strings.Builder
	for i, t := range batch {
		if i > 0 {
			lines.WriteString("\n")
		}
		lines.WriteString(roleLabel(t.Role))
		lines.WriteString(": ")
		lines.WriteString(t.Content)
	}

	opts := []any{llm.WithTemperature(0)}
	if s.opts.Model != "" {
		opts = append(opts, llm.WithModel(s.opts.Model))
	}
	if s.opts.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.opts.MaxTokens))
	}

	prompt := fmt.Sprintf(summaryPrompt, current, lines.String())
	resp, err := s.provider.Generate(ctx, []llm.Message{llm.NewUserMessage(prompt)}, opts...)
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = errors.New("empty summary returned")
	}
	if err != nil {
		utils.Warn("Summary memory update failed, keeping previous summary",
			"pending_turns", len(batch),
			"error", err)
		return fmt.Errorf("%w: %w", ErrSummarize, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = strings.TrimSpace(resp.Content)
	// Пока шёл запрос, могли добавиться новые реплики: снимаем только batch
	s.pending = append([]Turn(nil), s.pending[len(batch):]...)

	utils.Debug("Summary memory updated",
		"turns_folded", len(batch),
		"summary_length", len(s.summary))
	return nil
}

// CurrentSummary возвращает текущее резюме.
func (s *Summary) CurrentSummary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Pending возвращает реплики, ещё не вошедшие в резюме.
func (s *Summary) Pending() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.pending...)
}

func (s *Summary) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]llm.Message, 0, len(s.pending)+1)
	if s.summary != "" {
		msgs = append(msgs, llm.NewSystemMessage("Summary of the conversation so far:\n"+s.summary))
	}
	return append(msgs, toMessages(s.pending)...)
}

func (s *Summary) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.turns...)
}

func (s *Summary) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = ""
	s.pending = nil
	s.turns = nil
}

var _ Memory = (*Summary)(nil)
