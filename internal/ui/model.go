// Package ui реализует чат на Bubble Tea для cmd/chat-ui.
//
// Видимая история диалога, спиннер "Thinking..." на время запроса и
// строки о вызовах инструментов из событий диспетчера.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ilkoid/poncho-assist/pkg/agent"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/memory"
)

// Answerer: то, что отвечает на запрос (agent.Dispatcher).
type Answerer interface {
	Execute(ctx context.Context, q agent.Query) (string, error)
}

// Config: параметры экрана.
type Config struct {
	Title     string
	ModelName string
	Session   string
	Timeout   time.Duration // на один запрос

	// History: реплики, восстановленные из транскрипта.
	History []memory.Turn

	// OnExchange вызывается после каждого успешного ответа (сохранение
	// транскрипта). Неудачные запросы в память не попадают, в транскрипт тоже.
	OnExchange func(q agent.Query, answer string)
}

// answerMsg: ответ диспетчера, прилетает асинхронно.
type answerMsg struct {
	query  agent.Query
	answer string
	err    error
}

// eventMsg: событие диспетчера (вызов инструмента и т.п.).
type eventMsg events.Event

// Model: главная модель UI.
//
// Методы на указателе: bubbletea копирует value receiver при каждом Update.
type Model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	answerer Answerer
	events   events.Subscriber // может быть nil
	cfg      Config

	logLines   []string // без переноса, переносим при каждом resize
	processing bool
	ready      bool
}

// New создаёт модель. sub может быть nil: тогда шаги инструментов не видны.
func New(a Answerer, sub events.Subscriber, cfg Config) *Model {
	if cfg.Title == "" {
		cfg.Title = "Poncho Assist"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}

	ta := textarea.New()
	ta.Placeholder = "Ask something, attach a file with @path..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false) // Enter отправляет

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(secondaryColor)

	m := &Model{
		viewport: viewport.New(0, 0),
		textarea: ta,
		spinner:  sp,
		answerer: a,
		events:   sub,
		cfg:      cfg,
	}

	m.appendLog(SystemMsgStyle(fmt.Sprintf("%s. Type q or quit to exit.", cfg.Title)))
	for _, turn := range cfg.History {
		m.appendTurn(turn)
	}
	return m
}

// Init запускает мигание курсора и чтение событий.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitEvent())
}

func (m *Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	sub := m.events
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// ask выполняет запрос вне UI горутины.
func (m *Model) ask(input string) tea.Cmd {
	q := agent.ParseQuery(input)
	answerer, timeout := m.answerer, m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		answer, err := answerer.Execute(ctx, q)
		return answerMsg{query: q, answer: answer, err: err}
	}
}

func (m *Model) appendTurn(turn memory.Turn) {
	switch turn.Role {
	case llm.RoleUser:
		m.appendLog(UserMsgStyle("You: ") + turn.Content)
	default:
		m.appendLog(AIMsgStyle("AI: ") + turn.Content)
	}
}

var _ tea.Model = (*Model)(nil)
