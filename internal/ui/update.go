// Логика - Обрабатывает нажатия клавиш, ответы и события диспетчера.

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/ilkoid/poncho-assist/internal/cli"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

const toolPreviewRunes = 120

// Update реализует tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if cli.IsQuit(input) {
				return m, tea.Quit
			}
			if m.processing {
				return m, nil
			}

			m.textarea.Reset()
			m.appendLog(UserMsgStyle("You: ") + input)
			m.processing = true
			return m, tea.Batch(m.spinner.Tick, m.ask(input))
		}

	case answerMsg:
		m.processing = false
		m.textarea.Focus()
		if msg.err != nil {
			utils.Error("Query failed", "query", msg.query.Text, "error", msg.err)
			m.appendLog(ErrorMsgStyle(fmt.Sprintf("An error occurred: %s", msg.err)))
			break
		}
		m.appendLog(AIMsgStyle("AI: ") + msg.answer)
		if m.cfg.OnExchange != nil {
			m.cfg.OnExchange(msg.query, msg.answer)
		}

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, tea.Batch(tiCmd, vpCmd, m.waitEvent())

	case spinner.TickMsg:
		if m.processing {
			var spCmd tea.Cmd
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, tea.Batch(tiCmd, vpCmd, spCmd)
		}
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

// handleEvent показывает шаги инструментов. Финальный ответ приходит
// через answerMsg, поэтому EventMessage/EventDone здесь не печатаются.
func (m *Model) handleEvent(ev events.Event) {
	switch data := ev.Data.(type) {
	case events.ToolCallData:
		m.appendLog(ToolMsgStyle(fmt.Sprintf("→ %s(%s)", data.ToolName, data.Input)))
	case events.ToolResultData:
		m.appendLog(ToolMsgStyle(fmt.Sprintf("← %s (%dms): %s",
			data.ToolName, data.Duration.Milliseconds(), utils.Preview(data.Result, toolPreviewRunes))))
	case events.ErrorData:
		m.appendLog(ErrorMsgStyle("ERROR: ") + data.Err.Error())
	}
}

func (m *Model) resize(msg tea.WindowSizeMsg) {
	headerHeight := 1
	footerHeight := m.textarea.Height() + 2 // + граница и спиннер

	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := msg.Width
	if vpWidth < 20 {
		vpWidth = 20
	}

	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(vpWidth)
	m.ready = true
	m.refresh(true)
}

// appendLog добавляет строку в лог и прокручивает вниз, если
// пользователь и так был внизу.
func (m *Model) appendLog(line string) {
	wasAtBottom := m.viewport.YOffset+m.viewport.Height >= m.viewport.TotalLineCount()
	m.logLines = append(m.logLines, line)
	m.refresh(wasAtBottom)
}

func (m *Model) refresh(gotoBottom bool) {
	m.viewport.SetContent(wrapLines(m.logLines, m.viewport.Width))
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

// wrapLines переносит по словам, а слишком длинные слова режет.
func wrapLines(lines []string, width int) string {
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrap.String(wordwrap.String(line, width), width))
	}
	return strings.Join(out, "\n")
}
