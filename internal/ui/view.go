// Рендер
package ui

import (
	"fmt"
	"strings"
)

// View реализует tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	status := fmt.Sprintf(" %s | MODEL: %s ", m.cfg.Title, m.cfg.ModelName)
	if m.cfg.Session != "" {
		status += fmt.Sprintf("| SESSION: %s ", m.cfg.Session)
	}
	header := headerStyle.Width(m.viewport.Width).Render(status)

	var footer string
	if m.processing {
		footer = m.spinner.View() + " Thinking..."
	} else {
		footer = borderStyle.Render(strings.Repeat("─", m.viewport.Width))
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		footer,
		m.textarea.View(),
	)
}
