// Красота

package ui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("62")  // Фиолетовый
	secondaryColor = lipgloss.Color("205") // Розовый
	grayColor      = lipgloss.Color("240")

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1).
			Bold(true)

	borderStyle = lipgloss.NewStyle().Foreground(grayColor)

	// Стили для сообщений в логе
	UserMsgStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			Render

	AIMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")). // Зеленый
			Bold(true).
			Render

	SystemMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Render

	ToolMsgStyle = lipgloss.NewStyle().
			Foreground(grayColor).
			Italic(true).
			Render

	ErrorMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true).
			Render
)
