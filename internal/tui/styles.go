package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/deverp-client/pkg/notify"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	inStockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	notInStockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("12"))

	toastStyles = map[notify.Level]lipgloss.Style{
		notify.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		notify.LevelDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		notify.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		notify.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
)

// cardHeight is the rendered height of one card including its border.
const cardHeight = 5

func toastStyle(level notify.Level) lipgloss.Style {
	if s, ok := toastStyles[level]; ok {
		return s
	}
	return mutedStyle
}

func statusStyle(inStock bool) lipgloss.Style {
	if inStock {
		return inStockStyle
	}
	return notInStockStyle
}
