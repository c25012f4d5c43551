package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/deverp-client/pkg/notify"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func printNotice(w io.Writer, n notify.Notification) {
	switch n.Level {
	case notify.LevelSuccess:
		fmt.Fprintln(w, successStyle.Render("✔ "+n.Message))
	case notify.LevelDanger:
		fmt.Fprintln(w, errorStyle.Render("✖ "+n.Message))
	case notify.LevelWarning:
		fmt.Fprintln(w, warnStyle.Render("! "+n.Message))
	default:
		fmt.Fprintln(w, accentStyle.Render("• "+n.Message))
	}
}

func panel(w io.Writer, lines []string) {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	fmt.Fprintln(w, border.Render(strings.Join(lines, "\n")))
}

// bar renders value out of total as a fixed width bar.
func bar(value, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 0 {
		width = 20
	}
	filled := value * width / total
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
