package tui

import (
	"strconv"
	"strings"

	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/prefs"
)

// Breakpoint is a terminal width class.
type Breakpoint int

const (
	Mobile Breakpoint = iota
	Tablet
	Desktop
)

// Width thresholds in columns.
const (
	tabletMinWidth    = 80
	desktopMinWidth   = 120
	extraWideMinWidth = 180
)

func (b Breakpoint) String() string {
	switch b {
	case Mobile:
		return "mobile"
	case Tablet:
		return "tablet"
	default:
		return "desktop"
	}
}

// Layout is the terminal size the browser renders into.
type Layout struct {
	Width  int
	Height int
}

// Breakpoint classifies the width.
func (l Layout) Breakpoint() Breakpoint {
	switch {
	case l.Width < tabletMinWidth:
		return Mobile
	case l.Width < desktopMinWidth:
		return Tablet
	default:
		return Desktop
	}
}

// Landscape reports a wide, short terminal. Cells are roughly twice as tall
// as they are wide, so width > 2*height is landscape.
func (l Layout) Landscape() bool {
	return l.Height > 0 && l.Width > 2*l.Height
}

// CardColumns returns how many cards fit per row.
func (l Layout) CardColumns() int {
	switch l.Breakpoint() {
	case Mobile:
		if l.Landscape() {
			return 3
		}
		return 2
	case Tablet:
		return 3
	default:
		if l.Width >= extraWideMinWidth {
			return 6
		}
		return 4
	}
}

// InitialViewMode picks the starting view. Narrow portrait terminals always
// start in card view; narrow landscape ones start in the default table view.
func (l Layout) InitialViewMode(preferred prefs.ViewMode) prefs.ViewMode {
	if l.Breakpoint() == Mobile {
		if l.Landscape() {
			return prefs.DefaultViewMode
		}
		return prefs.ViewCard
	}
	if preferred == "" {
		return prefs.DefaultViewMode
	}
	return preferred
}

// tableColumn is one column of the product table.
type tableColumn struct {
	title string
	width int
	value func(row int, p inventory.Product) string
}

// tableColumns lists the visible table columns for the layout; narrow
// terminals drop the secondary ones.
func (l Layout) tableColumns() []tableColumn {
	cols := []tableColumn{
		{title: "#", width: 5, value: func(row int, _ inventory.Product) string { return strconv.Itoa(row + 1) }},
		{title: "Design", width: 14, value: func(_ int, p inventory.Product) string { return p.DesignNo }},
		{title: "Category", width: 14, value: func(_ int, p inventory.Product) string { return p.Category }},
		{title: "Pcs", width: 6, value: func(_ int, p inventory.Product) string { return strconv.Itoa(p.Pcs) }},
		{title: "Status", width: 14, value: func(_ int, p inventory.Product) string { return p.StatusLabel() }},
	}
	if l.Breakpoint() == Mobile {
		return cols
	}
	cols = append(cols,
		tableColumn{title: "Collection", width: 14, value: func(_ int, p inventory.Product) string { return p.Collection }},
		tableColumn{title: "Gender", width: 10, value: func(_ int, p inventory.Product) string { return p.Gender }},
	)
	if l.Breakpoint() == Desktop {
		cols = append(cols, tableColumn{title: "Jobs", width: 30, value: func(_ int, p inventory.Product) string { return strings.Join(p.JobNumbers(), " ") }})
	}
	return cols
}
