package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

type (
	resetMsg  struct{}
	appendMsg struct {
		items []inventory.Product
		start int
	}
	loadingMsg bool
	countsMsg  struct{ shown, total int }
)

// programView forwards synchronizer view calls into the program's event
// loop, so the model is only ever mutated by Update.
type programView struct {
	sender Sender
}

var _ pagination.View[inventory.Product] = (*programView)(nil)

func newProgramView(sender Sender) *programView {
	return &programView{sender: sender}
}

func (v *programView) Reset() { v.sender.Send(resetMsg{}) }

func (v *programView) Append(items []inventory.Product, start int) {
	v.sender.Send(appendMsg{items: append([]inventory.Product(nil), items...), start: start})
}

func (v *programView) SetLoading(loading bool) { v.sender.Send(loadingMsg(loading)) }

func (v *programView) SetCounts(shown, total int) {
	v.sender.Send(countsMsg{shown: shown, total: total})
}
