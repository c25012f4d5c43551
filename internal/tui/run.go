package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/notify"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
	"github.com/Sternrassler/deverp-client/pkg/prefs"
	"github.com/Sternrassler/deverp-client/pkg/scroll"
)

// Options configures Run.
type Options struct {
	Getter    inventory.Getter
	Sync      pagination.Options
	Scroll    scroll.Config
	Center    *notify.Center
	Prefs     *prefs.Store
	Filters   inventory.Filters
	AltScreen bool
}

// Run starts the browser and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Getter == nil {
		return fmt.Errorf("tui: getter is required")
	}
	center := opts.Center
	if center == nil {
		center = notify.NewCenter(notify.DefaultTTL)
	}
	notices, unsubscribe := center.Subscribe(0)
	defer unsubscribe()

	mode := prefs.DefaultViewMode
	if opts.Prefs != nil {
		// A corrupt file still yields the default mode.
		mode, _ = opts.Prefs.Load()
	}

	view := newProgramView(nil)
	lister := pagination.New[inventory.Product](inventory.NewProductSource(opts.Getter), view, center, opts.Sync)

	var program *tea.Program
	scrollCfg := opts.Scroll
	scrollCfg.Ready = func() bool {
		snap := lister.Snapshot()
		return !snap.Loading && snap.HasMore
	}
	scrollCfg.Trigger = func() {
		outcome, _ := lister.LoadNextPage(ctx)
		program.Send(loadDoneMsg{outcome: outcome, hasMore: lister.Snapshot().HasMore})
	}
	scroller := scroll.NewHandler(scrollCfg)
	defer scroller.Stop()

	model := NewModel(ctx, ModelConfig{
		List:     lister,
		Scroller: scroller,
		Center:   center,
		Notices:  notices,
		Prefs:    opts.Prefs,
		Filters:  opts.Filters,
		Mode:     mode,
	})

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program = tea.NewProgram(model, programOpts...)
	view.sender = program

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}
