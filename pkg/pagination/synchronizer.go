package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults for Options.
const (
	DefaultPerPage        = 50
	DefaultLoadingDelay   = 300 * time.Millisecond
	DefaultFailureMessage = "Failed to load more items. Please try again."
)

// Outcome describes what a load call did.
type Outcome int

const (
	// OutcomeLoaded means a page was merged into the list.
	OutcomeLoaded Outcome = iota

	// OutcomeSkipped means no request was made: a fetch was already in
	// flight or the list is exhausted.
	OutcomeSkipped

	// OutcomeStale means the page arrived after a filter reset and was dropped.
	OutcomeStale

	// OutcomeFailed means the fetch failed and the list is unchanged.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options tunes a Synchronizer.
type Options struct {
	// Name labels metrics and logs.
	Name string

	// PerPage is sent as per_page on every fetch.
	PerPage int

	// LoadingDelay is how long a fetch runs before the view is told to show
	// its loading indicator. Zero shows it immediately.
	LoadingDelay time.Duration

	// FailureMessage is the notification text for a failed load.
	FailureMessage string
}

// DefaultOptions returns the standard list options.
func DefaultOptions() Options {
	return Options{
		Name:           "list",
		PerPage:        DefaultPerPage,
		LoadingDelay:   DefaultLoadingDelay,
		FailureMessage: DefaultFailureMessage,
	}
}

// Synchronizer coordinates page loads for one ListState.
type Synchronizer[T any] struct {
	source   PageSource[T]
	view     View[T]
	notifier Notifier
	opts     Options
	logger   zerolog.Logger

	// viewMu serializes view calls and is always taken before mu.
	viewMu sync.Mutex

	mu      sync.Mutex
	state   ListState[T]
	fetchID uint64
	cancel  context.CancelFunc
}

// New creates a Synchronizer in its initial state: page 1, more pages
// assumed, no filters. A nil view or notifier discards output.
func New[T any](source PageSource[T], view View[T], notifier Notifier, opts Options) *Synchronizer[T] {
	if source == nil {
		panic("pagination: page source cannot be nil")
	}
	if view == nil {
		view = NopView[T]{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if opts.Name == "" {
		opts.Name = "list"
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.LoadingDelay < 0 {
		opts.LoadingDelay = 0
	}
	if opts.FailureMessage == "" {
		opts.FailureMessage = DefaultFailureMessage
	}

	return &Synchronizer[T]{
		source:   source,
		view:     view,
		notifier: notifier,
		opts:     opts,
		logger:   log.With().Str("component", "list-sync").Str("list", opts.Name).Logger(),
		state:    initialState[T](nil, 0),
	}
}

// Snapshot returns a copy of the current state.
func (s *Synchronizer[T]) Snapshot() ListState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state
	snap.Items = append([]T(nil), s.state.Items...)
	snap.ActiveFilters = s.state.ActiveFilters.Clone()
	return snap
}

// ApplyFilters replaces the active filters, clears the list and the view,
// and loads page 1. A fetch still running for the previous filters is
// cancelled and its result discarded. Empty filters are valid.
func (s *Synchronizer[T]) ApplyFilters(ctx context.Context, filters Filters) (Outcome, error) {
	s.viewMu.Lock()
	s.mu.Lock()
	s.restart(filters)
	f := s.begin(ctx)
	s.mu.Unlock()

	s.view.Reset()
	s.view.SetCounts(0, 0)
	s.viewMu.Unlock()

	filterResetsTotal.WithLabelValues(s.opts.Name).Inc()
	s.logger.Debug().
		Uint64("generation", f.generation).
		Interface("filters", filters).
		Msg("Filters applied, list reset")

	return s.run(f)
}

// Reset returns the list to page 1 with the current filters, without
// fetching. Any in-flight fetch is discarded.
func (s *Synchronizer[T]) Reset() {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.mu.Lock()
	s.restart(s.state.ActiveFilters)
	s.mu.Unlock()

	s.view.Reset()
	s.view.SetLoading(false)
	s.view.SetCounts(0, 0)
}

// LoadNextPage fetches CurrentPage and appends it. It returns OutcomeSkipped
// without any request while a fetch is in flight or when HasMore is false.
// A failure is reported to the notifier and leaves the state untouched; the
// returned error is informational.
func (s *Synchronizer[T]) LoadNextPage(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	switch {
	case s.state.Loading:
		s.mu.Unlock()
		skippedTotal.WithLabelValues(s.opts.Name, "loading").Inc()
		return OutcomeSkipped, nil
	case !s.state.HasMore:
		s.mu.Unlock()
		skippedTotal.WithLabelValues(s.opts.Name, "exhausted").Inc()
		return OutcomeSkipped, nil
	}
	f := s.begin(ctx)
	s.mu.Unlock()

	return s.run(f)
}

// restart must be called with mu held.
func (s *Synchronizer[T]) restart(filters Filters) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = initialState[T](filters, s.state.Generation+1)
}

// fetch is one outstanding page request.
type fetch struct {
	ctx        context.Context
	cancel     context.CancelFunc
	id         uint64
	generation uint64
	req        PageRequest
}

// begin marks the list as loading and prepares the request. It must be
// called with mu held.
func (s *Synchronizer[T]) begin(ctx context.Context) fetch {
	fetchCtx, cancel := context.WithCancel(ctx)
	s.fetchID++
	s.cancel = cancel
	s.state.Loading = true

	return fetch{
		ctx:        fetchCtx,
		cancel:     cancel,
		id:         s.fetchID,
		generation: s.state.Generation,
		req: PageRequest{
			Page:    s.state.CurrentPage,
			PerPage: s.opts.PerPage,
			Filters: s.state.ActiveFilters.Clone(),
		},
	}
}

func (s *Synchronizer[T]) run(f fetch) (Outcome, error) {
	defer f.cancel()

	start := time.Now()
	indicator := time.AfterFunc(s.opts.LoadingDelay, func() { s.showLoading(f.id) })

	s.logger.Debug().
		Int("page", f.req.Page).
		Uint64("generation", f.generation).
		Msg("Fetching page")

	page, err := s.source.FetchPage(f.ctx, f.req)
	indicator.Stop()
	fetchDuration.WithLabelValues(s.opts.Name).Observe(time.Since(start).Seconds())

	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.mu.Lock()
	if s.state.Generation != f.generation || s.fetchID != f.id {
		s.mu.Unlock()
		staleTotal.WithLabelValues(s.opts.Name).Inc()
		s.logger.Debug().
			Int("page", f.req.Page).
			Uint64("generation", f.generation).
			Msg("Discarding stale page")
		return OutcomeStale, nil
	}

	s.state.Loading = false
	s.cancel = nil

	if err != nil {
		s.mu.Unlock()
		s.view.SetLoading(false)
		return s.fail(f, err)
	}

	startIndex := len(s.state.Items)
	s.state.Items = append(s.state.Items, page.Items...)
	s.state.HasMore = page.MoreAfter(f.req.Page, f.req.PerPage)
	if s.state.HasMore {
		s.state.CurrentPage = page.Next(f.req.Page)
	}
	if page.Total > 0 {
		s.state.Total = page.Total
	}
	shown, total, hasMore := len(s.state.Items), s.state.Total, s.state.HasMore
	s.mu.Unlock()

	s.view.SetLoading(false)
	if len(page.Items) > 0 {
		s.view.Append(page.Items, startIndex)
	}
	s.view.SetCounts(shown, total)

	pagesLoadedTotal.WithLabelValues(s.opts.Name).Inc()
	itemsLoadedTotal.WithLabelValues(s.opts.Name).Add(float64(len(page.Items)))
	s.logger.Debug().
		Int("page", f.req.Page).
		Int("items", len(page.Items)).
		Int("shown", shown).
		Bool("has_more", hasMore).
		Msg("Page merged")

	return OutcomeLoaded, nil
}

// fail reports a failed fetch. Cancellation by the caller is not a user
// facing failure and is not notified.
func (s *Synchronizer[T]) fail(f fetch, err error) (Outcome, error) {
	loadFailuresTotal.WithLabelValues(s.opts.Name).Inc()
	err = fmt.Errorf("load page %d: %w", f.req.Page, err)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug().Err(err).Msg("Page load cancelled")
		return OutcomeFailed, err
	}

	s.logger.Error().
		Err(err).
		Int("page", f.req.Page).
		Msg("Error loading more items")
	s.notifier.Danger(s.opts.FailureMessage)
	return OutcomeFailed, err
}

// showLoading turns the indicator on if fetch id is still the live one.
func (s *Synchronizer[T]) showLoading(id uint64) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.mu.Lock()
	live := s.state.Loading && s.fetchID == id
	s.mu.Unlock()

	if live {
		s.view.SetLoading(true)
	}
}
