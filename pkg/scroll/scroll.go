// Package scroll decides when a scrolling list should load its next page.
//
// A Handler receives raw scroll positions, debounces them, and calls its
// trigger only when the user is moving down and is within Threshold of the
// bottom of the content. Positions are measured in whatever unit the view
// uses (pixels in a browser, rows in a terminal).
package scroll

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Defaults for Config.
const (
	DefaultThreshold = 200
	DefaultDebounce  = 100 * time.Millisecond
)

var (
	scrollEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deverp_scroll_events_total",
		Help: "Raw scroll events received",
	})

	scrollEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_scroll_evaluations_total",
		Help: "Debounced scroll evaluations by decision",
	}, []string{"decision"})
)

// Direction of travel between two evaluated positions.
type Direction int

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Position is a snapshot of a scrollable area.
type Position struct {
	// Offset is the distance scrolled from the top.
	Offset int

	// ViewportHeight is the visible height.
	ViewportHeight int

	// ContentHeight is the full height of the content.
	ContentHeight int
}

// DistanceToBottom is how far the bottom of the viewport is from the end of
// the content. It is negative when overscrolled.
func (p Position) DistanceToBottom() int {
	return p.ContentHeight - (p.Offset + p.ViewportHeight)
}

// Detector tracks scroll direction and applies the bottom threshold.
type Detector struct {
	Threshold int

	last      int
	direction Direction
}

// NewDetector creates a Detector. A threshold <= 0 uses DefaultThreshold.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{Threshold: threshold}
}

// Observe records p and reports whether it should trigger a load: the
// offset moved down since the last observation and the viewport is within
// Threshold of the bottom.
func (d *Detector) Observe(p Position) bool {
	if p.Offset > d.last {
		d.direction = Down
	} else {
		d.direction = Up
	}
	d.last = p.Offset

	return d.direction == Down && p.DistanceToBottom() <= d.Threshold
}

// Direction returns the direction seen by the last Observe.
func (d *Detector) Direction() Direction {
	return d.direction
}

// LastOffset returns the offset seen by the last Observe.
func (d *Detector) LastOffset() int {
	return d.last
}

// Reset forgets the last offset, e.g. after the list was replaced.
func (d *Detector) Reset() {
	d.last = 0
	d.direction = Down
}

// Debouncer runs a function once calls have stopped for Wait (trailing edge).
type Debouncer struct {
	wait time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer. A wait <= 0 uses DefaultDebounce.
func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{wait: wait}
}

// Call schedules fn, replacing any call still waiting.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Stop cancels a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Config configures a Handler.
type Config struct {
	Threshold int
	Debounce  time.Duration

	// Ready gates evaluation. When it returns false (a load is running or
	// nothing is left) the position is ignored and the direction is not
	// updated. Nil means always ready.
	Ready func() bool

	// Trigger is called when a load should start.
	Trigger func()
}

// Handler debounces scroll events and triggers loads near the bottom.
type Handler struct {
	cfg       Config
	debouncer *Debouncer

	mu       sync.Mutex
	detector *Detector
	pending  Position
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Trigger == nil {
		cfg.Trigger = func() {}
	}
	return &Handler{
		cfg:       cfg,
		debouncer: NewDebouncer(cfg.Debounce),
		detector:  NewDetector(cfg.Threshold),
	}
}

// OnScroll records p and schedules an evaluation after the debounce interval.
func (h *Handler) OnScroll(p Position) {
	scrollEventsTotal.Inc()

	h.mu.Lock()
	h.pending = p
	h.mu.Unlock()

	h.debouncer.Call(func() { h.Evaluate() })
}

// Evaluate checks the latest position immediately and reports whether the
// trigger was called.
func (h *Handler) Evaluate() bool {
	if h.cfg.Ready != nil && !h.cfg.Ready() {
		scrollEvaluationsTotal.WithLabelValues("not_ready").Inc()
		return false
	}

	h.mu.Lock()
	fire := h.detector.Observe(h.pending)
	h.mu.Unlock()

	if !fire {
		scrollEvaluationsTotal.WithLabelValues("ignored").Inc()
		return false
	}
	scrollEvaluationsTotal.WithLabelValues("triggered").Inc()
	h.cfg.Trigger()
	return true
}

// Reset forgets scroll history and drops a pending evaluation.
func (h *Handler) Reset() {
	h.debouncer.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.detector.Reset()
	h.pending = Position{}
}

// Stop drops a pending evaluation.
func (h *Handler) Stop() {
	h.debouncer.Stop()
}
