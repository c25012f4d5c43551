// Package notify holds transient, dismissible user notifications.
//
// A Center is the single place failures and confirmations are reported to
// the user. Notify never blocks and never fails: subscribers receive on
// buffered channels and a full subscriber misses the message instead of
// stalling the caller.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

var (
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_notifications_total",
		Help: "User notifications raised by level",
	}, []string{"level"})

	notificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deverp_notifications_dropped_total",
		Help: "Notifications not delivered to a full subscriber",
	})
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelDanger  Level = "danger"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is one message shown to the user.
type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether n should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// Center collects notifications and fans them out to subscribers.
type Center struct {
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu     sync.Mutex
	active []Notification
	subs   map[int]chan Notification
	nextID int
}

// NewCenter creates a Center. A ttl <= 0 uses DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:    ttl,
		now:    time.Now,
		logger: log.With().Str("component", "notify").Logger(),
		subs:   make(map[int]chan Notification),
	}
}

// Notify records a notification and delivers it to subscribers.
func (c *Center) Notify(level Level, message string) Notification {
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.active = append(c.active, n)
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
			notificationsDroppedTotal.Inc()
		}
	}
	c.mu.Unlock()

	notificationsTotal.WithLabelValues(string(level)).Inc()
	c.logEvent(level).
		Str("notification_id", n.ID).
		Msg(message)
	return n
}

func (c *Center) logEvent(level Level) *zerolog.Event {
	switch level {
	case LevelDanger:
		return c.logger.Error()
	case LevelWarning:
		return c.logger.Warn()
	default:
		return c.logger.Info()
	}
}

// Success raises a success notification.
func (c *Center) Success(message string) { c.Notify(LevelSuccess, message) }

// Danger raises an error notification.
func (c *Center) Danger(message string) { c.Notify(LevelDanger, message) }

// Warning raises a warning notification.
func (c *Center) Warning(message string) { c.Notify(LevelWarning, message) }

// Info raises an informational notification.
func (c *Center) Info(message string) { c.Notify(LevelInfo, message) }

// Dismiss removes a notification. It reports whether id was active.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.active {
		if n.ID == id {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the notifications still visible at now, oldest first.
func (c *Center) Active(now time.Time) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.active))
	for _, n := range c.active {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}

// Prune drops expired notifications and returns how many were removed.
func (c *Center) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.active[:0]
	for _, n := range c.active {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	removed := len(c.active) - len(kept)
	c.active = kept
	return removed
}

// Subscribe returns a channel receiving every new notification and a func
// that ends the subscription.
func (c *Center) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Notification, buffer)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}
