package monitoring

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Watchlist is an in-memory set of itineraries under monitoring.
type Watchlist struct {
	mu      sync.RWMutex
	watches map[string]Watch
}

// NewWatchlist creates an empty watchlist.
func NewWatchlist() *Watchlist {
	return &Watchlist{watches: make(map[string]Watch)}
}

// Add starts monitoring w, replacing any watch with the same ID.
func (l *Watchlist) Add(w Watch) error {
	if len(w.Legs) == 0 {
		return ErrNoLegs
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watches[w.ID] = w
	return nil
}

// Remove stops monitoring id. It reports whether the watch existed.
func (l *Watchlist) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.watches[id]
	delete(l.watches, id)
	return ok
}

// Get returns the watch for id.
func (l *Watchlist) Get(id string) (Watch, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.watches[id]
	return w, ok
}

// Active returns the current watches ordered by ID.
func (l *Watchlist) Active() []Watch {
	l.mu.RLock()
	out := make([]Watch, 0, len(l.watches))
	for _, w := range l.watches {
		out = append(out, w)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of watches.
func (l *Watchlist) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.watches)
}

// Publisher delivers alerts to subscribers.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// LogPublisher writes alerts to the log.
type LogPublisher struct {
	Logger zerolog.Logger
}

// Publish logs the alert at warn level.
func (p LogPublisher) Publish(_ context.Context, alert Alert) error {
	p.Logger.Warn().
		Str("alert_id", alert.ID).
		Str("itinerary_id", alert.ItineraryID).
		Int("leg_index", alert.LegIndex).
		Str("mode", alert.Mode).
		Int("delay_minutes", alert.DelayMinutes).
		Str("severity", string(alert.Severity)).
		Msg(alert.Message)
	return nil
}
