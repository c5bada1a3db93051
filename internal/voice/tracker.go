// Package voice keeps bounded bookkeeping of sounding notes. Records are
// created at trigger time and removed when their duration elapses or when
// they are evicted to keep the count at or under the limit. Eviction is
// bookkeeping only: nothing is sent to the engine.
package voice

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haosfm/haos/internal/log"
)

// DefaultMax is the default voice limit.
const DefaultMax = 16

// Record is one tracked voice.
type Record struct {
	ID           string
	InstrumentID string
	NoteID       string
	StartTime    time.Time
	ExpiresAt    time.Time
}

// Stats summarises the tracker.
type Stats struct {
	Count        int
	Max          int
	CPULoadRatio float64
	Evicted      int64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMax sets the voice limit. Values below 1 are ignored.
func WithMax(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.max = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithAfterFunc overrides time.AfterFunc for scheduling expiry.
func WithAfterFunc(after func(time.Duration, func()) Stopper) Option {
	return func(t *Tracker) {
		t.afterFunc = after
	}
}

// Stopper cancels a scheduled expiry.
type Stopper interface {
	Stop() bool
}

type entry struct {
	rec   Record
	timer Stopper
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	max     int
	order   []*entry // insertion order, oldest first
	byID    map[string]*entry
	evicted int64
	closed  bool

	now       func() time.Time
	afterFunc func(time.Duration, func()) Stopper
}

// NewTracker creates a tracker with DefaultMax voices.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		max:  DefaultMax,
		byID: make(map[string]*entry),
		now:  time.Now,
		afterFunc: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records a voice lasting d and returns its ID. When the count
// exceeds the limit the single oldest record is evicted.
func (t *Tracker) Track(instrumentID, noteID string, d time.Duration) string {
	now := t.now()
	e := &entry{rec: Record{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		NoteID:       noteID,
		StartTime:    now,
		ExpiresAt:    now.Add(d),
	}}
	id := e.rec.ID

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return id
	}

	t.order = append(t.order, e)
	t.byID[id] = e
	if len(t.order) > t.max {
		oldest := t.order[0]
		t.removeLocked(oldest.rec.ID)
		t.evicted++
		log.Debug(log.CatVoice, "voice limit reached, evicted oldest",
			"evicted", oldest.rec.ID, "instrument", oldest.rec.InstrumentID)
	}

	e.timer = t.afterFunc(d, func() { t.Remove(id) })
	return id
}

// Remove drops a record. Removing an unknown or already evicted ID is a
// no-op.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
}

func (t *Tracker) removeLocked(id string) {
	e, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	for i, o := range t.order {
		if o == e {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Stats returns the current count and load ratio.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Count:        len(t.order),
		Max:          t.max,
		CPULoadRatio: float64(len(t.order)) / float64(t.max),
		Evicted:      t.evicted,
	}
}

// Active returns the records oldest first.
func (t *Tracker) Active() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.order))
	for i, e := range t.order {
		out[i] = e.rec
	}
	return out
}

// Clear drops every record.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.order {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	t.order = nil
	t.byID = make(map[string]*entry)
}

// Close clears the tracker and ignores later Track calls.
func (t *Tracker) Close() {
	t.Clear()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
