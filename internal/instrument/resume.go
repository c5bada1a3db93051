package instrument

import (
	"context"
	"sync"

	"github.com/haosfm/haos/internal/log"
)

// Resumer gates triggers until audio processing has been resumed.
type Resumer interface {
	Resume(ctx context.Context) error
}

// ResumeGate is a Resumer that stays closed until Open is called. It
// opens at most once.
type ResumeGate struct {
	once   sync.Once
	opened chan struct{}
}

// NewResumeGate returns a closed gate.
func NewResumeGate() *ResumeGate {
	return &ResumeGate{opened: make(chan struct{})}
}

// Open releases every current and future Resume call.
func (g *ResumeGate) Open() {
	g.once.Do(func() {
		log.Info(log.CatAdapter, "audio resumed")
		close(g.opened)
	})
}

// IsOpen reports whether Open has been called.
func (g *ResumeGate) IsOpen() bool {
	select {
	case <-g.opened:
		return true
	default:
		return false
	}
}

// Resume blocks until the gate opens or ctx is done.
func (g *ResumeGate) Resume(ctx context.Context) error {
	select {
	case <-g.opened:
		return nil
	default:
	}
	select {
	case <-g.opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Feedback is the non-audio signal used when a trigger cannot reach the
// engine.
type Feedback interface {
	Pulse(instrumentID string, intensity float64)
}

// FeedbackFunc adapts a function to Feedback.
type FeedbackFunc func(instrumentID string, intensity float64)

// Pulse calls f.
func (f FeedbackFunc) Pulse(instrumentID string, intensity float64) {
	f(instrumentID, intensity)
}

// LogFeedback records degraded triggers in the debug log.
type LogFeedback struct{}

// Pulse logs the trigger.
func (LogFeedback) Pulse(instrumentID string, intensity float64) {
	log.Debug(log.CatAdapter, "engine unavailable, local feedback only",
		"instrument", instrumentID, "intensity", intensity)
}
