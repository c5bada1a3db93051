// Package instrument provides typed instrument adapters over the bridge.
//
// Adapters validate and clamp parameters, map notes to frequencies and
// translate semantic calls (PlayKick, PlayNote) into engine commands. When
// the bridge is not ready they fall back to a local, non-audio Feedback
// signal instead of sending anything.
package instrument

import (
	"context"
	"time"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/log"
)

// Sender is the part of the bridge adapters use.
type Sender interface {
	Send(name string, params map[string]any)
	IsReady() bool
}

// VoiceTracker records melodic triggers.
type VoiceTracker interface {
	Track(instrumentID, noteID string, d time.Duration) string
}

// Instrument is the capability shared by every adapter.
type Instrument interface {
	ID() string
	Params() []Param
	// Set clamps and stores a parameter, returning the stored value.
	// Unknown parameter names are ignored.
	Set(name string, v float64) float64
	Get(name string) float64
}

// Percussive is a drum machine.
type Percussive interface {
	Instrument
	PlayKick(ctx context.Context, velocity float64)
	PlaySnare(ctx context.Context, velocity float64)
	PlayHiHat(ctx context.Context, velocity float64, open bool)
	PlayClap(ctx context.Context, velocity float64)
	StopAll()
}

// Melodic is a pitched synthesizer.
type Melodic interface {
	Instrument
	PlayNote(ctx context.Context, note any, opts NoteOptions)
	StopAll()
}

// NoteOptions modify a single melodic trigger.
type NoteOptions struct {
	Velocity float64
	Accent   bool
	Slide    bool
	Duration time.Duration
}

// DefaultNoteDuration is used when NoteOptions.Duration is zero.
const DefaultNoteDuration = 300 * time.Millisecond

// Option configures an adapter.
type Option func(*core)

// WithResumer sets the gate awaited before every trigger.
func WithResumer(r Resumer) Option {
	return func(c *core) {
		c.resumer = r
	}
}

// WithFeedback sets the degraded-mode signal.
func WithFeedback(f Feedback) Option {
	return func(c *core) {
		c.feedback = f
	}
}

// WithVoices registers melodic triggers with a voice tracker.
func WithVoices(v VoiceTracker) Option {
	return func(c *core) {
		c.voices = v
	}
}

// core carries what every adapter shares.
type core struct {
	id       string
	params   *ParamSet
	sender   Sender
	resumer  Resumer
	feedback Feedback
	voices   VoiceTracker
}

func newCore(id string, sender Sender, params *ParamSet, opts []Option) core {
	c := core{
		id:       id,
		params:   params,
		sender:   sender,
		feedback: LogFeedback{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *core) ID() string { return c.id }

func (c *core) Params() []Param { return c.params.Defs() }

func (c *core) Set(name string, v float64) float64 {
	stored, ok := c.params.Set(name, v)
	if !ok {
		log.Debug(log.CatAdapter, "ignoring unknown parameter", "instrument", c.id, "param", name)
	}
	return stored
}

func (c *core) Get(name string) float64 { return c.params.Get(name) }

// trigger sends cmd when the bridge is ready and the resume gate is open.
// A bridge that is not ready pulses feedback at once, without waiting on
// the gate; a trigger abandoned while waiting pulses too. Either way it
// reports false.
func (c *core) trigger(ctx context.Context, cmd string, intensity float64, params map[string]any) bool {
	if c.sender == nil || !c.sender.IsReady() {
		c.feedback.Pulse(c.id, intensity)
		return false
	}
	if c.resumer != nil {
		if err := c.resumer.Resume(ctx); err != nil {
			log.Debug(log.CatAdapter, "trigger abandoned waiting for resume",
				"instrument", c.id, "command", cmd, "error", err)
			c.feedback.Pulse(c.id, intensity)
			return false
		}
	}
	c.sender.Send(cmd, params)
	return true
}

func (c *core) stopAll() {
	if c.sender == nil || !c.sender.IsReady() {
		return
	}
	c.sender.Send(bridge.CmdStopAllNotes, map[string]any{"instrument": c.id})
}
