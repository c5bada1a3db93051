// Package orchestrator routes scheduler steps to the currently selected
// instruments and owns the mixer.
package orchestrator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/haosfm/haos/internal/instrument"
	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/pubsub"
	"github.com/haosfm/haos/internal/sequencer"
	"github.com/haosfm/haos/internal/voice"
)

// Duration hints for melodic tracks.
const (
	BassDuration  = 200 * time.Millisecond
	SynthDuration = 300 * time.Millisecond
)

// DrumAccent scales accented drum steps before the adapter clamps.
const DrumAccent = 1.25

// Previews play at a fixed velocity, outside the mixer.
const (
	PreviewVelocity    = 0.8
	PreviewDuration    = 300 * time.Millisecond
	DefaultPreviewNote = "C2"
)

// Bridge is what the orchestrator needs from the bridge.
type Bridge interface {
	InitAudio()
	SetMasterVolume(volume float64)
	SetBPM(bpm float64)
	StopAllNotes()
}

// Voices is what the orchestrator needs from the voice tracker.
type Voices interface {
	Clear()
	Stats() voice.Stats
}

// PlayState is published when playback starts or stops.
type PlayState struct {
	Playing bool
	BPM     float64
	Bank    string
}

// Snapshot is a read-only view for display.
type Snapshot struct {
	Playing bool
	Paused  bool
	BPM     float64
	Swing   float64
	Bank    string
	Chain   []string
	Step    int
	Bar     int
	Mixer   MixerState
	Voices  voice.Stats
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMixer sets the initial mixer.
func WithMixer(m MixerState) Option {
	return func(o *Orchestrator) {
		o.mixer = m.Sanitized()
	}
}

// WithVoices sets the tracker cleared on Panic.
func WithVoices(v Voices) Option {
	return func(o *Orchestrator) {
		o.voices = v
	}
}

// WithResumeGate sets the gate opened by the first Play.
func WithResumeGate(g *instrument.ResumeGate) Option {
	return func(o *Orchestrator) {
		o.gate = g
	}
}

// WithEffects sets the effect chain applied by the first Play.
func WithEffects(fx instrument.Effects, sender instrument.EffectsSender) Option {
	return func(o *Orchestrator) {
		o.effects = &fx
		o.fxSender = sender
	}
}

// Orchestrator is safe for concurrent use. Selections and volumes are
// read fresh on every step.
type Orchestrator struct {
	mu    sync.RWMutex
	mixer MixerState

	registry *instrument.Registry
	sched    *sequencer.Scheduler
	bridge   Bridge
	voices   Voices
	gate     *instrument.ResumeGate
	effects  *instrument.Effects
	fxSender instrument.EffectsSender

	initOnce sync.Once
	states   *pubsub.Broker[PlayState]
}

// New wires the orchestrator as the scheduler's step handler.
func New(registry *instrument.Registry, sched *sequencer.Scheduler, bridge Bridge, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		mixer:    DefaultMixer(),
		registry: registry,
		sched:    sched,
		bridge:   bridge,
		states:   pubsub.NewBroker[PlayState](),
	}
	for _, opt := range opts {
		opt(o)
	}
	sched.SetHandler(o.HandleStep)
	return o
}

// HandleStep plays every active step of one tick.
func (o *Orchestrator) HandleStep(ctx context.Context, ev sequencer.StepEvent) {
	o.mu.RLock()
	mixer := o.mixer.Clone()
	o.mu.RUnlock()

	for _, t := range sequencer.Tracks {
		st, ok := ev.Active[t]
		if !ok {
			continue
		}
		vol := st.Velocity * mixer.Volumes[t] * mixer.Master
		if t.Percussive() {
			o.playDrum(ctx, mixer.DrumMachine, t, st, vol)
			continue
		}
		o.playMelodic(ctx, mixer, t, st, vol)
	}
}

func (o *Orchestrator) playDrum(ctx context.Context, id string, t sequencer.Track, st sequencer.Step, vol float64) {
	drums, ok := o.registry.Percussive(id)
	if !ok {
		log.Warn(log.CatOrch, "selected drum machine not registered", "id", id)
		return
	}
	if st.Accent {
		vol *= DrumAccent
	}
	switch t {
	case sequencer.Kick:
		drums.PlayKick(ctx, vol)
	case sequencer.Snare:
		drums.PlaySnare(ctx, vol)
	case sequencer.HiHat:
		drums.PlayHiHat(ctx, vol, false)
	case sequencer.Clap:
		drums.PlayClap(ctx, vol)
	}
}

func (o *Orchestrator) playMelodic(ctx context.Context, mixer MixerState, t sequencer.Track, st sequencer.Step, vol float64) {
	if st.Note == "" {
		return
	}
	id, duration := mixer.Synth, SynthDuration
	if t == sequencer.Bass {
		id, duration = mixer.BassSynth, BassDuration
	}
	synth, ok := o.registry.Melodic(id)
	if !ok {
		log.Warn(log.CatOrch, "selected synth not registered", "id", id)
		return
	}
	synth.PlayNote(ctx, st.Note, instrument.NoteOptions{
		Velocity: vol,
		Accent:   st.Accent,
		Slide:    st.Slide,
		Duration: duration,
	})
}

func (o *Orchestrator) selectIn(allowed []string, id string, field *string, role string) bool {
	if !slices.Contains(allowed, id) {
		log.Debug(log.CatOrch, "ignoring invalid selection", "role", role, "id", id)
		return false
	}
	if _, ok := o.registry.Lookup(id); !ok {
		log.Debug(log.CatOrch, "ignoring unregistered selection", "role", role, "id", id)
		return false
	}
	o.mu.Lock()
	*field = id
	o.mu.Unlock()
	log.Info(log.CatOrch, "instrument selected", "role", role, "id", id)
	return true
}

// SetDrumMachine selects "808" or "909". Other values are ignored.
func (o *Orchestrator) SetDrumMachine(id string) bool {
	return o.selectIn(DrumMachines, id, &o.mixer.DrumMachine, "drums")
}

// SetBassSynth selects the bass instrument. Invalid values are ignored.
func (o *Orchestrator) SetBassSynth(id string) bool {
	return o.selectIn(BassSynths, id, &o.mixer.BassSynth, "bass")
}

// SetSynth selects the lead instrument. Invalid values are ignored.
func (o *Orchestrator) SetSynth(id string) bool {
	return o.selectIn(Synths, id, &o.mixer.Synth, "synth")
}

// CycleBassSynth selects the next bass instrument and returns it.
func (o *Orchestrator) CycleBassSynth() string {
	o.mu.RLock()
	next := cycle(BassSynths, o.mixer.BassSynth)
	o.mu.RUnlock()
	o.SetBassSynth(next)
	return o.Mixer().BassSynth
}

// CycleSynth selects the next lead instrument and returns it.
func (o *Orchestrator) CycleSynth() string {
	o.mu.RLock()
	next := cycle(Synths, o.mixer.Synth)
	o.mu.RUnlock()
	o.SetSynth(next)
	return o.Mixer().Synth
}

func cycle(list []string, current string) string {
	i := slices.Index(list, current)
	return list[(i+1)%len(list)]
}

// SetTrackVolume clamps and stores a track volume. Unknown tracks are
// ignored.
func (o *Orchestrator) SetTrackVolume(t sequencer.Track, v float64) bool {
	if _, ok := sequencer.ParseTrack(string(t)); !ok {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Volumes[t] = clampUnit(v)
	return true
}

// SetMasterVolume clamps and stores the master volume, which scales every
// trigger on the host side.
func (o *Orchestrator) SetMasterVolume(v float64) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Master = clampUnit(v)
	return o.mixer.Master
}

// SetBPM changes the tempo. A running clock is restarted so the new
// interval applies at once.
func (o *Orchestrator) SetBPM(bpm float64) float64 {
	stored := o.sched.SetBPM(bpm)
	o.bridge.SetBPM(stored)
	if o.sched.Running() {
		o.sched.Stop()
		o.sched.Start()
		o.publish(true)
	}
	return stored
}

// SetSwing changes the swing amount, 0-100.
func (o *Orchestrator) SetSwing(swing float64) float64 {
	return o.sched.SetSwing(swing)
}

// initAudio resumes the engine once per session.
func (o *Orchestrator) initAudio() {
	o.initOnce.Do(func() {
		o.bridge.InitAudio()
		o.bridge.SetMasterVolume(1)
		if o.effects != nil && o.fxSender != nil {
			o.effects.Apply(o.fxSender)
		}
		if o.gate != nil {
			o.gate.Open()
		}
	})
}

// Play resumes audio on first use and starts the clock. A paused clock
// continues where it left off.
func (o *Orchestrator) Play() {
	o.initAudio()
	switch o.sched.State() {
	case sequencer.Running:
		return
	case sequencer.Paused:
		o.sched.Resume()
	default:
		o.sched.Start()
	}
	o.publish(true)
}

// Stop halts the clock and rewinds to step 0. Sounding notes ring out.
func (o *Orchestrator) Stop() {
	if o.sched.State() == sequencer.Stopped {
		return
	}
	o.sched.Stop()
	o.publish(false)
}

// Pause halts the clock and keeps the playhead for the next Play.
func (o *Orchestrator) Pause() {
	if !o.sched.Running() {
		return
	}
	o.sched.Pause()
	o.publish(false)
}

// PreviewDrum auditions one drum track on the selected drum machine,
// outside the sequencer. Reports false for melodic tracks or an
// unregistered machine.
func (o *Orchestrator) PreviewDrum(ctx context.Context, t sequencer.Track) bool {
	if !t.Percussive() {
		return false
	}
	o.initAudio()
	id := o.Mixer().DrumMachine
	drums, ok := o.registry.Percussive(id)
	if !ok {
		log.Warn(log.CatOrch, "selected drum machine not registered", "id", id)
		return false
	}
	switch t {
	case sequencer.Kick:
		drums.PlayKick(ctx, PreviewVelocity)
	case sequencer.Snare:
		drums.PlaySnare(ctx, PreviewVelocity)
	case sequencer.HiHat:
		drums.PlayHiHat(ctx, PreviewVelocity, false)
	case sequencer.Clap:
		drums.PlayClap(ctx, PreviewVelocity)
	}
	return true
}

// PreviewBass auditions note on the selected bass synth. A nil or empty
// note plays DefaultPreviewNote.
func (o *Orchestrator) PreviewBass(ctx context.Context, note any) bool {
	if note == nil || note == "" {
		note = DefaultPreviewNote
	}
	o.initAudio()
	id := o.Mixer().BassSynth
	synth, ok := o.registry.Melodic(id)
	if !ok {
		log.Warn(log.CatOrch, "selected synth not registered", "id", id)
		return false
	}
	synth.PlayNote(ctx, note, instrument.NoteOptions{
		Velocity: PreviewVelocity,
		Duration: PreviewDuration,
	})
	return true
}

// Toggle starts or stops playback and reports whether it is now playing.
func (o *Orchestrator) Toggle() bool {
	if o.sched.Running() {
		o.Stop()
		return false
	}
	o.Play()
	return true
}

// Panic stops the clock and asks every instrument to go silent. There is
// no acknowledgement from the engine.
func (o *Orchestrator) Panic() {
	wasRunning := o.sched.Running()
	o.sched.Stop()
	if o.voices != nil {
		o.voices.Clear()
	}
	o.registry.StopAll()
	o.bridge.StopAllNotes()
	log.Warn(log.CatOrch, "panic: all notes stopped")
	if wasRunning {
		o.publish(false)
	}
}

func (o *Orchestrator) publish(playing bool) {
	o.states.Publish(pubsub.PlayState, PlayState{
		Playing: playing,
		BPM:     o.sched.BPM(),
		Bank:    o.sched.Bank(),
	})
}

// PlayStates returns the broker on which play-state changes are published.
func (o *Orchestrator) PlayStates() *pubsub.Broker[PlayState] {
	return o.states
}

// Mixer returns a copy of the mixer, suitable for persisting.
func (o *Orchestrator) Mixer() MixerState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mixer.Clone()
}

// State returns a snapshot for display.
func (o *Orchestrator) State() Snapshot {
	snap := Snapshot{
		Playing: o.sched.Running(),
		Paused:  o.sched.Paused(),
		BPM:     o.sched.BPM(),
		Swing:   o.sched.Swing(),
		Bank:    o.sched.Bank(),
		Chain:   o.sched.Chain(),
		Step:    o.sched.CurrentStep(),
		Bar:     o.sched.Bar(),
		Mixer:   o.Mixer(),
	}
	if o.voices != nil {
		snap.Voices = o.voices.Stats()
	}
	return snap
}

// Close stops playback and closes the play-state broker.
func (o *Orchestrator) Close() {
	o.Stop()
	o.states.Close()
}
