package sequencer

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/pubsub"
)

// Tempo bounds in BPM.
const (
	MinBPM     = 40.0
	MaxBPM     = 300.0
	DefaultBPM = 120.0
)

// State is the transport state.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// StepEvent is handed to the StepHandler for every tick.
type StepEvent struct {
	Step   int
	Bar    int
	Bank   string
	Active map[Track]Step
}

// StepHandler plays the active steps of one tick. It runs on the clock
// goroutine; ctx is cancelled when the scheduler stops.
type StepHandler func(ctx context.Context, ev StepEvent)

// Tick is what observers and subscribers see after each step.
type Tick struct {
	Step   int
	Bar    int
	Bank   string
	Active int
	At     time.Time
}

// Observer receives ticks.
type Observer func(Tick)

// IntervalFor returns the 16th-note step interval at bpm.
func IntervalFor(bpm float64) time.Duration {
	return time.Duration(60 / bpm / 4 * float64(time.Second))
}

// ClampBPM limits bpm to [MinBPM, MaxBPM].
func ClampBPM(bpm float64) float64 {
	if math.IsNaN(bpm) {
		return DefaultBPM
	}
	return math.Max(MinBPM, math.Min(MaxBPM, bpm))
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSteps sets the pattern length.
func WithSteps(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.steps = n
		}
	}
}

// WithBPM sets the initial tempo.
func WithBPM(bpm float64) Option {
	return func(s *Scheduler) {
		s.bpm = ClampBPM(bpm)
	}
}

// WithSwing sets the initial swing amount, 0-100.
func WithSwing(swing float64) Option {
	return func(s *Scheduler) {
		s.swing = clampSwing(swing)
	}
}

// WithHandler sets the StepHandler.
func WithHandler(h StepHandler) Option {
	return func(s *Scheduler) {
		s.handler = h
	}
}

// Scheduler is the step clock. Ticks land on start + k*interval; a tick
// that runs late by more than one interval skips the missed deadlines
// rather than replaying them.
type Scheduler struct {
	mu          sync.Mutex
	steps       int
	banks       map[string]Pattern
	bank        string
	chain       []string
	chainPos    int
	bpm         float64
	swing       float64
	state       State
	currentStep int
	bar         int
	interval    time.Duration
	handler     StepHandler

	onStep []Observer
	onBeat []Observer
	onBar  []Observer
	onStop []func()

	ticks  *pubsub.Broker[Tick]
	cancel context.CancelFunc
	done   chan struct{}
	missed int64
}

// NewScheduler creates a stopped scheduler with four empty banks.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		steps: DefaultSteps,
		bpm:   DefaultBPM,
		bank:  Banks[0],
		ticks: pubsub.NewBroker[Tick](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.banks = make(map[string]Pattern, len(Banks))
	for _, b := range Banks {
		s.banks[b] = NewPattern(s.steps)
	}
	s.interval = IntervalFor(s.bpm)
	return s
}

// SetHandler replaces the StepHandler. Takes effect on the next tick.
func (s *Scheduler) SetHandler(h StepHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start resets the playhead to step 0, fixes the interval from the
// current tempo and begins ticking. No-op while running. A paused clock
// starts over; use Resume to continue from the paused position.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return
	}
	s.resetLocked()
	s.startLocked()
	log.Info(log.CatSched, "scheduler started", "bpm", s.bpm, "interval", s.interval, "bank", s.bank)
}

// Resume continues a paused clock from the step after the last one
// played. Any other state behaves like Start.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Running:
		return
	case Stopped:
		s.resetLocked()
	}
	s.startLocked()
	log.Info(log.CatSched, "scheduler resumed", "step", s.currentStep, "bar", s.bar, "bank", s.bank)
}

func (s *Scheduler) resetLocked() {
	s.currentStep = 0
	s.bar = 0
	s.chainPos = 0
	if len(s.chain) > 0 {
		s.bank = s.chain[0]
	}
}

func (s *Scheduler) startLocked() {
	s.state = Running
	s.interval = IntervalFor(s.bpm)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, time.Now(), s.interval, s.done)
}

// halt cancels the clock and waits for an in-flight tick. Reports false if
// the clock was not running.
func (s *Scheduler) halt(next State) bool {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return false
	}
	s.state = next
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return true
}

// Stop halts the clock, waits for an in-flight tick to finish and resets
// the playhead to step 0. Already issued triggers keep sounding. Stopping
// a paused clock rewinds it. No-op while stopped. Must not be called
// from a StepHandler or observer.
func (s *Scheduler) Stop() {
	if !s.halt(Stopped) {
		s.mu.Lock()
		if s.state != Paused {
			s.mu.Unlock()
			return
		}
		s.state = Stopped
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.state == Stopped {
		s.resetLocked()
	}
	onStop := slices.Clone(s.onStop)
	s.mu.Unlock()
	log.Info(log.CatSched, "scheduler stopped")

	for _, fn := range onStop {
		fn()
	}
}

// Pause halts the clock but keeps the playhead, bar count and chain
// position for Resume. OnStop callbacks do not run. No-op unless running.
func (s *Scheduler) Pause() {
	if !s.halt(Paused) {
		return
	}
	log.Info(log.CatSched, "scheduler paused", "step", s.CurrentStep(), "bar", s.Bar())
}

// Close stops the scheduler and closes the tick broker.
func (s *Scheduler) Close() {
	s.Stop()
	s.ticks.Close()
}

func (s *Scheduler) run(ctx context.Context, start time.Time, interval time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for k := 0; ; {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.tick(ctx, interval)

		k++
		next := start.Add(time.Duration(k) * interval)
		if late := time.Since(next); late > interval {
			skip := int(late / interval)
			k += skip
			next = start.Add(time.Duration(k) * interval)
			s.mu.Lock()
			s.missed += int64(skip)
			s.mu.Unlock()
			log.Warn(log.CatSched, "scheduler fell behind, skipping deadlines", "skipped", skip)
		}
		timer.Reset(time.Until(next))
	}
}

func (s *Scheduler) tick(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	step := s.currentStep
	bar := s.bar
	bank := s.bank
	pattern := s.banks[bank]
	active := make(map[Track]Step)
	for _, t := range Tracks {
		if st := pattern[t][step]; st.Active {
			active[t] = st
		}
	}
	swing := s.swing
	handler := s.handler
	s.mu.Unlock()

	if step%2 == 1 && swing > 0 {
		delay := time.Duration(swing / 100 * float64(interval) / 2)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
	if ctx.Err() != nil {
		return
	}

	if handler != nil && len(active) > 0 {
		handler(ctx, StepEvent{Step: step, Bar: bar, Bank: bank, Active: active})
	}

	s.mu.Lock()
	s.currentStep = (step + 1) % s.steps
	if s.currentStep == 0 {
		s.bar++
		s.advanceChainLocked()
	}
	onStep := slices.Clone(s.onStep)
	onBeat := slices.Clone(s.onBeat)
	onBar := slices.Clone(s.onBar)
	s.mu.Unlock()

	tk := Tick{Step: step, Bar: bar, Bank: bank, Active: len(active), At: time.Now()}
	for _, fn := range onStep {
		fn(tk)
	}
	s.ticks.Publish(pubsub.StepTick, tk)
	if step%4 == 0 {
		for _, fn := range onBeat {
			fn(tk)
		}
		s.ticks.Publish(pubsub.BeatTick, tk)
	}
	if step == 0 {
		for _, fn := range onBar {
			fn(tk)
		}
		s.ticks.Publish(pubsub.BarTick, tk)
	}
}

func (s *Scheduler) advanceChainLocked() {
	if len(s.chain) == 0 {
		return
	}
	s.chainPos = (s.chainPos + 1) % len(s.chain)
	s.bank = s.chain[s.chainPos]
}

// OnStep registers an observer called after every tick.
func (s *Scheduler) OnStep(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStep = append(s.onStep, fn)
}

// OnBeat registers an observer called on every 4th step.
func (s *Scheduler) OnBeat(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBeat = append(s.onBeat, fn)
}

// OnBar registers an observer called on step 0.
func (s *Scheduler) OnBar(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBar = append(s.onBar, fn)
}

// OnStop registers a callback run after the clock has stopped.
func (s *Scheduler) OnStop(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStop = append(s.onStop, fn)
}

// Ticks returns the broker on which step, beat and bar ticks are published.
func (s *Scheduler) Ticks() *pubsub.Broker[Tick] {
	return s.ticks
}

// State returns the transport state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether the clock is ticking.
func (s *Scheduler) Running() bool {
	return s.State() == Running
}

// Paused reports whether the clock is paused.
func (s *Scheduler) Paused() bool {
	return s.State() == Paused
}

// CurrentStep is the next step to play.
func (s *Scheduler) CurrentStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStep
}

// Bar counts completed passes through the pattern since Start. Stop resets
// it.
func (s *Scheduler) Bar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bar
}

// Steps returns the pattern length.
func (s *Scheduler) Steps() int {
	return s.steps
}

// Missed counts deadlines skipped because the clock fell behind.
func (s *Scheduler) Missed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missed
}

// BPM returns the configured tempo.
func (s *Scheduler) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// SetBPM clamps and stores the tempo, returning the stored value. A
// running clock keeps its interval until the next Start.
func (s *Scheduler) SetBPM(bpm float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = ClampBPM(bpm)
	return s.bpm
}

// IntervalMs is the step interval in milliseconds: the one fixed at Start
// while running, otherwise the one the current tempo would give.
func (s *Scheduler) IntervalMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return float64(s.interval) / float64(time.Millisecond)
	}
	return 60 / s.bpm / 4 * 1000
}

// Swing returns the swing amount, 0-100.
func (s *Scheduler) Swing() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swing
}

// SetSwing clamps and stores the swing amount. Applies immediately.
func (s *Scheduler) SetSwing(swing float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swing = clampSwing(swing)
	return s.swing
}

func clampSwing(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// Bank returns the bank currently playing or being edited.
func (s *Scheduler) Bank() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank
}

// SwitchBank selects the bank to edit and play.
func (s *Scheduler) SwitchBank(name string) error {
	if !ValidBank(name) {
		return fmt.Errorf("%w: %q", ErrUnknownBank, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank = name
	return nil
}

// CopyBank copies one bank over another.
func (s *Scheduler) CopyBank(from, to string) error {
	if !ValidBank(from) || !ValidBank(to) {
		return fmt.Errorf("%w: %q -> %q", ErrUnknownBank, from, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[to] = s.banks[from].Clone()
	return nil
}

// ClearBank empties a bank.
func (s *Scheduler) ClearBank(name string) error {
	if !ValidBank(name) {
		return fmt.Errorf("%w: %q", ErrUnknownBank, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[name] = NewPattern(s.steps)
	return nil
}

// SetChain sets the bank play order; invalid names are dropped. An empty
// chain disables chaining. While running or paused the chain takes over
// at the next bar.
func (s *Scheduler) SetChain(banks []string) []string {
	chain := make([]string, 0, len(banks))
	for _, b := range banks {
		if ValidBank(b) {
			chain = append(chain, b)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(chain) == 0 {
		s.chain = nil
		return nil
	}
	s.chain = chain
	s.chainPos = len(chain) - 1
	if s.state == Stopped {
		s.chainPos = 0
		s.bank = chain[0]
	}
	return slices.Clone(chain)
}

// Chain returns the bank play order.
func (s *Scheduler) Chain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chain)
}

// Pattern returns a copy of the current bank.
func (s *Scheduler) Pattern() Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banks[s.bank].Clone()
}

// BankPattern returns a copy of a bank.
func (s *Scheduler) BankPattern(name string) (Pattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.banks[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// SetPattern replaces the current bank. Tracks are padded or truncated to
// the pattern length.
func (s *Scheduler) SetPattern(p Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[s.bank] = p.normalized(s.steps)
}

func (s *Scheduler) checkStep(t Track, i int) error {
	if _, ok := ParseTrack(string(t)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrack, t)
	}
	if i < 0 || i >= s.steps {
		return fmt.Errorf("%w: %d", ErrStepRange, i)
	}
	return nil
}

// ToggleStep flips a step of the current bank and returns its new state.
func (s *Scheduler) ToggleStep(t Track, i int) (bool, error) {
	if err := s.checkStep(t, i); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &s.banks[s.bank][t][i]
	st.Active = !st.Active
	if st.Active && st.Velocity == 0 {
		st.Velocity = DefaultVelocity
	}
	return st.Active, nil
}

// SetStep replaces a step of the current bank. Velocity is clamped to 0-1.
func (s *Scheduler) SetStep(t Track, i int, st Step) error {
	if err := s.checkStep(t, i); err != nil {
		return err
	}
	st.Velocity = math.Max(0, math.Min(1, st.Velocity))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[s.bank][t][i] = st
	return nil
}

// Step returns a step of the current bank.
func (s *Scheduler) Step(t Track, i int) (Step, error) {
	if err := s.checkStep(t, i); err != nil {
		return Step{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banks[s.bank][t][i], nil
}

// ClearAll empties the current bank.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[s.bank] = NewPattern(s.steps)
}

// LoadPreset writes a built-in preset into the current bank.
func (s *Scheduler) LoadPreset(name string) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.apply(s.banks[s.bank])
	log.Info(log.CatSched, "preset loaded", "preset", name, "bank", s.bank)
	return nil
}
