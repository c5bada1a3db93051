// Package engine provides engine peers for the bridge: an in-process
// loopback engine that speaks the full command/event vocabulary without
// producing audio, and a line-oriented JSON stream transport used to talk
// to an external engine process.
package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/queue"
)

// DefaultQueueCapacity is the default inbound command buffer, unbounded.
// The bridge flushes its pre-ready buffer from the Run goroutine, which
// cannot drain the queue at the same time.
const DefaultQueueCapacity = queue.Unbounded

// DefaultWaveformPoints is the length of emitted waveform arrays.
const DefaultWaveformPoints = 128

// MinStreamInterval bounds startWaveformUpdates.
const MinStreamInterval = 16 * time.Millisecond

// SilenceDB is the level reported when nothing is sounding.
const SilenceDB = -100.0

// levelDecay is the time constant of the synthetic output envelope.
const levelDecay = 300 * time.Millisecond

var (
	// ErrNotRunning is returned by Send before Run or after shutdown.
	ErrNotRunning = errors.New("engine not running")
	// ErrQueueFull is returned by Send when the inbound buffer is full.
	ErrQueueFull = errors.New("engine queue full")
)

// EmitFunc receives each encoded event. Normally bridge.OnMessage.
type EmitFunc func(raw []byte)

type handlerFunc func(cmd bridge.Command)

// Option configures a Loopback.
type Option func(*Loopback)

// WithQueueCapacity bounds the inbound command buffer. Zero or less is
// unbounded.
func WithQueueCapacity(capacity int) Option {
	return func(l *Loopback) {
		l.queueCapacity = capacity
	}
}

// WithReadyDelay delays the "ready" event after Run starts.
func WithReadyDelay(d time.Duration) Option {
	return func(l *Loopback) {
		l.readyDelay = d
	}
}

// WithWaveformPoints sets the waveform array length.
func WithWaveformPoints(n int) Option {
	return func(l *Loopback) {
		if n > 0 {
			l.points = n
		}
	}
}

// WithClock overrides time.Now for the level envelope.
func WithClock(now func() time.Time) Option {
	return func(l *Loopback) {
		l.now = now
	}
}

// Loopback is an in-process engine actor. Commands are processed one at a
// time in arrival order on the goroutine running Run; events are emitted
// from that same goroutine, so emission order follows processing order.
//
// The engine announces itself with "ready" once running. Its audio context
// starts suspended: triggers are silent until initAudio resumes it.
type Loopback struct {
	queue         *queue.FIFO[bridge.Command]
	wake          chan struct{}
	queueCapacity int
	handlers      map[string]handlerFunc
	emit          EmitFunc

	readyDelay time.Duration
	points     int
	now        func() time.Time

	// owned by the Run goroutine
	resumed     bool
	readyTimer  *time.Timer
	stream      *time.Ticker
	master      float64
	peak        float64
	peakAt      time.Time

	running  atomic.Bool
	started  atomic.Bool
	readyCh  chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	statsMu   sync.Mutex
	counts    map[string]int
	last      map[string]bridge.Command
	processed atomic.Int64
	emitted   atomic.Int64
}

// NewLoopback creates a loopback engine that emits events through emit.
func NewLoopback(emit EmitFunc, opts ...Option) *Loopback {
	l := &Loopback{
		queueCapacity: DefaultQueueCapacity,
		emit:          emit,
		points:        DefaultWaveformPoints,
		now:           time.Now,
		master:        1.0,
		wake:          make(chan struct{}, 1),
		readyCh:       make(chan struct{}),
		done:          make(chan struct{}),
		counts:        make(map[string]int),
		last:          make(map[string]bridge.Command),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = queue.New[bridge.Command](l.queueCapacity)

	l.handlers = map[string]handlerFunc{
		bridge.CmdInitAudio:            l.handleInitAudio,
		bridge.CmdSetMasterVolume:      l.handleMasterVolume,
		bridge.CmdStopAllNotes:         l.handleStopAll,
		bridge.CmdGetWaveform:          func(bridge.Command) { l.emitWaveform() },
		bridge.CmdGetAudioLevel:        func(bridge.Command) { l.emitLevel() },
		bridge.CmdStartWaveformUpdates: l.handleStartStream,
		bridge.CmdStopWaveformUpdates:  func(bridge.Command) { l.stopStream() },
	}
	return l
}

// SetEmitter replaces the event sink. Must be called before Run.
func (l *Loopback) SetEmitter(emit EmitFunc) {
	l.emit = emit
}

// Send implements bridge.Transport. It never blocks.
func (l *Loopback) Send(_ context.Context, cmd bridge.Command) error {
	if !l.running.Load() {
		return ErrNotRunning
	}
	if err := l.queue.Enqueue(cmd); err != nil {
		return ErrQueueFull
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run processes commands until ctx is cancelled or Stop is called.
func (l *Loopback) Run(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.running.Store(true)
	close(l.readyCh)
	l.readyTimer = time.NewTimer(l.readyDelay)

	defer func() {
		l.running.Store(false)
		l.stopStream()
		if l.readyTimer != nil {
			l.readyTimer.Stop()
		}
		close(l.done)
	}()

	log.Info(log.CatEngine, "loopback engine running", "queue_capacity", l.queueCapacity)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			l.drain(ctx)
		case <-timerC(l.readyTimer):
			l.readyTimer = nil
			l.emitEvent(bridge.EventReady, map[string]any{})
		case <-tickerC(l.stream):
			l.emitWaveform()
			l.emitLevel()
		}
	}
}

// WaitForRunning blocks until Run has started accepting commands.
func (l *Loopback) WaitForRunning(ctx context.Context) error {
	select {
	case <-l.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates Run and waits for it to exit.
func (l *Loopback) Stop() {
	l.stopOnce.Do(func() {
		if !l.started.Load() {
			return
		}
		<-l.readyCh
		l.cancel()
		<-l.done
	})
}

// drain processes queued commands in arrival order. Commands queued while
// draining, including a bridge flush triggered by an emitted event, are
// picked up by the same pass.
func (l *Loopback) drain(ctx context.Context) {
	for ctx.Err() == nil {
		cmd, ok := l.queue.Dequeue()
		if !ok {
			return
		}
		l.process(cmd)
	}
}

func (l *Loopback) process(cmd bridge.Command) {
	l.processed.Add(1)
	l.statsMu.Lock()
	l.counts[cmd.Name]++
	l.last[cmd.Name] = cmd
	l.statsMu.Unlock()

	if h, ok := l.handlers[cmd.Name]; ok {
		h(cmd)
		return
	}
	if bridge.IsTrigger(cmd.Name) {
		l.handleTrigger(cmd)
		return
	}
	log.Debug(log.CatEngine, "parameter command stored", "command", cmd.Name)
}

func (l *Loopback) handleInitAudio(bridge.Command) {
	if l.resumed {
		return
	}
	l.resumed = true
	log.Info(log.CatEngine, "audio context resumed")
}

func (l *Loopback) handleMasterVolume(cmd bridge.Command) {
	l.master = clamp01(cmd.Float("volume", 1.0))
}

func (l *Loopback) handleStopAll(bridge.Command) {
	l.peak = 0
}

func (l *Loopback) handleTrigger(cmd bridge.Command) {
	if !l.resumed {
		log.Debug(log.CatEngine, "audio context suspended, trigger silent", "command", cmd.Name)
		return
	}
	velocity := clamp01(cmd.Float("velocity", 1.0))
	if velocity*l.master >= l.level() {
		l.peak = velocity * l.master
		l.peakAt = l.now()
	}

	payload := map[string]any{"command": cmd.Name, "velocity": velocity}
	if f, ok := cmd.Param("frequency"); ok {
		payload["frequency"] = f
	}
	l.emitEvent(bridge.EventSoundPlayed, payload)
}

func (l *Loopback) handleStartStream(cmd bridge.Command) {
	interval := time.Duration(cmd.Float("interval", 50)) * time.Millisecond
	if interval < MinStreamInterval {
		interval = MinStreamInterval
	}
	l.stopStream()
	l.stream = time.NewTicker(interval)
}

func (l *Loopback) stopStream() {
	if l.stream != nil {
		l.stream.Stop()
		l.stream = nil
	}
}

// level is the current synthetic output amplitude in [0,1].
func (l *Loopback) level() float64 {
	if l.peak == 0 {
		return 0
	}
	elapsed := l.now().Sub(l.peakAt)
	return l.peak * math.Exp(-float64(elapsed)/float64(levelDecay))
}

func (l *Loopback) emitLevel() {
	db := SilenceDB
	if lv := l.level(); lv > 0 {
		db = math.Max(SilenceDB, 20*math.Log10(lv))
	}
	l.emitEvent(bridge.EventAudioLevel, map[string]any{"db": db})
}

func (l *Loopback) emitWaveform() {
	lv := l.level()
	data := make([]float64, l.points)
	for i := range data {
		phase := float64(i) / float64(l.points)
		data[i] = lv * math.Exp(-3*phase) * math.Sin(2*math.Pi*8*phase)
	}
	l.emitEvent(bridge.EventWaveform, map[string]any{"data": data})
}

func (l *Loopback) emitEvent(eventType string, payload map[string]any) {
	if l.emit == nil {
		return
	}
	raw, err := bridge.EncodeEvent(bridge.Event{Type: eventType, Payload: payload})
	if err != nil {
		log.ErrorErr(log.CatEngine, "encoding event", err, "type", eventType)
		return
	}
	l.emitted.Add(1)
	l.emit(raw)
}

// Received returns how many commands with the given name were processed.
func (l *Loopback) Received(name string) int {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.counts[name]
}

// Last returns the most recent processed command with the given name.
func (l *Loopback) Last(name string) (bridge.Command, bool) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	cmd, ok := l.last[name]
	return cmd, ok
}

// Processed returns the total number of processed commands.
func (l *Loopback) Processed() int64 {
	return l.processed.Load()
}

// Emitted returns the total number of emitted events.
func (l *Loopback) Emitted() int64 {
	return l.emitted.Load()
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
