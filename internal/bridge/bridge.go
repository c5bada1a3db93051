// Package bridge connects the host to the sandboxed audio engine.
//
// Commands flow host to engine through a Transport; events flow back
// through OnMessage. Until the engine announces itself with a "ready"
// event, commands are held in a FIFO buffer and flushed in insertion order
// on the transition. The transition is one-way.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/pubsub"
	"github.com/haosfm/haos/internal/queue"
)

// State is the readiness state of the bridge.
type State int

const (
	StateNotReady State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "not_ready"
}

// HandlerFunc handles the payload of one event type.
type HandlerFunc func(payload map[string]any)

// Option configures a Bridge.
type Option func(*Bridge)

// WithMiddleware adds delivery middleware. The first middleware wraps outermost.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(b *Bridge) {
		b.middlewares = append(b.middlewares, middlewares...)
	}
}

// WithContext sets the context passed to the transport on every delivery.
func WithContext(ctx context.Context) Option {
	return func(b *Bridge) {
		b.ctx = ctx
	}
}

// WithEventBuffer sets the per-subscriber buffer of the event broker.
func WithEventBuffer(size int) Option {
	return func(b *Bridge) {
		b.eventBuffer = size
	}
}

// Bridge is the host side of the host/engine actor pair.
type Bridge struct {
	// sendMu serializes the state machine, the buffer and delivery so that
	// a command sent after the flush can never overtake a buffered one.
	sendMu    sync.Mutex
	state     State
	buffer    *queue.FIFO[Command]
	transport Transport

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	ctx         context.Context
	middlewares []Middleware
	eventBuffer int
	events      *pubsub.Broker[Event]

	delivered atomic.Int64
	dropped   atomic.Int64
	malformed atomic.Int64
}

// New creates a Bridge in the NotReady state delivering through transport.
func New(transport Transport, opts ...Option) *Bridge {
	b := &Bridge{
		state:       StateNotReady,
		buffer:      queue.New[Command](queue.Unbounded),
		handlers:    make(map[string]HandlerFunc),
		ctx:         context.Background(),
		eventBuffer: 256,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.transport = ChainMiddleware(transport, b.middlewares...)
	b.events = pubsub.NewBrokerWithBuffer[Event](b.eventBuffer)
	return b
}

// Send issues a command. While NotReady the command is buffered and Send
// returns immediately; once Ready it is delivered in program order.
// Send never reports failure to the caller.
func (b *Bridge) Send(name string, params map[string]any) {
	cmd := Command{ID: uuid.NewString(), Name: name, Params: params}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	if b.state == StateNotReady {
		cmd.Buffered = true
		_ = b.buffer.Enqueue(cmd) // unbounded
		log.Debug(log.CatBridge, "engine not ready, queueing command",
			"command", name, "pending", b.buffer.Len())
		return
	}
	b.deliver(cmd)
}

// deliver must be called with sendMu held.
func (b *Bridge) deliver(cmd Command) {
	if err := b.transport.Send(b.ctx, cmd); err != nil {
		b.dropped.Add(1)
		return
	}
	b.delivered.Add(1)
}

// OnMessage handles one raw message from the engine. Undecodable input is
// logged and dropped. A "ready" event flips the bridge to Ready and flushes
// the buffer before the registered "ready" handler runs.
func (b *Bridge) OnMessage(raw []byte) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		b.malformed.Add(1)
		log.Warn(log.CatBridge, "dropping undecodable engine message",
			"len", len(raw), "error", err)
		return
	}
	b.Dispatch(ev)
}

// Dispatch routes an already-decoded event. Transports that decode on
// their own side call this directly.
func (b *Bridge) Dispatch(ev Event) {
	if ev.Type == EventReady {
		b.markReady()
	}

	b.events.Publish(pubsub.EngineEvent, ev)

	b.handlersMu.RLock()
	handler := b.handlers[ev.Type]
	b.handlersMu.RUnlock()
	if handler == nil {
		return
	}
	b.invoke(ev, handler)
}

func (b *Bridge) invoke(ev Event, handler HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatBridge, "event handler panicked", "type", ev.Type, "panic", r)
		}
	}()
	handler(ev.Payload)
}

func (b *Bridge) markReady() {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	if b.state == StateReady {
		return
	}
	b.state = StateReady

	pending := b.buffer.Drain()
	log.Info(log.CatBridge, "engine ready", "flushing", len(pending))
	for _, cmd := range pending {
		b.deliver(cmd)
	}
}

// On registers the handler for an event type, replacing any previous one.
// Events emitted before registration are not replayed.
func (b *Bridge) On(eventType string, handler HandlerFunc) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[eventType] = handler
	log.Debug(log.CatBridge, "registered handler", "type", eventType)
}

// Off removes the handler for an event type.
func (b *Bridge) Off(eventType string) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	delete(b.handlers, eventType)
	log.Debug(log.CatBridge, "unregistered handler", "type", eventType)
}

// State returns the current readiness state.
func (b *Bridge) State() State {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	return b.state
}

// IsReady reports whether the engine has announced readiness.
func (b *Bridge) IsReady() bool {
	return b.State() == StateReady
}

// Pending returns the number of buffered commands.
func (b *Bridge) Pending() int {
	return b.buffer.Len()
}

// Stats is a snapshot of bridge counters.
type Stats struct {
	State     State
	Pending   int
	Delivered int64
	Dropped   int64
	Malformed int64
}

// Stats returns the current counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		State:     b.State(),
		Pending:   b.Pending(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
		Malformed: b.malformed.Load(),
	}
}

// Events exposes every decoded engine event to additional observers.
func (b *Bridge) Events() *pubsub.Broker[Event] {
	return b.events
}

// Close releases the event broker. Pending commands are discarded.
func (b *Bridge) Close() {
	b.events.Close()
	if n := len(b.buffer.Drain()); n > 0 {
		log.Info(log.CatBridge, "discarding buffered commands on close", "count", n)
	}
}
