// Package pubsub provides a generic publish/subscribe event system used to
// fan scheduler ticks, engine events, play-state changes and log lines out
// to observers such as the monitor.
package pubsub

import (
	"context"
	"time"
)

// EventType names the kind of event being published.
type EventType string

const (
	// StepTick is published by the scheduler after each dispatched step.
	StepTick EventType = "step"
	// BeatTick is published on every quarter note (every 4th step).
	BeatTick EventType = "beat"
	// BarTick is published when the playhead wraps to step 0.
	BarTick EventType = "bar"
	// EngineEvent carries a decoded event received from the engine.
	EngineEvent EventType = "engine"
	// PlayState is published when playback starts or stops.
	PlayState EventType = "playstate"
	// LogEntry carries a formatted log line.
	LogEntry EventType = "log"
	// Reloaded is published when an on-disk resource was reloaded.
	Reloaded EventType = "reloaded"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
