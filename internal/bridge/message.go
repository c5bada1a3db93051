package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent is returned by DecodeEvent for payloads that are not a
// JSON object with a non-empty "type".
var ErrMalformedEvent = errors.New("malformed event")

// Command is a one-way host to engine message.
type Command struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"command"`
	Params map[string]any `json:"params,omitempty"`

	// Buffered is set when the command waited in the pre-readiness buffer.
	Buffered bool `json:"-"`
}

// Param returns the named parameter and whether it was present.
func (c Command) Param(name string) (any, bool) {
	v, ok := c.Params[name]
	return v, ok
}

// Float returns a numeric parameter, or def when missing or not a number.
func (c Command) Float(name string, def float64) float64 {
	return toFloat(c.Params[name], def)
}

// Event is a one-way engine to host message.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Float returns a numeric payload field, or def when missing.
func (e Event) Float(name string, def float64) float64 {
	return toFloat(e.Payload[name], def)
}

// Floats returns a numeric array payload field such as waveform data.
func (e Event) Floats(name string) []float64 {
	raw, ok := e.Payload[name].([]any)
	if !ok {
		if fs, ok := e.Payload[name].([]float64); ok {
			return fs
		}
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		out = append(out, toFloat(v, 0))
	}
	return out
}

// EncodeCommand serializes a command to its wire form.
func EncodeCommand(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding command %s: %w", cmd.Name, err)
	}
	return data, nil
}

// DecodeCommand parses a wire command. Used by engine peers.
func DecodeCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("decoding command: %w", err)
	}
	if cmd.Name == "" {
		return Command{}, fmt.Errorf("decoding command: missing name")
	}
	return cmd, nil
}

// EncodeEvent serializes an event to its wire form.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding event %s: %w", ev.Type, err)
	}
	return data, nil
}

// DecodeEvent parses a wire event.
func DecodeEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return ev, nil
}

func toFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return def
}
