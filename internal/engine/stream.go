package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/log"
)

// maxLineSize bounds one JSON line. Waveform events carry arrays of a few
// hundred numbers, well under this.
const maxLineSize = 1 << 20

// ErrClosed is returned by Send after the stream has been closed.
var ErrClosed = errors.New("stream closed")

// Stream is a bridge.Transport that writes commands as newline-delimited
// JSON to w and reads newline-delimited JSON events from r.
type Stream struct {
	r io.Reader

	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewStream creates a stream transport over r and w.
func NewStream(r io.Reader, w io.Writer) *Stream {
	return &Stream{r: r, w: w}
}

// Send encodes cmd and writes it as a single line.
func (s *Stream) Send(_ context.Context, cmd bridge.Command) error {
	raw, err := bridge.EncodeCommand(cmd)
	if err != nil {
		return fmt.Errorf("encoding command %s: %w", cmd.Name, err)
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.w.Write(raw); err != nil {
		return fmt.Errorf("writing command %s: %w", cmd.Name, err)
	}
	return nil
}

// Serve reads event lines and passes each to emit until r is exhausted,
// ctx is cancelled, or a read fails. Blank lines are skipped; undecodable
// lines are passed through so the receiver can count and drop them.
func (s *Stream) Serve(ctx context.Context, emit EmitFunc) error {
	return scanLines(ctx, s.r, func(line []byte) {
		emit(line)
	})
}

// CloseWrite marks the stream closed for sending. It does not close the
// underlying writer.
func (s *Stream) CloseWrite() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// ServeEngine runs a loopback engine on the far side of a stream: command
// lines read from r are fed to the engine and its events are written to w
// as lines. It returns when r is exhausted or ctx is cancelled.
func ServeEngine(ctx context.Context, r io.Reader, w io.Writer, opts ...Option) error {
	var wmu sync.Mutex
	engine := NewLoopback(func(raw []byte) {
		wmu.Lock()
		defer wmu.Unlock()
		_, _ = w.Write(append(raw, '\n'))
	}, opts...)

	go engine.Run(ctx)
	defer engine.Stop()
	if err := engine.WaitForRunning(ctx); err != nil {
		return err
	}

	return scanLines(ctx, r, func(line []byte) {
		cmd, err := bridge.DecodeCommand(line)
		if err != nil {
			log.Warn(log.CatEngine, "dropping undecodable command", "len", len(line), "error", err)
			return
		}
		if err := engine.Send(ctx, cmd); err != nil {
			log.Warn(log.CatEngine, "engine rejected command", "command", cmd.Name, "error", err)
		}
	})
}

func scanLines(ctx context.Context, r io.Reader, fn func([]byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// scanner reuses its buffer
		cp := make([]byte, len(line))
		copy(cp, line)
		fn(cp)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}
