package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/log"
)

// DefaultShutdownTimeout is how long Close waits for the process to exit
// after closing its stdin before killing it.
const DefaultShutdownTimeout = 2 * time.Second

// ProcessConfig describes an external engine process.
type ProcessConfig struct {
	Command         string
	Args            []string
	Env             []string
	ShutdownTimeout time.Duration
}

// Process is an engine running as a child process, spoken to over its
// stdin and stdout with newline-delimited JSON. Stderr is forwarded to
// the log.
type Process struct {
	cfg    ProcessConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stream *Stream

	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
}

// StartProcess launches the engine process. Events are delivered to emit
// from a reader goroutine until the process exits or ctx is cancelled.
func StartProcess(ctx context.Context, cfg ProcessConfig, emit EmitFunc) (*Process, error) {
	if cfg.Command == "" {
		return nil, errors.New("engine command is empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	cmd := exec.Command(cfg.Command, cfg.Args...) //nolint:gosec // G204: engine command comes from user config
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine %s: %w", cfg.Command, err)
	}
	log.Info(log.CatEngine, "engine process started", "command", cfg.Command, "pid", cmd.Process.Pid)

	p := &Process{
		cfg:    cfg,
		cmd:    cmd,
		stdin:  stdin,
		stream: NewStream(stdout, stdin),
		done:   make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		p.forwardStderr(stderr)
	}()
	go func() {
		defer readers.Done()
		if err := p.stream.Serve(ctx, emit); err != nil && !errors.Is(err, context.Canceled) {
			log.ErrorErr(log.CatEngine, "engine output stream failed", err)
		}
	}()

	go func() {
		// Wait must not run before the pipes have been drained.
		readers.Wait()
		p.waitErr = cmd.Wait()
		log.Info(log.CatEngine, "engine process exited", "error", p.waitErr)
		close(p.done)
	}()

	return p, nil
}

// Send implements bridge.Transport.
func (p *Process) Send(ctx context.Context, cmd bridge.Command) error {
	return p.stream.Send(ctx, cmd)
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the process exit error. Valid after Done is closed.
func (p *Process) Err() error {
	<-p.done
	return p.waitErr
}

// Close closes the engine's stdin and waits for it to exit, killing it if
// it outlives the shutdown timeout.
func (p *Process) Close() error {
	p.stopOnce.Do(func() {
		p.stream.CloseWrite()
		_ = p.stdin.Close()

		select {
		case <-p.done:
		case <-time.After(p.cfg.ShutdownTimeout):
			log.Warn(log.CatEngine, "engine did not exit, killing", "timeout", p.cfg.ShutdownTimeout)
			_ = p.cmd.Process.Kill()
			<-p.done
		}
	})
	return nil
}

func (p *Process) forwardStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Warn(log.CatEngine, "engine stderr", "line", scanner.Text())
	}
}
