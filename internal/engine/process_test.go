package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haosfm/haos/internal/bridge"
)

const helperEnv = "HAOS_TEST_ENGINE_PROCESS"

// TestHelperEngineProcess is not a real test. It is the child side of
// TestProcess_RoundTrip, serving a loopback engine over stdio.
func TestHelperEngineProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	err := ServeEngine(context.Background(), os.Stdin, os.Stdout)
	if err != nil {
		os.Exit(2)
	}
	os.Exit(0)
}

func helperConfig() ProcessConfig {
	return ProcessConfig{
		Command:         os.Args[0],
		Args:            []string{"-test.run=^TestHelperEngineProcess$"},
		Env:             []string{helperEnv + "=1"},
		ShutdownTimeout: 5 * time.Second,
	}
}

func TestProcess_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a child process")
	}

	var b *bridge.Bridge
	wired := make(chan struct{})
	ready := make(chan struct{})
	levels := make(chan float64, 4)

	p, err := StartProcess(context.Background(), helperConfig(), func(raw []byte) {
		<-wired
		b.OnMessage(raw)
	})
	require.NoError(t, err)

	b = bridge.New(p)
	b.On(bridge.EventReady, func(map[string]any) { close(ready) })
	b.On(bridge.EventAudioLevel, func(payload map[string]any) {
		if db, ok := payload["db"].(float64); ok {
			levels <- db
		}
	})
	close(wired)

	select {
	case <-ready:
	case <-time.After(10 * time.Second):
		t.Fatal("engine process never became ready")
	}

	b.GetAudioLevel()
	select {
	case db := <-levels:
		require.InDelta(t, SilenceDB, db, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("no audioLevel event from engine process")
	}

	require.NoError(t, p.Close())
	require.NoError(t, p.Err())
}

func TestStartProcess_EmptyCommand(t *testing.T) {
	_, err := StartProcess(context.Background(), ProcessConfig{}, func([]byte) {})
	require.Error(t, err)
}

func TestStartProcess_MissingBinary(t *testing.T) {
	_, err := StartProcess(context.Background(), ProcessConfig{Command: "/nonexistent/haos-engine"}, func([]byte) {})
	require.Error(t, err)
}
