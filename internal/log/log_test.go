package log

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatEntry(t *testing.T) {
	ts := time.Date(2026, 1, 2, 10, 45, 0, 0, time.UTC)

	tests := []struct {
		name   string
		fields []any
		want   string
	}{
		{
			name: "no fields",
			want: "2026-01-02T10:45:00 [INFO] [bridge] ready\n",
		},
		{
			name:   "pairs",
			fields: []any{"pending", 3, "state", "ready"},
			want:   "2026-01-02T10:45:00 [INFO] [bridge] ready pending=3 state=ready\n",
		},
		{
			name:   "orphan key",
			fields: []any{"pending", 3, "dangling"},
			want:   "2026-01-02T10:45:00 [INFO] [bridge] ready pending=3 dangling=<missing>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatEntry(ts, LevelInfo, CatBridge, "ready", tt.fields...))
		})
	}
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelInfo, ParseLevel("INFO"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelDebug, ParseLevel("verbose"))
}

func TestWrite_RespectsLevelAndEnabled(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	SetMinLevel(LevelWarn)
	Info(CatSched, "skipped")
	Warn(CatSched, "kept", "step", 4)
	require.NotContains(t, buf.String(), "skipped")
	require.Contains(t, buf.String(), "[WARN] [sched] kept step=4")

	SetEnabled(false)
	Error(CatSched, "silenced")
	require.NotContains(t, buf.String(), "silenced")
}

func TestErrorErr_AppendsError(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	ErrorErr(CatEngine, "spawn failed", errors.New("no such file"), "cmd", "engine")
	ErrorErr(CatEngine, "nil error", nil)

	require.Contains(t, buf.String(), "spawn failed cmd=engine error=no such file")
	require.Contains(t, buf.String(), "nil error error=<nil>")
}

func TestNewListener_ReceivesEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Info(CatOrch, "panic")

	event, ok := listener.Listen()().(LogEvent)
	require.True(t, ok)
	require.Contains(t, event.Payload, "[orch] panic")
}

func TestNewListener_NilWithoutLogger(t *testing.T) {
	defaultLogger = nil
	require.Nil(t, NewListener(context.Background()))
}

func TestLoggingWithoutInit_IsNoop(t *testing.T) {
	defaultLogger = nil
	require.NotPanics(t, func() {
		Debug(CatVoice, "nothing")
		SetEnabled(true)
		SetMinLevel(LevelError)
	})
}
