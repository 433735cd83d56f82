package log

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// lockedBuffer guards a bytes.Buffer; tests read while the logger writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLog_FormatsFields(t *testing.T) {
	var buf lockedBuffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	Info(CatBridge, "published", "version", 7, "len", 42)
	out := buf.String()
	require.Contains(t, out, "[INFO] [bridge] published version=7 len=42")
}

func TestLog_OddFieldCount(t *testing.T) {
	var buf lockedBuffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	Warn(CatHost, "dangling", "orphan")
	require.Contains(t, buf.String(), "orphan=<missing>")
}

func TestLog_MinLevelFilters(t *testing.T) {
	var buf lockedBuffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	SetMinLevel(LevelWarn)
	Debug(CatLexer, "hidden")
	ErrorErr(CatDB, "boom", errors.New("disk full"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[ERROR] [db] boom error=disk full")
}

func TestLog_DisabledWritesNothing(t *testing.T) {
	var buf lockedBuffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	SetEnabled(false)
	Error(CatUI, "nope")
	require.Empty(t, buf.String())
}

func TestLog_ListenerReceivesEntries(t *testing.T) {
	var buf lockedBuffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewListener(ctx)
	require.NotNil(t, l)

	Info(CatViewer, "loaded", "segments", 3)
	msg := l.Listen()()
	ev, ok := msg.(LogEvent)
	require.True(t, ok)
	require.Contains(t, ev.Payload, "segments=3")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelInfo, ParseLevel("INFO"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelDebug, ParseLevel(""))
}

func TestLog_NoLoggerIsNoop(t *testing.T) {
	defaultLogger = nil
	require.NotPanics(t, func() { Info(CatConfig, "nothing") })
	require.Nil(t, NewListener(context.Background()))
}
