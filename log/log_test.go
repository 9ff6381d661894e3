package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	// Some sample logs from existing code.
	Infof("fetched key material %s (%d bytes)", "fhe-public-key-2048", sampleInt)
	Debugw("keyurl resolved", "publicKeyId", "abc123", "crs", "2048")
	Errorf("cannot reach relayer: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
		"bytes", sampleBytes,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelFiltering(t *testing.T) {
	buf := new(bytes.Buffer)
	logTestWriter = buf
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	Init(LogLevelWarn, logTestWriterName, nil)
	Debugw("hidden debug line")
	Infow("hidden info line")
	Warnw("visible warning", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("lines below the configured level were written: %q", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("warning line missing from output: %q", out)
	}
	if Level() != LogLevelWarn {
		t.Errorf("unexpected level %q", Level())
	}
}

func TestErrorOutput(t *testing.T) {
	logTestWriter = io.Discard
	errBuf := new(bytes.Buffer)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	Init(LogLevelDebug, logTestWriterName, errBuf)
	Infow("not an error")
	Errorw(errSample, "decryption request failed", "handles", 3)

	out := errBuf.String()
	if strings.Contains(out, "not an error") {
		t.Errorf("info line written to the error output: %q", out)
	}
	if !strings.Contains(out, "decryption request failed") || !strings.Contains(out, errSample.Error()) {
		t.Errorf("error line missing from the error output: %q", out)
	}
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
