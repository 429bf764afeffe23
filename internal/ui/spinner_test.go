package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestInactiveSpinnerIsSilent(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "fetching", false)
	s.Start()
	s.Stop()
	if buf.Len() != 0 {
		t.Fatalf("inactive spinner wrote %q", buf.String())
	}
}

func TestSpinnerClearsLineOnStop(t *testing.T) {
	var buf syncBuffer
	s := newSpinner(&buf, "pushing", true)
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "pushing") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Fatalf("expected line clear at end, got %q", out)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
