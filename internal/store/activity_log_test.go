package store

import (
	"strings"
	"testing"
	"time"
)

func TestActivityLog_NewestFirst(t *testing.T) {
	l := NewActivityLog(10, nil)

	l.Appendf("first")
	l.Appendf("second")
	l.Appendf("third")

	lines := l.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "third") || !strings.HasSuffix(lines[2], "first") {
		t.Errorf("expected newest-first order, got %v", lines)
	}
}

func TestActivityLog_Eviction(t *testing.T) {
	l := NewActivityLog(DefaultLogCapacity, nil)

	for i := 0; i < 60; i++ {
		l.Appendf("line %d", i)
	}

	lines := l.Lines()
	if len(lines) != DefaultLogCapacity {
		t.Fatalf("expected %d lines after overflow, got %d", DefaultLogCapacity, len(lines))
	}
	// Newest line kept at the front, oldest ten evicted from the back.
	if !strings.HasSuffix(lines[0], "line 59") {
		t.Errorf("expected newest line first, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[len(lines)-1], "line 10") {
		t.Errorf("expected line 10 as oldest survivor, got %q", lines[len(lines)-1])
	}
}

func TestActivityLog_Timestamp(t *testing.T) {
	l := NewActivityLog(5, nil)
	l.now = func() time.Time {
		return time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)
	}

	l.Appendf("hello %s", "world")

	lines := l.Lines()
	if lines[0] != "[13:04:05] hello world" {
		t.Errorf("unexpected line format: %q", lines[0])
	}
}

func TestActivityLog_Notify(t *testing.T) {
	var got []string
	l := NewActivityLog(5, func(line string) {
		got = append(got, line)
	})

	l.Appendf("event")

	if len(got) != 1 || !strings.HasSuffix(got[0], "event") {
		t.Errorf("expected notify callback with appended line, got %v", got)
	}
}

func TestActivityLog_Reset(t *testing.T) {
	l := NewActivityLog(5, nil)
	l.Appendf("something")

	l.Reset()

	if len(l.Lines()) != 0 {
		t.Errorf("expected empty log after reset, got %v", l.Lines())
	}
}

func TestActivityLog_LinesReturnsCopy(t *testing.T) {
	l := NewActivityLog(5, nil)
	l.Appendf("kept line")

	lines := l.Lines()
	lines[0] = "tampered"

	if l.Lines()[0] == "tampered" {
		t.Error("mutating the returned slice must not touch the log")
	}
}
