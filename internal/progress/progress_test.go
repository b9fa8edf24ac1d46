package progress

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(tr *Tracker, step time.Duration) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	tr.now = func() time.Time {
		t := base.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent  float64
		expected string
	}{
		{0, "▓░░░░░░░░░░░░░░░░░░░░░░░░░░░░░"},
		{50, "███████████████▓░░░░░░░░░░░░░░"},
		{100, "██████████████████████████████"},
	}
	for _, tt := range tests {
		if got := bar(tt.percent); got != tt.expected {
			t.Errorf("bar(%.0f) = %q, want %q", tt.percent, got, tt.expected)
		}
	}
	for _, p := range []float64{0.1, 33.3, 99.9} {
		if n := len([]rune(bar(p))); n != barWidth {
			t.Errorf("bar(%.1f) has %d runes", p, n)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{50 * time.Millisecond, "50ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1.5m"},
		{time.Hour, "1.0h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf, "gap", 2)
	fixedClock(tr, 10*time.Second)

	tr.Start()
	tr.Done("Gold Ring", "gap 93.00ex", nil)
	tr.Done("Ruby Ring", "", errors.New("HTTP 429"))
	tr.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", buf.String())
	}
	if lines[0] != "gap: 2 base types" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1/2 Gold Ring gap 93.00ex ETA 10.0s") {
		t.Errorf("first item = %q", lines[1])
	}
	if !strings.Contains(lines[2], "2/2 Ruby Ring failed: HTTP 429") || strings.Contains(lines[2], "ETA") {
		t.Errorf("second item = %q", lines[2])
	}
	if lines[3] != "gap: 1 done, 1 failed in 20.0s" {
		t.Errorf("summary = %q", lines[3])
	}

	done, failed := tr.Counts()
	if done != 2 || failed != 1 {
		t.Errorf("Counts() = %d, %d", done, failed)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New(nil, "batch", 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Done(fmt.Sprintf("item %d", i), "", nil)
		}(i)
	}
	wg.Wait()

	if done, _ := tr.Counts(); done != 50 {
		t.Errorf("done = %d, want 50", done)
	}
}
