// Package progress reports batch analysis progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Tracker counts finished items of a batch. Workers call Done concurrently.
type Tracker struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int
	done    int
	failed  int
	started time.Time
	now     func() time.Time
}

// New returns a tracker writing to w. A nil w silences it.
func New(w io.Writer, label string, total int) *Tracker {
	if w == nil {
		w = io.Discard
	}
	return &Tracker{w: w, label: label, total: total, now: time.Now, started: time.Now()}
}

// Start prints the header line and resets the clock.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = t.now()
	fmt.Fprintf(t.w, "%s: %d base types\n", t.label, t.total)
}

// Done records one finished item with a short status, or err on failure.
func (t *Tracker) Done(item, status string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done++
	if err != nil {
		t.failed++
		status = "failed: " + err.Error()
	}

	line := fmt.Sprintf("[%s] %d/%d %s", bar(t.percent()), t.done, t.total, item)
	if status != "" {
		line += " " + status
	}
	if eta := t.eta(); eta != "" {
		line += " ETA " + eta
	}
	fmt.Fprintln(t.w, line)
}

// Finish prints the summary line.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s: %d done, %d failed in %s\n",
		t.label, t.done-t.failed, t.failed, formatDuration(t.now().Sub(t.started)))
}

// Counts returns finished and failed items so far.
func (t *Tracker) Counts() (done, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done, t.failed
}

func (t *Tracker) percent() float64 {
	if t.total <= 0 {
		return 0
	}
	return min(float64(t.done)/float64(t.total)*100, 100)
}

func (t *Tracker) eta() string {
	if t.done == 0 || t.done >= t.total {
		return ""
	}
	per := t.now().Sub(t.started) / time.Duration(t.done)
	return formatDuration(per * time.Duration(t.total-t.done))
}

func bar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			b.WriteString("█")
		case i == filled && percent < 100:
			b.WriteString("▓")
		default:
			b.WriteString("░")
		}
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
