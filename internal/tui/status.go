package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StatusWriter prints a spinning status line to a writer. It runs in
// the background and updates the current phase text in place. Single-crate
// commands use it while cargo and cargo_embargo run.
type StatusWriter struct {
	w          io.Writer
	mu         sync.Mutex
	message    string
	phaseStart time.Time
	done       chan struct{}
	stopped    bool
}

// NewStatusWriter starts a background spinner that renders the current
// status message to w.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:          w,
		phaseStart: time.Now(),
		done:       make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Update changes the status message shown next to the spinner and resets
// the phase timer so elapsed time restarts from zero.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.phaseStart = time.Now()
	sw.mu.Unlock()
}

// Write shows the last non-empty line of p as the status message, so the
// writer can stand in for a progress log.
func (sw *StatusWriter) Write(p []byte) (int, error) {
	lines := strings.Split(strings.TrimRight(string(p), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			sw.Update(line)
			break
		}
	}
	return len(p), nil
}

// Stop clears the status line and stops the spinner.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	// Clear the status line.
	fmt.Fprintf(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	frames := spinner.Dot.Frames
	tick := 0
	ticker := time.NewTicker(spinner.Dot.FPS)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			msg := sw.message
			start := sw.phaseStart
			sw.mu.Unlock()

			frame := frames[tick%len(frames)]
			tick++
			elapsed := time.Since(start)
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", frame, msg, formatElapsed(elapsed))
		}
	}
}

// formatElapsed formats a duration for display in the status line.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
