package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Indicator shows batch progress for long-running set and card loops.
type Indicator struct {
	enabled    bool
	message    string
	total      int
	current    int
	startTime  time.Time
	lastUpdate time.Time
}

// WithTotal creates an indicator for a loop with a known item count.
func WithTotal(message string, total int, quiet bool) *Indicator {
	return &Indicator{
		enabled:   !quiet,
		message:   message,
		total:     total,
		startTime: time.Now(),
	}
}

// Start begins the progress indication.
func (p *Indicator) Start() {
	if !p.enabled {
		return
	}
	p.startTime = time.Now()
	p.lastUpdate = p.startTime
	fmt.Fprintf(os.Stderr, "%s...\n", p.message)
}

// Update sets the current position and redraws the bar. Redraws are
// throttled to avoid flickering.
func (p *Indicator) Update(current int) {
	if !p.enabled {
		return
	}

	p.current = current
	now := time.Now()
	if now.Sub(p.lastUpdate) < 100*time.Millisecond && current < p.total {
		return
	}
	p.lastUpdate = now

	elapsed := now.Sub(p.startTime)
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(current) / float64(p.total) * 100
	}

	var eta string
	if current > 0 && current < p.total {
		rate := float64(current) / elapsed.Seconds()
		remaining := float64(p.total-current) / rate
		eta = fmt.Sprintf(" ETA: %s", formatDuration(time.Duration(remaining)*time.Second))
	}

	fmt.Fprintf(os.Stderr, "\r%s [%s] %d/%d (%.1f%%)%s",
		p.message, bar(percentage), current, p.total, percentage, eta)
}

// Finish completes the progress indication.
func (p *Indicator) Finish() {
	if !p.enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s done: %d items in %s\n",
		p.message, p.current, formatDuration(time.Since(p.startTime)))
}

func bar(percentage float64) string {
	const width = 30
	filled := int(percentage / 100.0 * width)

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			b.WriteString("█")
		case i == filled && percentage < 100:
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
