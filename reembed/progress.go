package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultUnit labels the rate column.
const DefaultUnit = "chunks"

// ProgressTracker redraws one terminal line as work completes:
//
//	Progress: 120/480 (25.0%) - 38.2 chunks/s
//
// Nothing is written before Start. It is safe for concurrent use.
type ProgressTracker struct {
	mu       sync.Mutex
	out      io.Writer
	unit     string
	total    int
	every    int
	done     int
	reported int
	began    time.Time
}

// NewProgressTracker reports to out each time at least every more items
// have completed. An every below one reports on each change.
func NewProgressTracker(out io.Writer, total, every int) *ProgressTracker {
	return &ProgressTracker{out: out, unit: DefaultUnit, total: total, every: max(every, 1)}
}

// WithUnit relabels the rate column.
func (p *ProgressTracker) WithUnit(unit string) *ProgressTracker {
	p.mu.Lock()
	p.unit = unit
	p.mu.Unlock()
	return p
}

// Start zeroes the count and starts the clock. Calling it again restarts.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.began = time.Now()
	p.done, p.reported = 0, 0
}

// Update sets the completed count.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moveTo(done)
}

// Increment adds n to the completed count.
func (p *ProgressTracker) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moveTo(p.done + n)
}

func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish draws the line at 100% and ends it with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.began.IsZero() {
		return
	}
	p.done = p.total
	p.draw()
	fmt.Fprintln(p.out)
}

// Elapsed is zero until Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.began.IsZero() {
		return 0
	}
	return time.Since(p.began)
}

// moveTo requires p.mu.
func (p *ProgressTracker) moveTo(done int) {
	if p.began.IsZero() {
		return
	}
	p.done = min(done, p.total)
	if p.done-p.reported < p.every {
		return
	}
	p.draw()
	p.reported = p.done
}

func (p *ProgressTracker) draw() {
	var pct, rate float64
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}
	if secs := time.Since(p.began).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.out, "\rProgress: %d/%d (%.1f%%) - %.1f %s/s", p.done, p.total, pct, rate, p.unit)
}
