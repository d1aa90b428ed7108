package background

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RateReporter writes a one-line running tally of an open-ended scan.
// Unlike a bounded progress bar it has no total; it reports pages scanned,
// throughput and matches.
type RateReporter struct {
	writer         io.Writer
	reportInterval int64
	scanned        int64
	matches        int
	lastReported   int64
	startTime      time.Time
	started        bool
	now            func() time.Time
	mu             sync.Mutex
}

// NewRateReporter creates a reporter that writes to writer every
// reportInterval pages.
func NewRateReporter(writer io.Writer, reportInterval int64) *RateReporter {
	return &RateReporter{
		writer:         writer,
		reportInterval: max(reportInterval, 1),
		now:            time.Now,
	}
}

// Start resets the tally and the clock.
func (r *RateReporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = r.now()
	r.started = true
	r.scanned = 0
	r.matches = 0
	r.lastReported = 0
}

// AddPages records delta newly scanned pages.
func (r *RateReporter) AddPages(delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	r.scanned += delta
	if r.scanned-r.lastReported >= r.reportInterval {
		r.report()
		r.lastReported = r.scanned
	}
}

// AddMatches records delta new matches. Matches do not trigger a report.
func (r *RateReporter) AddMatches(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		r.matches += delta
	}
}

// Finish writes the final tally followed by a newline.
func (r *RateReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	r.report()
	fmt.Fprintln(r.writer)
	r.started = false
}

// Scanned returns the pages recorded since Start.
func (r *RateReporter) Scanned() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanned
}

// report must be called with the lock held.
func (r *RateReporter) report() {
	rate := 0.0
	if elapsed := r.now().Sub(r.startTime).Seconds(); elapsed > 0 {
		rate = float64(r.scanned) / elapsed
	}
	fmt.Fprintf(r.writer, "\rScanned: %d pages (%.1f pages/s) - %d matches",
		r.scanned, rate, r.matches)
}
