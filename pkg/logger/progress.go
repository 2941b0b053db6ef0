package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressReporter logs "<description>: n/total" lines while a run advances
type ProgressReporter struct {
	mu          sync.RWMutex
	total       int
	current     int
	description string
	interval    time.Duration
	startTime   time.Time
	lastUpdate  time.Time
	logger      *Logger
}

// NewProgressReporter creates a new progress reporter; a nil logger uses the global one
func NewProgressReporter(total int, description string, l *Logger) *ProgressReporter {
	if l == nil {
		l = GetLogger()
	}
	now := time.Now()
	return &ProgressReporter{
		total:       total,
		description: description,
		interval:    5 * time.Second,
		startTime:   now,
		lastUpdate:  now,
		logger:      l,
	}
}

// SetInterval changes how often intermediate progress is logged (0 logs every update)
func (pr *ProgressReporter) SetInterval(interval time.Duration) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.interval = interval
}

// Update increments the progress counter and optionally reports progress
func (pr *ProgressReporter) Update(increment int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current += increment
	now := time.Now()

	if now.Sub(pr.lastUpdate) >= pr.interval || pr.current >= pr.total {
		pr.reportProgress()
		pr.lastUpdate = now
	}
}

// Complete marks the progress as complete and reports final status
func (pr *ProgressReporter) Complete() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current = pr.total
	pr.reportProgress()
}

// reportProgress logs the current progress (must be called with lock held)
func (pr *ProgressReporter) reportProgress() {
	percentage := pr.percentage()
	elapsed := time.Since(pr.startTime)

	var eta string
	if pr.current > 0 && pr.current < pr.total {
		avgTimePerItem := elapsed / time.Duration(pr.current)
		remaining := time.Duration(pr.total-pr.current) * avgTimePerItem
		eta = fmt.Sprintf(" (ETA: %s)", remaining.Round(time.Second))
	}

	pr.logger.WithFields(map[string]interface{}{
		"progress":    fmt.Sprintf("%.1f%%", percentage),
		"current":     pr.current,
		"total":       pr.total,
		"elapsed":     elapsed.Round(time.Second).String(),
		"description": pr.description,
	}).Info(fmt.Sprintf("%s: %d/%d (%.1f%%)%s", pr.description, pr.current, pr.total, percentage, eta))
}

func (pr *ProgressReporter) percentage() float64 {
	if pr.total <= 0 {
		return 100
	}
	return float64(pr.current) / float64(pr.total) * 100
}

// GetProgress returns current progress information
func (pr *ProgressReporter) GetProgress() (current, total int, percentage float64) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return pr.current, pr.total, pr.percentage()
}
