// Package feature provides rolling per-caller behavioral feature extraction.
package feature

import (
	"sync"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

// Extractor maintains a bounded rolling window of CDRs per caller and
// derives the fixed-size feature vector from it. Windows are created on
// first CDR and live for the process lifetime.
type Extractor struct {
	mu       sync.RWMutex
	windows  map[string][]domain.CDR
	capacity int
}

// NewExtractor creates an extractor with the given per-caller window
// capacity.
func NewExtractor(capacity int) *Extractor {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Extractor{
		windows:  make(map[string][]domain.CDR),
		capacity: capacity,
	}
}

// Add appends a CDR to the caller's window, dropping the oldest entries
// once the window exceeds capacity.
func (e *Extractor) Add(callerID string, cdr domain.CDR) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := append(e.windows[callerID], cdr)
	if len(w) > e.capacity {
		w = w[len(w)-e.capacity:]
	}
	e.windows[callerID] = w
}

// Extract computes the feature vector over the caller's stored window.
// Unknown or empty callers yield the zero vector.
func (e *Extractor) Extract(callerID string) domain.FeatureVector {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := e.windows[callerID]
	if len(records) == 0 {
		return domain.FeatureVector{}
	}

	var totalDuration float64
	nightCalls := 0
	origins := make(map[string]struct{})
	targets := make(map[string]struct{})

	for _, r := range records {
		totalDuration += r.Duration
		if isNightHour(r.Timestamp) {
			nightCalls++
		}
		origins[r.OriginRegion] = struct{}{}
		targets[r.TargetRegion] = struct{}{}
	}

	total := float64(len(records))
	return domain.FeatureVector{
		AvgDuration:   totalDuration / total,
		TotalCalls:    total,
		NightRatio:    float64(nightCalls) / total,
		OriginRegions: float64(len(origins)),
		TargetRegions: float64(len(targets)),
	}
}

// Stats returns the caller's window projection used by number lookups.
func (e *Extractor) Stats(callerID string) domain.CallerStats {
	fv := e.Extract(callerID)

	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := domain.CallerStats{
		TotalCalls:          int(fv.TotalCalls),
		AvgDuration:         fv.AvgDuration,
		NightCallRatio:      fv.NightRatio,
		UniqueOriginRegions: int(fv.OriginRegions),
		UniqueTargetRegions: int(fv.TargetRegions),
	}

	var last time.Time
	for _, r := range e.windows[callerID] {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	if !last.IsZero() {
		stats.LastCall = last.Format(time.RFC3339)
	}

	return stats
}

// WindowSize returns the number of CDRs currently stored for a caller.
func (e *Extractor) WindowSize(callerID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.windows[callerID])
}

// Window returns a copy of the caller's stored CDRs in arrival order.
func (e *Extractor) Window(callerID string) []domain.CDR {
	e.mu.RLock()
	defer e.mu.RUnlock()

	w := e.windows[callerID]
	out := make([]domain.CDR, len(w))
	copy(out, w)
	return out
}

// Night window: 22:00 through 05:59.
func isNightHour(ts time.Time) bool {
	h := ts.Hour()
	return h >= 22 || h < 6
}
