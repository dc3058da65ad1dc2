package domain

import (
	"time"
)

// Alert severity levels, ordered by urgency.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
)

// Alert status values. The only transition is Open -> Resolved.
const (
	AlertStatusOpen     = "Open"
	AlertStatusResolved = "Resolved"
)

// Alert is a severity-ranked notification raised by the alert ladder.
// Alerts live in a bounded ring; the oldest is evicted on overflow.
type Alert struct {
	ID          int64     `json:"id"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ClusterID   string    `json:"cluster_id,omitempty"`
	CallerID    string    `json:"caller_id,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// Time is a relative label ("42s ago") computed at read time from
	// CreatedAt. Never persisted.
	Time string `json:"time,omitempty"`
}
