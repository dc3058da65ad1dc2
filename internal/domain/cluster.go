package domain

import (
	"time"
)

// Cluster is a named fraud campaign grouping high-risk callers that
// share a fraud-type label and similar average risk. Clusters are never
// deleted; staleness is filtered at read time by a recency window.
type Cluster struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FraudType     string    `json:"fraud_type"`
	Callers       []string  `json:"callers"`
	RiskScore     int       `json:"risk_score"` // truncated running average
	AvgRisk       float64   `json:"avg_risk"`
	AffectedUsers int       `json:"affected_users"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

// ClusterStatusActive is the status assigned at creation. Inactivity is
// derived from LastUpdated at query time, never stored.
const ClusterStatusActive = "Active"

// ClusterSummary is the read-side projection of an active cluster.
type ClusterSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RiskScore     int    `json:"risk_score"`
	AffectedUsers int    `json:"affected_users"`
	Status        string `json:"status"`
}
