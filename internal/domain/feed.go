package domain

// FeedEvent is one processed call in the live threat stream.
type FeedEvent struct {
	ID          string  `json:"id"`
	Timestamp   float64 `json:"timestamp"` // epoch seconds
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Duration    float64 `json:"duration"`
	RiskScore   float64 `json:"risk_score"`
	Type        string  `json:"type"` // "Fraud" or "Legitimate"
	Location    string  `json:"location"`
	ClusterID   string  `json:"cluster_id,omitempty"`
	FraudType   string  `json:"fraud_type"` // "Legitimate" for clean calls
}

// FeedBatch is the payload broadcast to subscribers on each tick.
type FeedBatch struct {
	Events []FeedEvent `json:"events"`
	Stats  GlobalStats `json:"stats"`
}
