package domain

import (
	"time"
)

// FeatureVector is the fixed-size behavioral profile of a caller,
// derived from the rolling CDR window. All values are deterministic
// functions of the current window contents.
type FeatureVector struct {
	AvgDuration   float64 `json:"avgDuration"`
	TotalCalls    float64 `json:"totalCalls"`
	NightRatio    float64 `json:"nightRatio"`
	OriginRegions float64 `json:"originRegions"`
	TargetRegions float64 `json:"targetRegions"`
}

// RiskAssessment is the output of a scoring strategy for one CDR.
type RiskAssessment struct {
	IsFraud      bool    `json:"isFraud"`
	RiskScore    float64 `json:"riskScore"` // 0-100
	AnomalyScore float64 `json:"anomalyScore"`
	Prediction   int     `json:"prediction"` // -1 = fraud, 1 = normal
}

// CallerStats is a convenience projection of a caller's window.
type CallerStats struct {
	TotalCalls          int     `json:"total_calls"`
	AvgDuration         float64 `json:"avg_duration"`
	NightCallRatio      float64 `json:"night_call_ratio"`
	UniqueOriginRegions int     `json:"unique_origin_regions"`
	UniqueTargetRegions int     `json:"unique_target_regions"`
	LastCall            string  `json:"last_call,omitempty"` // RFC 3339, empty if no calls
}

// CallerRecord is the latest retained assessment for a caller,
// overwritten on each processed CDR.
type CallerRecord struct {
	Assessment RiskAssessment `json:"assessment"`
	ClusterID  string         `json:"clusterId,omitempty"`
	FraudType  string         `json:"fraudType"`
	Features   FeatureVector  `json:"features"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ProcessResult is returned for each ingested CDR.
type ProcessResult struct {
	CallerID     string  `json:"caller_id"`
	RiskScore    float64 `json:"risk_score"`
	IsFraud      bool    `json:"is_fraud"`
	ClusterID    string  `json:"cluster_id,omitempty"`
	FraudType    string  `json:"fraud_type"`
	AnomalyScore float64 `json:"anomaly_score"`
	AlertIDs     []int64 `json:"alerts"`
}

// Lookup status values derived from the risk score.
const (
	StatusSafe       = "SAFE"       // score < 50
	StatusSuspicious = "SUSPICIOUS" // 50 <= score < 85
	StatusDangerous  = "DANGEROUS"  // score >= 85
)

// LookupResult is the full risk profile returned for a number lookup.
type LookupResult struct {
	Status       string  `json:"status"`
	RiskScore    int     `json:"risk_score"`
	Category     string  `json:"category"`
	Reports      int     `json:"reports"`
	Carrier      string  `json:"carrier"`
	LastActive   string  `json:"last_active"`
	FraudType    string  `json:"fraud_type,omitempty"`
	ClusterID    string  `json:"cluster_id,omitempty"`
	AnomalyScore float64 `json:"anomaly_score"`
	Explanation  string  `json:"explanation"`
}

// GlobalStats holds the cumulative pipeline counters. The active
// campaign count is recomputed from the cluster detector at read time.
type GlobalStats struct {
	TotalCalls           int64 `json:"total_calls"`
	BlockedThreats       int64 `json:"blocked_threats"`
	ActiveCampaignsCount int   `json:"active_campaigns_count"`
	TotalFraudDetected   int64 `json:"total_fraud_detected"`
}
