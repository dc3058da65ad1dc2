package rules

import "github.com/opensource-telco/kestrel/internal/domain"

// FraudTypeLadder classifies a flagged caller's behavioral signature.
// Order matters: a short-burst pattern outranks the regional signals
// even when several predicates hold at once.
func FraudTypeLadder() (*Ladder, error) {
	l, err := NewLadder([]Step{
		{Expression: "avg_duration < 3.0 && total_calls > 50.0", Outcome: "Wangiri"},
		{Expression: "night_ratio > 0.5 && total_calls > 100.0", Outcome: "IRS Impersonation"},
		{Expression: "target_regions > 5.0", Outcome: "Lottery Fraud"},
		{Expression: "origin_regions > 3.0", Outcome: "KYC Phishing"},
	})
	if err != nil {
		return nil, err
	}
	return l.WithDefault("Unknown Fraud"), nil
}

// SeverityLadder maps a scored caller to an alert severity. No default:
// callers below every rung simply do not raise an alert.
func SeverityLadder() (*Ladder, error) {
	return NewLadder([]Step{
		{Expression: "risk_score >= 95.0", Outcome: domain.SeverityCritical},
		{Expression: "risk_score >= 85.0 && has_cluster", Outcome: domain.SeverityHigh},
		{Expression: "risk_score >= 75.0 && has_cluster", Outcome: domain.SeverityMedium},
	})
}
