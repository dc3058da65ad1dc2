package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-telco/kestrel/internal/domain"
)

// Lookup builds the full risk profile for a number from retained
// pipeline state. Results are cached briefly; any processed CDR for the
// number invalidates the cached entry.
func (p *Pipeline) Lookup(ctx context.Context, number string) domain.LookupResult {
	if p.cache != nil {
		if cached, err := p.cache.GetLookup(ctx, number); err == nil && cached != nil {
			return *cached
		}
	}

	result := p.lookup(number)

	if p.cache != nil {
		_ = p.cache.SetLookup(ctx, number, &result, lookupTTL)
	}
	return result
}

func (p *Pipeline) lookup(number string) domain.LookupResult {
	rec, ok := p.record(number)
	if !ok {
		return domain.LookupResult{
			Status:      domain.StatusSafe,
			RiskScore:   0,
			Category:    "Legitimate",
			Carrier:     Carrier(number),
			LastActive:  "Never",
			Explanation: "No historical data available for this number.",
		}
	}

	score := rec.Assessment.RiskScore
	status := domain.StatusSafe
	switch {
	case score >= 85:
		status = domain.StatusDangerous
	case score >= 50:
		status = domain.StatusSuspicious
	}

	category := rec.FraudType
	if !rec.Assessment.IsFraud {
		category = "Legitimate"
	}

	stats := p.CallerStats(number)

	lastActive := stats.LastCall
	if lastActive == "" {
		lastActive = "Unknown"
	}

	return domain.LookupResult{
		Status:       status,
		RiskScore:    int(score),
		Category:     category,
		Reports:      stats.TotalCalls,
		Carrier:      Carrier(number),
		LastActive:   lastActive,
		FraudType:    rec.FraudType,
		ClusterID:    rec.ClusterID,
		AnomalyScore: rec.Assessment.AnomalyScore,
		Explanation:  explain(score, rec.ClusterID, stats),
	}
}

// explain renders the signals behind a score as prose, strongest first.
func explain(score float64, clusterID string, stats domain.CallerStats) string {
	var clauses []string

	if score >= 85 {
		clauses = append(clauses, fmt.Sprintf("High risk score (%.1f/100)", score))
	}
	if stats.AvgDuration < 3 {
		clauses = append(clauses, "Very short call durations detected")
	}
	if stats.NightCallRatio > 0.4 {
		clauses = append(clauses, "High proportion of night calls")
	}
	if stats.TotalCalls > 100 {
		clauses = append(clauses, fmt.Sprintf("Unusually high call volume (%d calls)", stats.TotalCalls))
	}
	if clusterID != "" {
		clauses = append(clauses, fmt.Sprintf("Associated with fraud cluster %s", clusterID))
	}

	if len(clauses) == 0 {
		return "No significant anomalies detected."
	}
	return strings.Join(clauses, ". ") + "."
}

// Carrier infers the carrier from an Indian MSISDN by its leading
// subscriber digit after the country code.
func Carrier(number string) string {
	n := strings.TrimPrefix(number, "+")
	n = strings.TrimPrefix(n, "91")
	if n == "" {
		return "Unknown"
	}
	switch n[0] {
	case '9':
		return "Jio"
	case '8':
		return "Airtel"
	case '7':
		return "Vi India"
	case '6':
		return "BSNL"
	default:
		return "Unknown"
	}
}
