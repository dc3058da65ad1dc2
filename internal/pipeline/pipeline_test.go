package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

func testConfig() domain.PipelineConfig {
	return domain.PipelineConfig{
		WindowCapacity:      1000,
		ClusterThreshold:    70,
		ClusterSimilarity:   15,
		ClusterBaseID:       100,
		ClusterActiveWindow: 24 * time.Hour,
		AlertBaseID:         4920,
		AlertCapacity:       100,
	}
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(testConfig(), opts...)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return p
}

func nightCall(caller string, n int) domain.CDR {
	return domain.CDR{
		CallerID:     caller,
		Destination:  fmt.Sprintf("+9188888%05d", n),
		Duration:     1.0,
		Timestamp:    time.Date(2025, 6, 1, 23, 0, n, 0, time.UTC),
		OriginRegion: "Delhi",
		TargetRegion: "Mumbai",
	}
}

func dayCall(caller string, n int) domain.CDR {
	return domain.CDR{
		CallerID:     caller,
		Destination:  fmt.Sprintf("+9188888%05d", n),
		Duration:     120.0,
		Timestamp:    time.Date(2025, 6, 1, 14, 0, n, 0, time.UTC),
		OriginRegion: "Delhi",
		TargetRegion: "Mumbai",
	}
}

func TestProcessLegitimateCaller(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	result, err := p.Process(ctx, dayCall("+919876500001", 0))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.IsFraud {
		t.Error("expected legitimate assessment")
	}
	if result.FraudType != "Legitimate" {
		t.Errorf("expected Legitimate, got %q", result.FraudType)
	}
	if result.ClusterID != "" {
		t.Errorf("expected no cluster, got %q", result.ClusterID)
	}
	if len(result.AlertIDs) != 0 {
		t.Errorf("expected no alerts, got %v", result.AlertIDs)
	}

	stats := p.GlobalStats()
	if stats.TotalCalls != 1 {
		t.Errorf("expected 1 total call, got %d", stats.TotalCalls)
	}
	if stats.TotalFraudDetected != 0 {
		t.Errorf("expected 0 fraud, got %d", stats.TotalFraudDetected)
	}
}

func TestProcessWangiriBurst(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	caller := "+919876500002"

	// Short night calls: once volume passes 100 the caller scores 75,
	// classifies as Wangiri, and joins a campaign.
	var last domain.ProcessResult
	for i := 0; i < 101; i++ {
		var err error
		last, err = p.Process(ctx, nightCall(caller, i))
		if err != nil {
			t.Fatalf("Process failed at call %d: %v", i, err)
		}
	}

	if !last.IsFraud {
		t.Fatal("expected fraud after burst")
	}
	if last.RiskScore != 75 {
		t.Errorf("expected risk score 75, got %v", last.RiskScore)
	}
	if last.FraudType != "Wangiri" {
		t.Errorf("expected Wangiri, got %q", last.FraudType)
	}
	if last.ClusterID != "cluster_100" {
		t.Errorf("expected cluster_100, got %q", last.ClusterID)
	}
	if len(last.AlertIDs) != 1 {
		t.Fatalf("expected one alert, got %v", last.AlertIDs)
	}

	alerts := p.Alerts("", "", 0)
	if alerts[0].Severity != domain.SeverityMedium {
		t.Errorf("expected MEDIUM severity at score 75 with cluster, got %s", alerts[0].Severity)
	}

	stats := p.GlobalStats()
	if stats.TotalFraudDetected != 1 {
		t.Errorf("expected 1 fraud detection, got %d", stats.TotalFraudDetected)
	}
	if stats.BlockedThreats != 1 {
		t.Errorf("expected blocked threats to track every fraud call, got %d", stats.BlockedThreats)
	}
	if stats.ActiveCampaignsCount != 1 {
		t.Errorf("expected 1 active campaign, got %d", stats.ActiveCampaignsCount)
	}

	campaigns := p.ActiveCampaigns()
	if len(campaigns) != 1 || campaigns[0].ID != "cluster_100" {
		t.Errorf("unexpected campaigns: %+v", campaigns)
	}
}

func TestProcessCriticalCaller(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	caller := "+919876500003"

	origins := []string{"Delhi", "Mumbai", "Chennai", "Kolkata", "Pune"}
	targets := []string{"A", "B", "C", "D", "E", "F"}

	// Every signal fires: short, high volume, night, regional spread.
	var last domain.ProcessResult
	for i := 0; i < 101; i++ {
		cdr := nightCall(caller, i)
		cdr.OriginRegion = origins[i%len(origins)]
		cdr.TargetRegion = targets[i%len(targets)]
		var err error
		last, err = p.Process(ctx, cdr)
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	if last.RiskScore != 100 {
		t.Errorf("expected maxed score 100, got %v", last.RiskScore)
	}
	if len(last.AlertIDs) != 1 {
		t.Fatalf("expected one alert, got %v", last.AlertIDs)
	}

	alerts := p.Alerts(domain.SeverityCritical, "", 0)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 critical alert, got %d", len(alerts))
	}

	stats := p.GlobalStats()
	if stats.BlockedThreats == 0 {
		t.Error("expected blocked threats counter to advance")
	}
}

type stubScorer struct {
	out domain.RiskAssessment
}

func (s stubScorer) Predict(domain.FeatureVector) domain.RiskAssessment { return s.out }

func TestHighScoreWithoutFraudFlag(t *testing.T) {
	// A scorer can rate a caller 96 without flagging it as an outlier.
	// Clustering and the severity ladder still run; only the fraud-type
	// label and the fraud counters follow the flag.
	p := newTestPipeline(t, WithScorer(stubScorer{domain.RiskAssessment{
		IsFraud:   false,
		RiskScore: 96,
	}}))

	result, err := p.Process(context.Background(), dayCall("+919876500010", 0))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.FraudType != "Legitimate" {
		t.Errorf("expected Legitimate label, got %q", result.FraudType)
	}
	if result.ClusterID == "" {
		t.Error("expected clustering at score 96 regardless of the flag")
	}
	if len(result.AlertIDs) != 1 {
		t.Fatalf("expected exactly one alert at score 96, got %v", result.AlertIDs)
	}

	alerts := p.Alerts(domain.SeverityCritical, "", 0)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 critical alert, got %d", len(alerts))
	}

	stats := p.GlobalStats()
	if stats.TotalFraudDetected != 0 || stats.BlockedThreats != 0 {
		t.Errorf("fraud counters must follow the flag, got fraud=%d blocked=%d",
			stats.TotalFraudDetected, stats.BlockedThreats)
	}
}

func TestLookupUnknownNumber(t *testing.T) {
	p := newTestPipeline(t)

	result := p.Lookup(context.Background(), "+919876543210")

	if result.Status != domain.StatusSafe {
		t.Errorf("expected SAFE, got %s", result.Status)
	}
	if result.Category != "Legitimate" {
		t.Errorf("expected Legitimate category, got %q", result.Category)
	}
	if result.LastActive != "Never" {
		t.Errorf("expected Never, got %q", result.LastActive)
	}
	if result.Explanation != "No historical data available for this number." {
		t.Errorf("unexpected explanation %q", result.Explanation)
	}
	if result.Carrier != "Jio" {
		t.Errorf("expected Jio for leading 9, got %s", result.Carrier)
	}
}

func TestLookupFlaggedNumber(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	caller := "+919876500004"

	for i := 0; i < 101; i++ {
		if _, err := p.Process(ctx, nightCall(caller, i)); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	result := p.Lookup(ctx, caller)

	// Score 75 sits in the suspicious band.
	if result.Status != domain.StatusSuspicious {
		t.Errorf("expected SUSPICIOUS, got %s", result.Status)
	}
	if result.RiskScore != 75 {
		t.Errorf("expected risk 75, got %d", result.RiskScore)
	}
	if result.Category != "Wangiri" {
		t.Errorf("expected Wangiri category, got %q", result.Category)
	}
	if result.ClusterID != "cluster_100" {
		t.Errorf("expected cluster_100, got %q", result.ClusterID)
	}
	if result.Reports != 101 {
		t.Errorf("expected 101 reports, got %d", result.Reports)
	}
	wantExplanation := "Very short call durations detected. " +
		"High proportion of night calls. " +
		"Unusually high call volume (101 calls). " +
		"Associated with fraud cluster cluster_100."
	if result.Explanation != wantExplanation {
		t.Errorf("unexpected explanation %q", result.Explanation)
	}

	// A repeat lookup returns the same profile (cache or not).
	again := p.Lookup(ctx, caller)
	if again != result {
		t.Errorf("lookup not stable: %+v vs %+v", result, again)
	}
}

func TestLookupLegitimateNumber(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	caller := "+919876500005"

	if _, err := p.Process(ctx, dayCall(caller, 0)); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	result := p.Lookup(ctx, caller)
	if result.Status != domain.StatusSafe {
		t.Errorf("expected SAFE, got %s", result.Status)
	}
	if result.Category != "Legitimate" {
		t.Errorf("expected Legitimate, got %q", result.Category)
	}
	if result.Explanation != "No significant anomalies detected." {
		t.Errorf("unexpected explanation %q", result.Explanation)
	}
}

func TestLookupKnownCallerWithoutWindow(t *testing.T) {
	p := newTestPipeline(t)

	// A retained assessment can outlive window state. The profile still
	// renders, with the last-active field falling back.
	p.registry["+919876500007"] = domain.CallerRecord{
		Assessment: domain.RiskAssessment{IsFraud: true, RiskScore: 90},
		FraudType:  "Wangiri",
	}

	result := p.Lookup(context.Background(), "+919876500007")
	if result.Status != domain.StatusDangerous {
		t.Errorf("expected DANGEROUS at 90, got %s", result.Status)
	}
	if result.LastActive != "Unknown" {
		t.Errorf("expected Unknown last-active fallback, got %q", result.LastActive)
	}
}

func TestResolveAlert(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	caller := "+919876500006"

	origins := []string{"Delhi", "Mumbai", "Chennai", "Kolkata", "Pune"}
	for i := 0; i < 101; i++ {
		cdr := nightCall(caller, i)
		cdr.OriginRegion = origins[i%len(origins)]
		if _, err := p.Process(ctx, cdr); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	alerts := p.Alerts("", "", 0)
	if len(alerts) == 0 {
		t.Fatal("expected at least one alert")
	}

	p.ResolveAlert(ctx, alerts[0].ID)

	resolved := p.Alerts("", domain.AlertStatusResolved, 0)
	if len(resolved) != 1 || resolved[0].ID != alerts[0].ID {
		t.Errorf("expected alert %d resolved, got %+v", alerts[0].ID, resolved)
	}
}

func TestCarrierPrefixes(t *testing.T) {
	cases := []struct {
		number string
		want   string
	}{
		{"+919876543210", "Jio"},
		{"+918876543210", "Airtel"},
		{"+917876543210", "Vi India"},
		{"+916876543210", "BSNL"},
		{"+915876543210", "Unknown"},
		{"9876543210", "Jio"},
		{"", "Unknown"},
	}

	for _, tc := range cases {
		if got := Carrier(tc.number); got != tc.want {
			t.Errorf("Carrier(%q) = %q, want %q", tc.number, got, tc.want)
		}
	}
}
