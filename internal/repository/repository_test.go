package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetCDRs", func(t *testing.T) {
		cdr := &domain.CDR{
			CallerID:     "+919876543210",
			Destination:  "+918765432109",
			Duration:     2.5,
			Timestamp:    time.Now().UTC(),
			OriginRegion: "Delhi",
			TargetRegion: "Mumbai",
		}

		if err := repo.SaveCDR(ctx, cdr); err != nil {
			t.Fatalf("SaveCDR failed: %v", err)
		}

		cdr2 := &domain.CDR{
			CallerID:     "+919876543210",
			Destination:  "+917654321098",
			Duration:     1.0,
			Timestamp:    time.Now().UTC(),
			OriginRegion: "Delhi",
			TargetRegion: "Chennai",
		}
		if err := repo.SaveCDR(ctx, cdr2); err != nil {
			t.Fatalf("SaveCDR failed: %v", err)
		}

		since := time.Now().Add(-1 * time.Hour)
		cdrs, err := repo.GetCDRsByCaller(ctx, "+919876543210", since)
		if err != nil {
			t.Fatalf("GetCDRsByCaller failed: %v", err)
		}

		if len(cdrs) != 2 {
			t.Errorf("expected 2 CDRs, got %d", len(cdrs))
		}
	})

	t.Run("CDRRequiresCallerID", func(t *testing.T) {
		err := repo.SaveCDR(ctx, &domain.CDR{})
		if err == nil {
			t.Error("expected error for missing caller_id")
		}

		_, err = repo.GetCDRsByCaller(ctx, "", time.Now())
		if err == nil {
			t.Error("expected error for empty caller_id")
		}
	})

	t.Run("SaveAndResolveAlert", func(t *testing.T) {
		alert := &domain.Alert{
			ID:          4920,
			Severity:    domain.SeverityCritical,
			Title:       "Critical Fraud Detected - Wangiri",
			Description: "Number +919876543210 flagged with risk score 96. Immediate action recommended.",
			CallerID:    "+919876543210",
			Status:      domain.AlertStatusOpen,
			CreatedAt:   time.Now().UTC(),
		}

		if err := repo.SaveAlert(ctx, alert); err != nil {
			t.Fatalf("SaveAlert failed: %v", err)
		}

		if err := repo.UpdateAlertStatus(ctx, 4920, domain.AlertStatusResolved); err != nil {
			t.Fatalf("UpdateAlertStatus failed: %v", err)
		}
	})

	t.Run("UpdateUnknownAlert", func(t *testing.T) {
		err := repo.UpdateAlertStatus(ctx, 999999, domain.AlertStatusResolved)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("AssessmentUpsert", func(t *testing.T) {
		rec := &domain.CallerRecord{
			Assessment: domain.RiskAssessment{
				IsFraud:      true,
				RiskScore:    80,
				AnomalyScore: -80,
				Prediction:   -1,
			},
			ClusterID: "cluster_100",
			FraudType: "Wangiri",
			Features:  domain.FeatureVector{AvgDuration: 1.2, TotalCalls: 120},
			Timestamp: time.Now().UTC(),
		}

		if err := repo.SaveAssessment(ctx, "+919876543210", rec); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		// Second save overwrites the first
		rec.Assessment.RiskScore = 92
		if err := repo.SaveAssessment(ctx, "+919876543210", rec); err != nil {
			t.Fatalf("SaveAssessment upsert failed: %v", err)
		}

		retrieved, err := repo.GetAssessment(ctx, "+919876543210")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}

		if retrieved.Assessment.RiskScore != 92 {
			t.Errorf("expected upserted risk score 92, got %v", retrieved.Assessment.RiskScore)
		}
		if !retrieved.Assessment.IsFraud {
			t.Error("expected is_fraud true")
		}
		if retrieved.ClusterID != "cluster_100" {
			t.Errorf("expected cluster_100, got %s", retrieved.ClusterID)
		}
		if retrieved.Features.TotalCalls != 120 {
			t.Errorf("expected features to round-trip, got %+v", retrieved.Features)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetAssessment(ctx, "+910000000000")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
