package scoring

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-telco/kestrel/internal/domain"
)

func TestHeuristicScoring(t *testing.T) {
	s := NewHeuristicScorer()

	t.Run("ShortHighVolumeNight", func(t *testing.T) {
		// duration<3 (+30), calls>100 (+25), night>0.4 (+20) = 75
		a := s.Predict(domain.FeatureVector{
			AvgDuration:   1.0,
			TotalCalls:    150.0,
			NightRatio:    0.6,
			OriginRegions: 1.0,
			TargetRegions: 1.0,
		})
		if a.RiskScore != 75 {
			t.Errorf("expected risk score 75, got %v", a.RiskScore)
		}
		if !a.IsFraud {
			t.Error("expected is_fraud true for score 75")
		}
		if a.Prediction != -1 {
			t.Errorf("expected prediction -1, got %d", a.Prediction)
		}
		if a.AnomalyScore != -75 {
			t.Errorf("expected anomaly score -75, got %v", a.AnomalyScore)
		}
	})

	t.Run("ScoreExactlyFiftyIsNotFraud", func(t *testing.T) {
		// duration<3 (+30), night>0.4 (+20) = 50; fraud requires > 50 strictly
		a := s.Predict(domain.FeatureVector{
			AvgDuration: 1.0,
			TotalCalls:  60.0,
			NightRatio:  1.0,
		})
		if a.RiskScore != 50 {
			t.Errorf("expected risk score 50, got %v", a.RiskScore)
		}
		if a.IsFraud {
			t.Error("score 50 must not be flagged as fraud")
		}
		if a.AnomalyScore != 50 {
			t.Errorf("expected anomaly score +50, got %v", a.AnomalyScore)
		}
	})

	t.Run("CapAt100", func(t *testing.T) {
		a := s.Predict(domain.FeatureVector{
			AvgDuration:   1.0,
			TotalCalls:    500.0,
			NightRatio:    0.9,
			OriginRegions: 10.0,
			TargetRegions: 10.0,
		})
		if a.RiskScore != 100 {
			t.Errorf("expected capped score 100, got %v", a.RiskScore)
		}
	})

	t.Run("ZeroVector", func(t *testing.T) {
		a := s.Predict(domain.FeatureVector{AvgDuration: 10})
		if a.RiskScore != 0 || a.IsFraud {
			t.Errorf("expected benign assessment, got %+v", a)
		}
		if a.Prediction != 1 {
			t.Errorf("expected prediction 1, got %d", a.Prediction)
		}
	})
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraud_detector.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	return path
}

func TestArtifactScorer(t *testing.T) {
	// decision = -0.01*total_calls + 0.5; outlier when decision < 0.
	path := writeArtifact(t, `{
		"weights": [0, -0.01, 0, 0, 0],
		"bias": 0.5,
		"threshold": 0,
		"scaler": {"min": -0.5, "max": 4.5}
	}`)

	s, err := LoadArtifactScorer(path)
	if err != nil {
		t.Fatalf("failed to load artifact: %v", err)
	}

	t.Run("BenignCaller", func(t *testing.T) {
		a := s.Predict(domain.FeatureVector{TotalCalls: 10})
		// decision = 0.4, raw = -0.4, risk = (-0.4+0.5)/5*100 = 2
		if a.IsFraud {
			t.Error("expected benign assessment")
		}
		if math.Abs(a.RiskScore-2.0) > 1e-9 {
			t.Errorf("expected risk 2.0, got %v", a.RiskScore)
		}
	})

	t.Run("AnomalousCaller", func(t *testing.T) {
		a := s.Predict(domain.FeatureVector{TotalCalls: 300})
		// decision = -2.5, raw = 2.5, risk = 3/5*100 = 60
		if !a.IsFraud {
			t.Error("expected fraud flag for negative decision")
		}
		if math.Abs(a.RiskScore-60.0) > 1e-9 {
			t.Errorf("expected risk 60.0, got %v", a.RiskScore)
		}
		if a.Prediction != -1 {
			t.Errorf("expected prediction -1, got %d", a.Prediction)
		}
	})

	t.Run("ClampToRange", func(t *testing.T) {
		a := s.Predict(domain.FeatureVector{TotalCalls: 100000})
		if a.RiskScore != 100 {
			t.Errorf("expected clamped risk 100, got %v", a.RiskScore)
		}
	})

	t.Run("RuntimeFailureFallsBackToHeuristic", func(t *testing.T) {
		// NaN input breaks the decision function; the heuristic result
		// must come back instead of an error.
		a := s.Predict(domain.FeatureVector{
			AvgDuration: math.NaN(),
			TotalCalls:  150,
			NightRatio:  0.6,
		})
		// Heuristic: NaN < 3 is false, calls>100 (+25), night (+20) = 45
		if a.RiskScore != 45 {
			t.Errorf("expected heuristic fallback score 45, got %v", a.RiskScore)
		}
	})
}

func TestArtifactLoadFailures(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadArtifactScorer("/nonexistent/artifact.json"); err == nil {
			t.Error("expected error for missing artifact")
		}
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := writeArtifact(t, "{not json")
		if _, err := LoadArtifactScorer(path); err == nil {
			t.Error("expected error for malformed artifact")
		}
	})

	t.Run("WrongWeightCount", func(t *testing.T) {
		path := writeArtifact(t, `{"weights":[1,2],"scaler":{"min":0,"max":1}}`)
		if _, err := LoadArtifactScorer(path); err == nil {
			t.Error("expected error for wrong weight count")
		}
	})

	t.Run("DegenerateScaler", func(t *testing.T) {
		path := writeArtifact(t, `{"weights":[0,0,0,0,0],"scaler":{"min":1,"max":1}}`)
		if _, err := LoadArtifactScorer(path); err == nil {
			t.Error("expected error for degenerate scaler")
		}
	})
}

func TestNewSelectsStrategyOnce(t *testing.T) {
	t.Run("NoArtifact", func(t *testing.T) {
		s := New("")
		if _, ok := s.(*HeuristicScorer); !ok {
			t.Errorf("expected heuristic scorer, got %T", s)
		}
	})

	t.Run("MissingArtifactPath", func(t *testing.T) {
		s := New("/nonexistent/artifact.json")
		if _, ok := s.(*HeuristicScorer); !ok {
			t.Errorf("expected heuristic fallback, got %T", s)
		}
	})

	t.Run("ValidArtifact", func(t *testing.T) {
		path := writeArtifact(t, `{"weights":[0,0,0,0,0],"bias":0,"threshold":0,"scaler":{"min":0,"max":1}}`)
		s := New(path)
		if _, ok := s.(*ArtifactScorer); !ok {
			t.Errorf("expected artifact scorer, got %T", s)
		}
	})
}
