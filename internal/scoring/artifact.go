package scoring

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/opensource-telco/kestrel/internal/domain"
)

// Artifact is the serialized output of the offline training pipeline: a
// linear decision function over the 5-element feature vector plus a
// monotonic rescaler fitted to map raw anomaly values into [0,100].
type Artifact struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"` // decision < threshold => outlier
	Scaler    Scaler    `json:"scaler"`
}

// Scaler is the fitted min-max transform.
type Scaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ArtifactScorer wraps a loaded artifact. Any per-call failure inside
// the artifact path falls back to the heuristic result for that call.
type ArtifactScorer struct {
	artifact Artifact
	fallback *HeuristicScorer
}

// LoadArtifactScorer reads and validates a scoring artifact.
func LoadArtifactScorer(path string) (*ArtifactScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("malformed artifact: %w", err)
	}

	if len(a.Weights) != 5 {
		return nil, fmt.Errorf("artifact expects 5 weights, got %d", len(a.Weights))
	}
	if a.Scaler.Max <= a.Scaler.Min {
		return nil, fmt.Errorf("artifact scaler is degenerate (min=%v max=%v)", a.Scaler.Min, a.Scaler.Max)
	}

	return &ArtifactScorer{
		artifact: a,
		fallback: NewHeuristicScorer(),
	}, nil
}

// Predict runs the artifact's decision function. More anomalous inputs
// produce a more negative decision value; the raw value is negated,
// rescaled through the fitted transform, and clamped to [0,100].
func (s *ArtifactScorer) Predict(f domain.FeatureVector) domain.RiskAssessment {
	assessment, err := s.predict(f)
	if err != nil {
		slog.Debug("artifact prediction failed, using heuristic result", "error", err)
		return s.fallback.Predict(f)
	}
	return assessment
}

func (s *ArtifactScorer) predict(f domain.FeatureVector) (domain.RiskAssessment, error) {
	vec := [5]float64{f.AvgDuration, f.TotalCalls, f.NightRatio, f.OriginRegions, f.TargetRegions}

	decision := s.artifact.Bias
	for i, w := range s.artifact.Weights {
		decision += w * vec[i]
	}

	if math.IsNaN(decision) || math.IsInf(decision, 0) {
		return domain.RiskAssessment{}, fmt.Errorf("non-finite decision value")
	}

	// More anomalous means larger after negation.
	raw := -decision

	risk := (raw - s.artifact.Scaler.Min) / (s.artifact.Scaler.Max - s.artifact.Scaler.Min) * 100
	if risk < 0 {
		risk = 0
	}
	if risk > 100 {
		risk = 100
	}

	isFraud := decision < s.artifact.Threshold
	prediction := 1
	if isFraud {
		prediction = -1
	}

	return domain.RiskAssessment{
		IsFraud:      isFraud,
		RiskScore:    risk,
		AnomalyScore: decision,
		Prediction:   prediction,
	}, nil
}
