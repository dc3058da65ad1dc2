// Package scoring turns feature vectors into risk assessments.
//
// Two interchangeable strategies share one contract: an artifact-backed
// scorer consuming an externally trained decision function, and a
// deterministic heuristic used when no artifact is available. The
// strategy is chosen once at construction; a runtime failure inside the
// artifact path degrades to the heuristic result for that single
// prediction and is never surfaced to callers.
package scoring

import (
	"log/slog"

	"github.com/opensource-telco/kestrel/internal/domain"
)

// Scorer produces a risk assessment from a feature vector.
type Scorer interface {
	Predict(features domain.FeatureVector) domain.RiskAssessment
}

// New selects the scoring strategy. If the artifact at path loads, the
// artifact-backed scorer is used; otherwise the heuristic fallback.
func New(artifactPath string) Scorer {
	if artifactPath != "" {
		scorer, err := LoadArtifactScorer(artifactPath)
		if err == nil {
			slog.Info("scoring artifact loaded", "path", artifactPath)
			return scorer
		}
		slog.Warn("scoring artifact unavailable, using heuristic fallback",
			"path", artifactPath,
			"error", err,
		)
	}
	return NewHeuristicScorer()
}
