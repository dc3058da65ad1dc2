package scoring

import (
	"github.com/opensource-telco/kestrel/internal/domain"
)

// HeuristicScorer is the deterministic fallback strategy: an additive
// point table over the feature vector, capped at 100. It is a documented
// approximation, not a surrogate for a trained model.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the fallback scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Predict scores the feature vector. Short calls plus high volume plus
// night activity is the classic wangiri/robocall signature.
func (s *HeuristicScorer) Predict(f domain.FeatureVector) domain.RiskAssessment {
	score := 0.0

	if f.AvgDuration < 3 {
		score += 30
	}
	if f.TotalCalls > 100 {
		score += 25
	}
	if f.NightRatio > 0.4 {
		score += 20
	}
	if f.OriginRegions > 3 {
		score += 15
	}
	if f.TargetRegions > 5 {
		score += 10
	}

	if score > 100 {
		score = 100
	}

	isFraud := score > 50

	anomaly := score
	prediction := 1
	if isFraud {
		anomaly = -score
		prediction = -1
	}

	return domain.RiskAssessment{
		IsFraud:      isFraud,
		RiskScore:    score,
		AnomalyScore: anomaly,
		Prediction:   prediction,
	}
}
