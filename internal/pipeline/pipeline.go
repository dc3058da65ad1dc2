// Package pipeline orchestrates the detection flow for each CDR:
// feature extraction, risk scoring, fraud-type classification, campaign
// clustering, and alerting, in that order. A single mutex serializes
// the whole sequence so every stage sees the state left by the
// previous record; persistence and event publication happen after the
// lock is released and never block detection.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-telco/kestrel/internal/alerting"
	"github.com/opensource-telco/kestrel/internal/cluster"
	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/feature"
	"github.com/opensource-telco/kestrel/internal/rules"
	"github.com/opensource-telco/kestrel/internal/scoring"
)

const lookupTTL = 30 * time.Second

// Pipeline is the stateful detection engine. All per-caller state lives
// in memory; the repository is an audit trail only.
type Pipeline struct {
	mu          sync.Mutex
	extractor   *feature.Extractor
	scorer      scoring.Scorer
	fraudLadder *rules.Ladder
	detector    *cluster.Detector
	alerter     *alerting.Generator

	registry map[string]domain.CallerRecord

	totalCalls     int64
	blockedThreats int64
	totalFraud     int64

	repo  domain.Repository
	bus   domain.EventBus
	cache domain.Cache

	now func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRepository attaches the audit trail.
func WithRepository(repo domain.Repository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithEventBus attaches the event bus for processed-CDR and alert events.
func WithEventBus(b domain.EventBus) Option {
	return func(p *Pipeline) { p.bus = b }
}

// WithCache attaches the lookup cache.
func WithCache(c domain.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithScorer overrides the scoring strategy.
func WithScorer(s scoring.Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a pipeline from the detection tunables.
func New(cfg domain.PipelineConfig, opts ...Option) (*Pipeline, error) {
	fraudLadder, err := rules.FraudTypeLadder()
	if err != nil {
		return nil, err
	}
	severityLadder, err := rules.SeverityLadder()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		extractor:   feature.NewExtractor(cfg.WindowCapacity),
		scorer:      scoring.New(cfg.ArtifactPath),
		fraudLadder: fraudLadder,
		detector: cluster.NewDetector(
			int(cfg.ClusterBaseID),
			cfg.ClusterThreshold,
			cfg.ClusterSimilarity,
			cfg.ClusterActiveWindow,
		),
		alerter:  alerting.NewGenerator(severityLadder, cfg.AlertBaseID, cfg.AlertCapacity),
		registry: make(map[string]domain.CallerRecord),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs one CDR through the full detection sequence and returns
// the resulting assessment.
func (p *Pipeline) Process(ctx context.Context, cdr domain.CDR) (domain.ProcessResult, error) {
	p.mu.Lock()

	p.extractor.Add(cdr.CallerID, cdr)
	features := p.extractor.Extract(cdr.CallerID)
	assessment := p.scorer.Predict(features)

	fraudType := "Legitimate"
	if assessment.IsFraud {
		fraudType, _ = p.fraudLadder.Evaluate(rules.Activation{
			Features:  features,
			RiskScore: assessment.RiskScore,
			IsFraud:   true,
		})
	}

	// Clustering and alerting run on every record; the detector applies
	// its own score threshold and the severity ladder its own rungs.
	clusterID := p.detector.Observe(cdr.CallerID, assessment.RiskScore, fraudType)
	alertIDs := p.alerter.Evaluate(cdr.CallerID, assessment.RiskScore, clusterID, fraudType)

	record := domain.CallerRecord{
		Assessment: assessment,
		ClusterID:  clusterID,
		FraudType:  fraudType,
		Features:   features,
		Timestamp:  p.now().UTC(),
	}
	p.registry[cdr.CallerID] = record

	p.totalCalls++
	if assessment.IsFraud {
		p.totalFraud++
		p.blockedThreats++
	}

	p.mu.Unlock()

	result := domain.ProcessResult{
		CallerID:     cdr.CallerID,
		RiskScore:    assessment.RiskScore,
		IsFraud:      assessment.IsFraud,
		ClusterID:    clusterID,
		FraudType:    fraudType,
		AnomalyScore: assessment.AnomalyScore,
		AlertIDs:     alertIDs,
	}

	p.afterProcess(ctx, cdr, record, result)

	return result, nil
}

// afterProcess handles the best-effort side effects: audit writes,
// event publication, and lookup cache invalidation. Failures are
// logged, never returned.
func (p *Pipeline) afterProcess(ctx context.Context, cdr domain.CDR, rec domain.CallerRecord, result domain.ProcessResult) {
	if p.repo != nil {
		if err := p.repo.SaveCDR(ctx, &cdr); err != nil {
			slog.Warn("failed to persist CDR", "caller", cdr.CallerID, "error", err)
		}
		if err := p.repo.SaveAssessment(ctx, cdr.CallerID, &rec); err != nil {
			slog.Warn("failed to persist assessment", "caller", cdr.CallerID, "error", err)
		}
		for _, a := range p.alerter.Alerts("", "", 0) {
			for _, id := range result.AlertIDs {
				if a.ID == id {
					if err := p.repo.SaveAlert(ctx, &a); err != nil {
						slog.Warn("failed to persist alert", "alert_id", id, "error", err)
					}
				}
			}
		}
	}

	if p.bus != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := p.bus.Publish(ctx, domain.TopicCDRProcessed, payload); err != nil {
				slog.Warn("failed to publish processed event", "error", err)
			}
		}
		for _, id := range result.AlertIDs {
			payload, err := json.Marshal(map[string]any{
				"alert_id":  id,
				"caller_id": result.CallerID,
			})
			if err == nil {
				if err := p.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
					slog.Warn("failed to publish alert event", "alert_id", id, "error", err)
				}
			}
		}
	}

	if p.cache != nil {
		_ = p.cache.Delete(ctx, "lookup:"+cdr.CallerID)
	}
}

// GlobalStats returns the cumulative counters. The active campaign
// count is recomputed from the cluster detector.
func (p *Pipeline) GlobalStats() domain.GlobalStats {
	p.mu.Lock()
	stats := domain.GlobalStats{
		TotalCalls:         p.totalCalls,
		BlockedThreats:     p.blockedThreats,
		TotalFraudDetected: p.totalFraud,
	}
	p.mu.Unlock()

	stats.ActiveCampaignsCount = len(p.detector.ActiveClusters())
	return stats
}

// ActiveCampaigns lists the currently active clusters, highest risk first.
func (p *Pipeline) ActiveCampaigns() []domain.ClusterSummary {
	return p.detector.ActiveClusters()
}

// Campaign returns full detail for one cluster.
func (p *Pipeline) Campaign(id string) (domain.Cluster, bool) {
	return p.detector.Cluster(id)
}

// Alerts lists retained alerts, newest first.
func (p *Pipeline) Alerts(severity, status string, limit int) []domain.Alert {
	return p.alerter.Alerts(severity, status, limit)
}

// ResolveAlert marks an alert resolved in the ring and the audit trail.
func (p *Pipeline) ResolveAlert(ctx context.Context, id int64) {
	p.alerter.MarkResolved(id)
	if p.repo != nil {
		if err := p.repo.UpdateAlertStatus(ctx, id, domain.AlertStatusResolved); err != nil {
			slog.Debug("alert status not persisted", "alert_id", id, "error", err)
		}
	}
}

// CallerStats exposes the caller's current window projection.
func (p *Pipeline) CallerStats(callerID string) domain.CallerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.extractor.Stats(callerID)
}

// record returns the retained assessment for a caller, if any.
func (p *Pipeline) record(callerID string) (domain.CallerRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.registry[callerID]
	return rec, ok
}
