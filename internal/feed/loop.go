package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/pipeline"
)

// Loop ticks on a fixed cadence, pushes a synthetic batch through the
// pipeline, and broadcasts the processed events plus current counters
// to every hub subscriber.
type Loop struct {
	pipeline  *pipeline.Pipeline
	hub       *Hub
	generator *Generator
	interval  time.Duration
	batchSize int
}

// NewLoop wires the broadcast loop.
func NewLoop(p *pipeline.Pipeline, hub *Hub, gen *Generator, cfg domain.FeedConfig) *Loop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Loop{
		pipeline:  p,
		hub:       hub,
		generator: gen,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run drives the loop until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	slog.Info("feed loop started", "interval", l.interval, "batch_size", l.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("feed loop stopped")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick processes one synthetic batch and broadcasts the result.
func (l *Loop) Tick(ctx context.Context) {
	cdrs := l.generator.Batch(l.batchSize)
	events := make([]domain.FeedEvent, 0, len(cdrs))

	for _, cdr := range cdrs {
		result, err := l.pipeline.Process(ctx, cdr)
		if err != nil {
			slog.Warn("feed batch record failed", "caller", cdr.CallerID, "error", err)
			continue
		}
		events = append(events, toEvent(cdr, result))
	}

	batch := domain.FeedBatch{
		Events: events,
		Stats:  l.pipeline.GlobalStats(),
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		slog.Error("failed to marshal feed batch", "error", err)
		return
	}

	l.hub.Broadcast(payload)
}

func toEvent(cdr domain.CDR, result domain.ProcessResult) domain.FeedEvent {
	eventType := "Legitimate"
	if result.IsFraud {
		eventType = "Fraud"
	}

	return domain.FeedEvent{
		ID:          uuid.New().String(),
		Timestamp:   float64(cdr.Timestamp.UnixNano()) / float64(time.Second),
		Source:      cdr.CallerID,
		Destination: cdr.Destination,
		Duration:    cdr.Duration,
		RiskScore:   result.RiskScore,
		Type:        eventType,
		Location:    cdr.OriginRegion,
		ClusterID:   result.ClusterID,
		FraudType:   result.FraudType,
	}
}
