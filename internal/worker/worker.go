// Package worker provides async CDR ingestion from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/pipeline"
)

// Worker consumes ingested CDRs from the event bus and runs them
// through the detection pipeline. Used when CDRs arrive from external
// switch collectors rather than the HTTP API.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Pipeline

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, p *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the CDR ingestion topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicCDRIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("ingestion worker started", "topic", domain.TopicCDRIngested)
	return nil
}

// handleMessage parses one ingested CDR and processes it. Malformed
// records are logged and dropped; they never stop the subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req domain.CDRRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse CDR message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if err := req.Validate(); err != nil {
		slog.Warn("rejected CDR message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	cdr, err := req.ToCDR()
	if err != nil {
		slog.Warn("rejected CDR message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	result, err := w.pipeline.Process(ctx, cdr)
	if err != nil {
		slog.Error("CDR processing failed",
			"caller", cdr.CallerID,
			"error", err,
		)
		return err
	}

	slog.Info("CDR processed",
		"caller", result.CallerID,
		"risk_score", result.RiskScore,
		"is_fraud", result.IsFraud,
		"fraud_type", result.FraudType,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("ingestion worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
