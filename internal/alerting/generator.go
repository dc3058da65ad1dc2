// Package alerting raises severity-ranked alerts from scored callers.
package alerting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/rules"
)

// Generator evaluates the severity ladder and keeps a bounded in-memory
// ring of recent alerts. When the ring is full the oldest alert is
// evicted, resolved or not.
type Generator struct {
	mu       sync.RWMutex
	ladder   *rules.Ladder
	alerts   []domain.Alert // oldest first
	nextID   int64
	capacity int
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates an alert generator. baseID seeds the alert ID
// counter and capacity bounds the retained ring.
func NewGenerator(ladder *rules.Ladder, baseID int64, capacity int, opts ...Option) *Generator {
	g := &Generator{
		ladder:   ladder,
		nextID:   baseID,
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs the severity ladder for one scored caller and raises at
// most one alert. Returns the raised alert IDs (empty when no rung
// matched).
func (g *Generator) Evaluate(callerID string, riskScore float64, clusterID, fraudType string) []int64 {
	severity, ok := g.ladder.Evaluate(rules.Activation{
		RiskScore:  riskScore,
		HasCluster: clusterID != "",
		IsFraud:    true,
	})
	if !ok {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	a := domain.Alert{
		ID:        g.nextID,
		Severity:  severity,
		ClusterID: clusterID,
		CallerID:  callerID,
		Status:    domain.AlertStatusOpen,
		CreatedAt: g.now(),
	}
	g.nextID++

	switch severity {
	case domain.SeverityCritical:
		a.Title = fmt.Sprintf("Critical Fraud Detected - %s", fraudType)
		a.Description = fmt.Sprintf("Caller %s flagged with risk score %.1f", callerID, riskScore)
	case domain.SeverityHigh:
		a.Title = fmt.Sprintf("High-Risk Cluster Expansion - %s", fraudType)
		a.Description = fmt.Sprintf("Cluster %s expanding with new high-risk caller", clusterID)
	default:
		a.Title = fmt.Sprintf("New Fraud Cluster Detected - %s", fraudType)
		a.Description = fmt.Sprintf("New cluster %s identified with %s pattern", clusterID, fraudType)
	}

	g.alerts = append(g.alerts, a)
	if len(g.alerts) > g.capacity {
		g.alerts = g.alerts[len(g.alerts)-g.capacity:]
	}

	return []int64{a.ID}
}

// Alerts returns retained alerts newest-first, optionally filtered by
// severity and status, truncated to limit when limit > 0. The Time
// field carries a relative age label computed against the current
// clock.
func (g *Generator) Alerts(severity, status string, limit int) []domain.Alert {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := g.now()
	out := make([]domain.Alert, 0, len(g.alerts))
	for i := len(g.alerts) - 1; i >= 0; i-- {
		a := g.alerts[i]
		if severity != "" && !strings.EqualFold(a.Severity, severity) {
			continue
		}
		if status != "" && !strings.EqualFold(a.Status, status) {
			continue
		}
		a.Time = relativeAge(now.Sub(a.CreatedAt))
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// MarkResolved flips an alert to Resolved. Unknown or already-evicted
// IDs are a no-op.
func (g *Generator) MarkResolved(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.alerts {
		if g.alerts[i].ID == id {
			g.alerts[i].Status = domain.AlertStatusResolved
			return
		}
	}
}

// Count returns the number of retained alerts.
func (g *Generator) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.alerts)
}

// relativeAge renders a coarse human-readable age label.
func relativeAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
