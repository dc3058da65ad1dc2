// Package cluster groups high-risk callers into fraud campaigns.
//
// Membership is incremental and monotonic: a caller joins at most one
// cluster and never leaves or migrates, even when its later scores
// drift away from the cluster average. Clusters are matched in creation
// order, so ties between eligible clusters resolve deterministically.
package cluster

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

// Detector maintains the campaign clusters.
type Detector struct {
	mu           sync.RWMutex
	clusters     []*domain.Cluster // creation order
	byCaller     map[string]string // callerID -> clusterID
	nextID       int
	threshold    float64 // minimum score to participate in clustering
	similarity   float64 // max |avg - score| for joining an existing cluster
	activeWindow time.Duration
	now          func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a campaign detector. baseID seeds the cluster ID
// counter; threshold and similarity gate membership; activeWindow bounds
// how long an untouched cluster stays visible in active listings.
func NewDetector(baseID int, threshold, similarity float64, activeWindow time.Duration, opts ...Option) *Detector {
	d := &Detector{
		byCaller:     make(map[string]string),
		nextID:       baseID,
		threshold:    threshold,
		similarity:   similarity,
		activeWindow: activeWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe feeds one scored caller into the detector and returns the
// caller's cluster ID, or "" when the score is below the clustering
// threshold. An existing member's new score re-weights its cluster's
// running average and refreshes the activity timestamp.
func (d *Detector) Observe(callerID string, score float64, fraudType string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if score < d.threshold {
		return ""
	}

	// Membership is sticky: a known member touches its own cluster,
	// regardless of the label on the new observation.
	if id, ok := d.byCaller[callerID]; ok {
		if c := d.byID(id); c != nil {
			d.update(c, score)
		}
		return id
	}

	// First eligible cluster in creation order wins.
	for _, c := range d.clusters {
		if c.FraudType != fraudType {
			continue
		}
		diff := c.AvgRisk - score
		if diff < 0 {
			diff = -diff
		}
		if diff <= d.similarity {
			d.join(c, callerID, score)
			return c.ID
		}
	}

	c := &domain.Cluster{
		ID:          fmt.Sprintf("cluster_%d", d.nextID),
		Name:        fmt.Sprintf("Cluster #%d - %s", d.nextID, fraudType),
		FraudType:   fraudType,
		Callers:     []string{callerID},
		AvgRisk:     score,
		RiskScore:   int(score),
		Status:      domain.ClusterStatusActive,
		CreatedAt:   d.now(),
		LastUpdated: d.now(),
	}
	c.AffectedUsers = 1
	d.nextID++
	d.clusters = append(d.clusters, c)
	d.byCaller[callerID] = c.ID
	return c.ID
}

func (d *Detector) join(c *domain.Cluster, callerID string, score float64) {
	c.Callers = append(c.Callers, callerID)
	c.AffectedUsers = len(c.Callers)
	d.byCaller[callerID] = c.ID
	d.update(c, score)
}

// update folds one observation into the running average over the
// current member count and refreshes the activity timestamp.
func (d *Detector) update(c *domain.Cluster, score float64) {
	n := float64(len(c.Callers))
	c.AvgRisk = (c.AvgRisk*(n-1) + score) / n
	c.RiskScore = int(c.AvgRisk)
	c.LastUpdated = d.now()
}

func (d *Detector) byID(id string) *domain.Cluster {
	for _, c := range d.clusters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ActiveClusters returns clusters touched within the recency window,
// sorted by risk score descending.
func (d *Detector) ActiveClusters() []domain.ClusterSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cutoff := d.now().Add(-d.activeWindow)
	active := make([]domain.ClusterSummary, 0, len(d.clusters))
	for _, c := range d.clusters {
		if c.LastUpdated.Before(cutoff) {
			continue
		}
		active = append(active, domain.ClusterSummary{
			ID:            c.ID,
			Name:          c.Name,
			RiskScore:     c.RiskScore,
			AffectedUsers: c.AffectedUsers,
			Status:        c.Status,
		})
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].RiskScore > active[j].RiskScore
	})
	return active
}

// ClusterByCaller returns the ID of the caller's cluster, if any.
func (d *Detector) ClusterByCaller(callerID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byCaller[callerID]
	return id, ok
}

// Cluster returns a copy of the cluster with the given ID.
func (d *Detector) Cluster(id string) (domain.Cluster, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.clusters {
		if c.ID == id {
			out := *c
			out.Callers = append([]string(nil), c.Callers...)
			return out, true
		}
	}
	return domain.Cluster{}, false
}

// Count returns the total number of clusters ever created.
func (d *Detector) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clusters)
}
