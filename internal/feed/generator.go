package feed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

var regions = []string{
	"Delhi", "Mumbai", "Bangalore", "Chennai", "Kolkata",
	"Hyderabad", "Pune", "Ahmedabad", "Jaipur", "Lucknow",
}

// Generator synthesizes CDR traffic for demo deployments: mostly
// ordinary calls, with a small pool of repeat offenders whose short
// high-volume bursts eventually trip the detector.
type Generator struct {
	rng       *rand.Rand
	offenders []string
	now       func() time.Time
}

// NewGenerator creates a traffic generator seeded for variety.
func NewGenerator(seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))

	offenders := make([]string, 8)
	for i := range offenders {
		offenders[i] = fmt.Sprintf("+919%09d", rng.Intn(1_000_000_000))
	}

	return &Generator{
		rng:       rng,
		offenders: offenders,
		now:       time.Now,
	}
}

// Batch synthesizes n CDRs.
func (g *Generator) Batch(n int) []domain.CDR {
	cdrs := make([]domain.CDR, 0, n)
	for i := 0; i < n; i++ {
		cdrs = append(cdrs, g.next())
	}
	return cdrs
}

func (g *Generator) next() domain.CDR {
	// Roughly a third of traffic comes from the offender pool.
	if g.rng.Float64() < 0.35 {
		return g.fraudulent()
	}
	return g.legitimate()
}

func (g *Generator) legitimate() domain.CDR {
	return domain.CDR{
		CallerID:     g.randomNumber(),
		Destination:  g.randomNumber(),
		Duration:     10 + g.rng.Float64()*290, // 10s to 5m
		Timestamp:    g.now().UTC(),
		OriginRegion: regions[g.rng.Intn(len(regions))],
		TargetRegion: regions[g.rng.Intn(len(regions))],
	}
}

func (g *Generator) fraudulent() domain.CDR {
	caller := g.offenders[g.rng.Intn(len(g.offenders))]

	// Wangiri signature: sub-3s ring-and-cut, stamped into the night
	// window so the ratio signal fires regardless of wall clock.
	ts := g.now().UTC()
	ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 23, ts.Minute(), ts.Second(), 0, time.UTC)

	return domain.CDR{
		CallerID:     caller,
		Destination:  g.randomNumber(),
		Duration:     0.5 + g.rng.Float64()*2,
		Timestamp:    ts,
		OriginRegion: regions[g.rng.Intn(3)],
		TargetRegion: regions[g.rng.Intn(len(regions))],
	}
}

func (g *Generator) randomNumber() string {
	prefixes := []string{"9", "8", "7", "6"}
	return fmt.Sprintf("+91%s%09d", prefixes[g.rng.Intn(len(prefixes))], g.rng.Intn(1_000_000_000))
}
