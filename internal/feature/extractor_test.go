package feature

import (
	"fmt"
	"testing"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
)

func cdr(caller string, duration float64, ts time.Time, origin, target string) domain.CDR {
	return domain.CDR{
		CallerID:     caller,
		Destination:  "dest",
		Duration:     duration,
		Timestamp:    ts,
		OriginRegion: origin,
		TargetRegion: target,
	}
}

func TestExtractorWindowBound(t *testing.T) {
	e := NewExtractor(1000)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 1500; i++ {
		e.Add("caller-1", cdr("caller-1", float64(i), base.Add(time.Duration(i)*time.Second), "A", "B"))
	}

	if got := e.WindowSize("caller-1"); got != 1000 {
		t.Fatalf("expected window size 1000, got %d", got)
	}

	// Remaining records must be the most recent 1000 in arrival order.
	w := e.Window("caller-1")
	if w[0].Duration != 500 {
		t.Errorf("expected oldest surviving record to have duration 500, got %v", w[0].Duration)
	}
	if w[len(w)-1].Duration != 1499 {
		t.Errorf("expected newest record to have duration 1499, got %v", w[len(w)-1].Duration)
	}
	for i := 1; i < len(w); i++ {
		if w[i].Duration != w[i-1].Duration+1 {
			t.Fatalf("arrival order broken at index %d", i)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(1000)
	at23 := time.Date(2025, 6, 1, 23, 15, 0, 0, time.UTC)

	e.Add("c", cdr("c", 10, at23, "A", "X"))
	e.Add("c", cdr("c", 20, at23.Add(time.Minute), "B", "X"))

	fv := e.Extract("c")

	if fv.AvgDuration != 15.0 {
		t.Errorf("avg duration: expected 15.0, got %v", fv.AvgDuration)
	}
	if fv.TotalCalls != 2.0 {
		t.Errorf("total calls: expected 2.0, got %v", fv.TotalCalls)
	}
	if fv.NightRatio != 1.0 {
		t.Errorf("night ratio: expected 1.0, got %v", fv.NightRatio)
	}
	if fv.OriginRegions != 2.0 {
		t.Errorf("origin regions: expected 2.0, got %v", fv.OriginRegions)
	}
	if fv.TargetRegions != 1.0 {
		t.Errorf("target regions: expected 1.0, got %v", fv.TargetRegions)
	}
}

func TestExtractUnknownCaller(t *testing.T) {
	e := NewExtractor(1000)

	fv := e.Extract("never-seen")
	zero := fv.AvgDuration == 0 && fv.TotalCalls == 0 && fv.NightRatio == 0 &&
		fv.OriginRegions == 0 && fv.TargetRegions == 0
	if !zero {
		t.Errorf("expected zero vector for unknown caller, got %+v", fv)
	}
}

func TestNightWindowBoundaries(t *testing.T) {
	cases := []struct {
		hour  int
		night bool
	}{
		{21, false},
		{22, true},
		{23, true},
		{0, true},
		{5, true},
		{6, false},
		{12, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("hour_%d", tc.hour), func(t *testing.T) {
			e := NewExtractor(10)
			ts := time.Date(2025, 6, 1, tc.hour, 30, 0, 0, time.UTC)
			e.Add("c", cdr("c", 5, ts, "A", "B"))

			fv := e.Extract("c")
			want := 0.0
			if tc.night {
				want = 1.0
			}
			if fv.NightRatio != want {
				t.Errorf("hour %d: expected night ratio %v, got %v", tc.hour, want, fv.NightRatio)
			}
		})
	}
}

func TestStats(t *testing.T) {
	e := NewExtractor(10)
	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	last := first.Add(2 * time.Hour)

	e.Add("c", cdr("c", 30, first, "A", "X"))
	e.Add("c", cdr("c", 60, last, "A", "Y"))

	stats := e.Stats("c")
	if stats.TotalCalls != 2 {
		t.Errorf("expected 2 total calls, got %d", stats.TotalCalls)
	}
	if stats.AvgDuration != 45.0 {
		t.Errorf("expected avg duration 45, got %v", stats.AvgDuration)
	}
	if stats.UniqueTargetRegions != 2 {
		t.Errorf("expected 2 target regions, got %d", stats.UniqueTargetRegions)
	}
	if stats.LastCall != last.Format(time.RFC3339) {
		t.Errorf("expected last call %s, got %s", last.Format(time.RFC3339), stats.LastCall)
	}

	empty := e.Stats("unknown")
	if empty.TotalCalls != 0 || empty.LastCall != "" {
		t.Errorf("expected empty stats for unknown caller, got %+v", empty)
	}
}
