package triage

import (
	"testing"
	"time"

	"github.com/nagarseva/nagarseva/internal/spatial"
)

func testGroup(offsetsMeters []float64, gaps []time.Duration) []groupPoint {
	base := spatial.Point{Longitude: 77.5946, Latitude: 12.9716}
	at := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	group := make([]groupPoint, len(offsetsMeters))
	for i := range offsetsMeters {
		group[i] = groupPoint{
			point:     metersNorth(base, offsetsMeters[i]),
			createdAt: at.Add(gaps[i]),
		}
	}
	return group
}

func TestEligible_SizeCap(t *testing.T) {
	p := &Pipeline{cfg: DefaultConfig()}
	group := testGroup([]float64{0, 10}, []time.Duration{0, time.Minute})

	if !p.eligible(9, group) {
		t.Error("group below capacity must be eligible")
	}
	if p.eligible(10, group) {
		t.Error("group at capacity must be ineligible")
	}
}

func TestEligible_DensityGate(t *testing.T) {
	p := &Pipeline{cfg: DefaultConfig()}

	tight := testGroup([]float64{0, 20, 40}, []time.Duration{0, time.Minute, 2 * time.Minute})
	if !p.eligible(3, tight) {
		t.Error("tight cluster must be eligible")
	}

	// Mean pairwise distance over {0, 200, 400}m is 800/3 = ~267m > 150m.
	sprawl := testGroup([]float64{0, 200, 400}, []time.Duration{0, time.Minute, 2 * time.Minute})
	if p.eligible(3, sprawl) {
		t.Error("a sprawling group must stop growing")
	}
}

func TestEligible_TemporalGate(t *testing.T) {
	p := &Pipeline{cfg: DefaultConfig()}

	// Mean pairwise gap over {0h, 4h, 8h} is 16h/3 = ~5.3h > 3h.
	drawnOut := testGroup([]float64{0, 10, 20}, []time.Duration{0, 4 * time.Hour, 8 * time.Hour})
	if p.eligible(3, drawnOut) {
		t.Error("a temporally drawn-out group must stop growing")
	}
}

func TestMeanPairwiseDistance_SkipsInvalidPoints(t *testing.T) {
	group := testGroup([]float64{0, 100}, []time.Duration{0, 0})
	group = append(group, groupPoint{point: spatial.Point{}, createdAt: time.Now()})

	d := meanPairwiseDistance(group)
	if d < 95 || d > 105 {
		t.Errorf("invalid points must not dilute the mean: got %f", d)
	}

	if d := meanPairwiseDistance(nil); d != 0 {
		t.Errorf("empty group has zero spread, got %f", d)
	}
}

func TestMeanPairwiseTimeGap(t *testing.T) {
	group := testGroup([]float64{0, 0, 0}, []time.Duration{0, time.Hour, 2 * time.Hour})
	// Pairwise gaps: 1h + 2h + 1h = 4h over 3 pairs.
	want := 4 * time.Hour / 3
	if got := meanPairwiseTimeGap(group); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
