package triage

import (
	"time"

	"github.com/nagarseva/nagarseva/internal/spatial"
)

// groupPoint is one member of a candidate merge group: the root, every
// complaint already folded into it, and the incoming report.
type groupPoint struct {
	point     spatial.Point
	createdAt time.Time
}

// eligible applies the merge gates to a candidate group. Size is checked
// against the root's report count; density and temporal clustering are
// derived from mean pairwise distance and time gap over the whole group, not
// just the new point against the root.
func (p *Pipeline) eligible(rootReportCount int, group []groupPoint) bool {
	if rootReportCount >= p.cfg.MaxGroupSize {
		return false
	}
	if meanPairwiseDistance(group) > p.cfg.MaxMeanDistanceMeters {
		return false
	}
	if meanPairwiseTimeGap(group) > p.cfg.MaxMeanTimeGap {
		return false
	}
	return true
}

// meanPairwiseDistance averages haversine distances over all pairs with
// valid coordinates. Groups with fewer than two locatable members have zero
// spread by definition.
func meanPairwiseDistance(group []groupPoint) float64 {
	var sum float64
	var pairs int
	for i := 0; i < len(group); i++ {
		if !group[i].point.Valid() {
			continue
		}
		for j := i + 1; j < len(group); j++ {
			if !group[j].point.Valid() {
				continue
			}
			sum += spatial.HaversineMeters(group[i].point, group[j].point)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func meanPairwiseTimeGap(group []groupPoint) time.Duration {
	var sum time.Duration
	var pairs int
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			gap := group[i].createdAt.Sub(group[j].createdAt)
			if gap < 0 {
				gap = -gap
			}
			sum += gap
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / time.Duration(pairs)
}
