package priority

import (
	"time"

	"github.com/nagarseva/nagarseva/internal/classify"
	"github.com/nagarseva/nagarseva/internal/lexicon"
	"github.com/nagarseva/nagarseva/internal/spatial"
)

// Band is a discrete priority tier derived from the numeric score.
type Band string

const (
	BandLow      Band = "low"
	BandMedium   Band = "medium"
	BandHigh     Band = "high"
	BandCritical Band = "critical"
)

// Band cut points. Downstream sorting and alerting depend on these, so they
// are named constants rather than inline numbers.
const (
	CriticalThreshold = 8.0
	HighThreshold     = 5.0
	MediumThreshold   = 3.0

	// MaxScore caps the numeric priority.
	MaxScore = 20.0

	// MergeBump is added per extra report when a duplicate is absorbed.
	MergeBump = 0.5
)

// Urgency and time-of-submission weighting.
const (
	emergencyWordWeight = 1.5
	importantWordWeight = 0.5
	nightFactor         = 1.25
	weekendFactor       = 1.15
	nightStartHour      = 22
	nightEndHour        = 6
)

// BandFor maps a numeric score to its band.
func BandFor(score float64) Band {
	switch {
	case score >= CriticalThreshold:
		return BandCritical
	case score >= HighThreshold:
		return BandHigh
	case score >= MediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// SensitivityLookup scores proximity to sensitive infrastructure (hospitals,
// schools). Implementations return an additive priority term, 0 when nothing
// sensitive is nearby.
type SensitivityLookup interface {
	Sensitivity(p spatial.Point) float64
}

// NoSensitivity is the stub lookup used when no infrastructure data is
// available.
type NoSensitivity struct{}

// Sensitivity always returns 0.
func (NoSensitivity) Sensitivity(spatial.Point) float64 { return 0 }

// Site is a sensitive location with an additive priority boost at distance 0.
type Site struct {
	Name   string
	Point  spatial.Point
	Boost  float64
	Radius float64 // meters; boost falls off linearly to 0 at this distance
}

// SiteLookup scores proximity against a static list of sensitive sites.
type SiteLookup struct {
	sites []Site
}

// NewSiteLookup creates a lookup over a static site list.
func NewSiteLookup(sites []Site) *SiteLookup {
	return &SiteLookup{sites: sites}
}

// Sensitivity returns the largest linear-falloff boost among all sites.
func (s *SiteLookup) Sensitivity(p spatial.Point) float64 {
	if !p.Valid() {
		return 0
	}
	var best float64
	for _, site := range s.sites {
		if site.Radius <= 0 {
			continue
		}
		d := spatial.HaversineMeters(p, site.Point)
		if d > site.Radius {
			continue
		}
		boost := site.Boost * (1 - d/site.Radius)
		if boost > best {
			best = boost
		}
	}
	return best
}

// Input carries the complaint fields the engine scores on.
type Input struct {
	Department  lexicon.Department
	Title       string
	Description string
	SubmittedAt time.Time
	Point       spatial.Point
	HasLocation bool
}

// Engine computes bounded priority scores.
type Engine struct {
	lex         *lexicon.Lexicon
	sensitivity SensitivityLookup
}

// NewEngine creates a priority engine. A nil lookup stubs sensitivity to 0.
func NewEngine(lex *lexicon.Lexicon, sensitivity SensitivityLookup) *Engine {
	if sensitivity == nil {
		sensitivity = NoSensitivity{}
	}
	return &Engine{lex: lex, sensitivity: sensitivity}
}

// Score combines the department base weight, urgency keyword hits, a
// time-of-submission factor, and location sensitivity into a score clamped
// to [0, MaxScore].
func (e *Engine) Score(in Input) (float64, Band) {
	base := e.lex.PriorityBase(in.Department)

	emergency, important := classify.UrgencyHits(e.lex, in.Title+" "+in.Description)
	urgency := emergencyWordWeight*float64(emergency) + importantWordWeight*float64(important)

	score := (base + urgency) * timeFactor(in.SubmittedAt)

	if in.HasLocation {
		score += e.sensitivity.Sensitivity(in.Point)
	}

	score = clamp(score)
	return score, BandFor(score)
}

// RecomputeOnMerge returns the root's priority after absorbing a duplicate:
// max(existing, incoming) plus a small per-extra-report increment, capped at
// MaxScore. Monotonically non-decreasing by construction.
func RecomputeOnMerge(existing, incoming float64) (float64, Band) {
	score := existing
	if incoming > score {
		score = incoming
	}
	score = clamp(score + MergeBump)
	return score, BandFor(score)
}

// timeFactor raises perceived urgency for night and weekend submissions.
func timeFactor(t time.Time) float64 {
	factor := 1.0
	if hour := t.Hour(); hour >= nightStartHour || hour < nightEndHour {
		factor *= nightFactor
	}
	if day := t.Weekday(); day == time.Saturday || day == time.Sunday {
		factor *= weekendFactor
	}
	return factor
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
