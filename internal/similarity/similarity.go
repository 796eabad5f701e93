package similarity

import (
	"sort"
	"strings"
	"time"

	"github.com/nagarseva/nagarseva/internal/spatial"
)

// DefaultThreshold is the similarity score at or above which two reports are
// considered duplicates.
const DefaultThreshold = 0.70

// Weights are the sub-score weights. All sub-scores are normalized to [0,1]
// before weighting.
type Weights struct {
	Title       float64
	Description float64
	Department  float64
	Location    float64
	Time        float64
	Sentiment   float64
}

// DefaultWeights returns the standard sub-score weighting.
func DefaultWeights() Weights {
	return Weights{
		Title:       0.25,
		Description: 0.25,
		Department:  0.15,
		Location:    0.20,
		Time:        0.10,
		Sentiment:   0.05,
	}
}

// Config tunes the similarity engine. The defaults mirror the merge gate:
// 100m radius, 2h window, 0.70 threshold.
type Config struct {
	Threshold    float64
	RadiusMeters float64
	TimeWindow   time.Duration
	Weights      Weights
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:    DefaultThreshold,
		RadiusMeters: 100,
		TimeWindow:   2 * time.Hour,
		Weights:      DefaultWeights(),
	}
}

// Item is the projection of a complaint the engine scores on.
type Item struct {
	ID            uint
	Title         string
	Description   string
	Department    string
	Point         spatial.Point
	CreatedAt     time.Time
	SentimentBand int
}

// Match pairs a candidate id with its similarity against the subject.
type Match struct {
	ID    uint
	Score float64
}

// Score computes the weighted similarity of two reports in [0,1].
func Score(cfg Config, a, b Item) float64 {
	w := cfg.Weights

	titleW, descW := w.Title, w.Description
	descScore := 0.0
	if a.Description == "" || b.Description == "" {
		// Title-only participation: a report without description text still
		// matches on its title, with the description weight folded in.
		titleW += descW
		descW = 0
	} else {
		descScore = jaccard(tokens(a.Description), tokens(b.Description))
	}

	score := titleW * jaccard(tokens(a.Title), tokens(b.Title))
	score += descW * descScore

	if a.Department != "" && a.Department == b.Department {
		score += w.Department
	}

	if cfg.RadiusMeters > 0 && a.Point.Valid() && b.Point.Valid() {
		d := spatial.HaversineMeters(a.Point, b.Point)
		if d <= cfg.RadiusMeters {
			score += w.Location * (1 - d/cfg.RadiusMeters)
		}
	}

	if cfg.TimeWindow > 0 {
		dt := a.CreatedAt.Sub(b.CreatedAt)
		if dt < 0 {
			dt = -dt
		}
		if dt <= cfg.TimeWindow {
			score += w.Time * (1 - float64(dt)/float64(cfg.TimeWindow))
		}
	}

	if a.SentimentBand == b.SentimentBand {
		score += w.Sentiment
	}

	return score
}

// Rank scores the subject against every candidate and returns matches at or
// above the threshold, highest first.
func Rank(cfg Config, subject Item, candidates []Item) []Match {
	var out []Match
	for _, c := range candidates {
		if s := Score(cfg, subject, c); s >= cfg.Threshold {
			out = append(out, Match{ID: c.ID, Score: s})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func tokens(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r == '\'' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127)
	}) {
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
