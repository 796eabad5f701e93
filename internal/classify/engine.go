package classify

import (
	"context"
	"log"
	"time"

	"github.com/nagarseva/nagarseva/internal/lexicon"
)

// Scorer names used as breakdown keys.
const (
	SignalKeyword   = "keyword"
	SignalPattern   = "pattern"
	SignalIntensity = "intensity"
	SignalInference = "inference"
)

// Weights are the per-scorer combination weights. They must sum to 1.0.
type Weights struct {
	Keyword   float64
	Pattern   float64
	Intensity float64
	Inference float64
}

// DefaultWeights returns the standard signal weighting.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.40, Pattern: 0.30, Intensity: 0.20, Inference: 0.10}
}

// MinConfidence is the default threshold below which classification falls
// back to the reserved "other" department.
const MinConfidence = 0.30

// InferenceClient is an optional external text-classification oracle. It is
// just one more weighted signal, never authoritative by itself.
type InferenceClient interface {
	Classify(ctx context.Context, text string) (lexicon.Department, float64, error)
}

// Result is a classification decision with its audit trail.
type Result struct {
	Department lexicon.Department
	Confidence float64
	// Breakdown holds the raw per-scorer, per-department scores.
	Breakdown map[string]map[string]float64
	// Degraded is true when the inference collaborator was configured but
	// failed or timed out; the decision was made on the remaining signals.
	Degraded bool
}

// Engine combines the signal scorers into one department decision.
type Engine struct {
	lex              *lexicon.Lexicon
	weights          Weights
	minConfidence    float64
	inference        InferenceClient
	inferenceTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the signal combination weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithMinConfidence overrides the fallback threshold.
func WithMinConfidence(min float64) Option {
	return func(e *Engine) { e.minConfidence = min }
}

// WithInference attaches an external-inference scorer with a hard timeout.
func WithInference(client InferenceClient, timeout time.Duration) Option {
	return func(e *Engine) {
		e.inference = client
		e.inferenceTimeout = timeout
	}
}

// NewEngine creates a classification engine over an immutable lexicon.
func NewEngine(lex *lexicon.Lexicon, opts ...Option) *Engine {
	e := &Engine{
		lex:              lex,
		weights:          DefaultWeights(),
		minConfidence:    MinConfidence,
		inferenceTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify runs all signal scorers over title+description and picks the
// argmax department. Confidence is best/sum over all departments; ties break
// by lexicon declaration order. Pure over the lexicon state: classifying the
// same text twice yields the same result.
func (e *Engine) Classify(ctx context.Context, title, description string) Result {
	text := title
	if description != "" {
		text = title + ". " + description
	}

	keyword := KeywordScores(e.lex, text)
	pattern := PatternScores(e.lex, text)
	intensity := IntensityScores(e.lex, text)
	inference, degraded := e.inferenceScores(ctx, text)

	// Keyword/pattern/intensity scales are open-ended, so each map is
	// max-normalized to [0,1] before weighting. The inference map is already
	// a confidence and is used as-is (normalizing a single-entry map would
	// always promote it to 1.0).
	combined := make(Scores)
	addWeighted(combined, normalize(keyword), e.weights.Keyword)
	addWeighted(combined, normalize(pattern), e.weights.Pattern)
	addWeighted(combined, normalize(intensity), e.weights.Intensity)
	addWeighted(combined, inference, e.weights.Inference)

	best, sum := lexicon.DepartmentOther, 0.0
	bestScore := 0.0
	for _, dept := range e.lex.Departments() {
		s := combined[dept]
		sum += s
		if s > bestScore {
			bestScore = s
			best = dept
		}
	}

	confidence := 0.0
	if sum > 0 {
		confidence = bestScore / sum
	}
	if confidence < e.minConfidence {
		best = lexicon.DepartmentOther
	}

	return Result{
		Department: best,
		Confidence: confidence,
		Degraded:   degraded,
		Breakdown: map[string]map[string]float64{
			SignalKeyword:   plain(keyword),
			SignalPattern:   plain(pattern),
			SignalIntensity: plain(intensity),
			SignalInference: plain(inference),
		},
	}
}

// inferenceScores consults the external oracle, degrading to a zero
// contribution on absence, error, or timeout. The call runs fully before any
// pipeline critical section; a timeout here never fails classification.
func (e *Engine) inferenceScores(ctx context.Context, text string) (Scores, bool) {
	if e.inference == nil {
		return Scores{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, e.inferenceTimeout)
	defer cancel()

	dept, confidence, err := e.inference.Classify(ctx, text)
	if err != nil {
		log.Printf("Inference scorer unavailable, degrading to remaining signals: %v", err)
		return Scores{}, true
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Scores{dept: confidence}, false
}

func normalize(s Scores) Scores {
	var max float64
	for _, v := range s {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return Scores{}
	}
	out := make(Scores, len(s))
	for d, v := range s {
		out[d] = v / max
	}
	return out
}

func addWeighted(dst, src Scores, weight float64) {
	for d, v := range src {
		dst[d] += v * weight
	}
}

func plain(s Scores) map[string]float64 {
	out := make(map[string]float64, len(s))
	for d, v := range s {
		out[string(d)] = v
	}
	return out
}
