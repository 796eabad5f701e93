package triage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nagarseva/nagarseva/internal/classify"
	"github.com/nagarseva/nagarseva/internal/database"
	"github.com/nagarseva/nagarseva/internal/events"
	"github.com/nagarseva/nagarseva/internal/lexicon"
	"github.com/nagarseva/nagarseva/internal/priority"
	"github.com/nagarseva/nagarseva/internal/similarity"
	"github.com/nagarseva/nagarseva/internal/spatial"
)

// Input validation errors. Invalid submissions are rejected before the
// pipeline runs, never silently defaulted.
var (
	ErrEmptyTitle         = errors.New("complaint title is empty")
	ErrInvalidCoordinates = errors.New("complaint coordinates are invalid")
)

// ErrMergeContention is returned when the root compare-and-swap kept losing
// after re-evaluating eligibility the configured number of times. The
// submission failed retryably; nothing was written.
var ErrMergeContention = errors.New("merge contention: retries exhausted")

// Store is the capability set the pipeline requires from the persistence
// collaborator.
type Store interface {
	CreateComplaint(c *database.Complaint) error
	GetByID(id uint) (*database.Complaint, error)
	ComplaintsByID(ids []uint, since time.Time) ([]database.Complaint, error)
	ResolveRoot(c *database.Complaint) (*database.Complaint, error)
	GroupMembers(rootID uint) ([]database.Complaint, error)
	MergeIntoRoot(dup *database.Complaint, rootID uint, expectedVersion int, newPriority float64, newBand string, similarity float64, reason string) error
}

// Config tunes the merge gates. The thresholds are deployment tunables, not
// load-bearing truths; defaults match the validated scenarios.
type Config struct {
	RadiusMeters          float64
	TimeWindow            time.Duration
	SimilarityThreshold   float64
	MaxGroupSize          int
	MaxMeanDistanceMeters float64
	MaxMeanTimeGap        time.Duration
	MergeRetries          int
}

// DefaultConfig returns the standard tuning: 100m radius, 2h window, 0.70
// similarity, groups capped at 10.
func DefaultConfig() Config {
	return Config{
		RadiusMeters:          100,
		TimeWindow:            2 * time.Hour,
		SimilarityThreshold:   similarity.DefaultThreshold,
		MaxGroupSize:          10,
		MaxMeanDistanceMeters: 150,
		MaxMeanTimeGap:        3 * time.Hour,
		MergeRetries:          3,
	}
}

// Submission is a validated-on-entry citizen report.
type Submission struct {
	ReporterID  string
	Title       string
	Description string
	Address     string
	Longitude   float64
	Latitude    float64
	HasLocation bool
	SubmittedAt time.Time // zero means now
}

// Outcome is the pipeline's decision: a submission always yields exactly
// "created as new issue" or "merged into an existing issue".
type Outcome struct {
	Created    bool
	Complaint  *database.Complaint
	Root       *database.Complaint // set when merged
	Similarity float64
}

// Pipeline runs one triage execution per incoming complaint: classify,
// prioritize, find duplicates, merge or create.
type Pipeline struct {
	cfg        Config
	lex        *lexicon.Lexicon
	store      Store
	index      *spatial.Index
	classifier *classify.Engine
	priorities *priority.Engine
	publisher  events.Publisher
	locks      *keyedMutex
}

// NewPipeline wires the triage engines together. A nil publisher silences
// event emission.
func NewPipeline(cfg Config, lex *lexicon.Lexicon, store Store, index *spatial.Index, classifier *classify.Engine, priorities *priority.Engine, publisher events.Publisher) *Pipeline {
	if publisher == nil {
		publisher = events.NewFanout()
	}
	return &Pipeline{
		cfg:        cfg,
		lex:        lex,
		store:      store,
		index:      index,
		classifier: classifier,
		priorities: priorities,
		publisher:  publisher,
		locks:      newKeyedMutex(),
	}
}

// Process triages one submission. The external-inference call inside
// classification runs fully before the spatial critical section and never
// holds a lock.
func (p *Pipeline) Process(ctx context.Context, sub Submission) (*Outcome, error) {
	sub, err := p.validate(sub)
	if err != nil {
		return nil, err
	}

	// Classification and priority are pure and run unlocked.
	result := p.classifier.Classify(ctx, sub.Title, sub.Description)
	point := spatial.Point{Longitude: sub.Longitude, Latitude: sub.Latitude}
	score, band := p.priorities.Score(priority.Input{
		Department:  result.Department,
		Title:       sub.Title,
		Description: sub.Description,
		SubmittedAt: sub.SubmittedAt,
		Point:       point,
		HasLocation: sub.HasLocation,
	})

	complaint := p.newComplaint(sub, result, score, band)

	// No usable location: the report can never be a spatial merge candidate,
	// so it becomes its own root immediately.
	if !sub.HasLocation {
		return p.createRoot(complaint)
	}

	// Critical section: candidate evaluation and the mutate-or-insert
	// decision are serialized over the full scan neighborhood, so two
	// duplicates straddling a cell boundary contend on a shared cell and
	// cannot both become roots.
	cells := p.index.ScanCells(point, p.cfg.RadiusMeters)
	p.locks.LockKeys(cells)
	defer p.locks.UnlockKeys(cells)

	for attempt := 0; attempt <= p.cfg.MergeRetries; attempt++ {
		root, match, err := p.findMergeTarget(complaint, point, sub.SubmittedAt)
		if err != nil {
			return nil, err
		}
		if root == nil {
			return p.createRoot(complaint)
		}

		newPriority, newBand := priority.RecomputeOnMerge(root.Priority, complaint.Priority)
		reason := fmt.Sprintf("similarity %.2f within %.0fm and %s of issue %s",
			match.Score, p.cfg.RadiusMeters, p.cfg.TimeWindow, root.UUID)

		err = p.store.MergeIntoRoot(complaint, root.ID, root.Version, newPriority, string(newBand), match.Score, reason)
		if errors.Is(err, database.ErrVersionConflict) {
			log.Printf("Root %s changed underneath merge of %s, re-evaluating (attempt %d)",
				root.UUID, complaint.UUID, attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		root.ReportCount++
		root.Priority = newPriority
		root.PriorityBand = string(newBand)
		root.Version++

		p.publisher.Publish(events.Event{
			Type:          events.TypeComplaintMerged,
			ComplaintUUID: complaint.UUID,
			RootUUID:      root.UUID,
			Department:    root.Department,
			Priority:      root.Priority,
			Band:          root.PriorityBand,
			ReportCount:   root.ReportCount,
			OccurredAt:    time.Now(),
		})
		p.publisher.Publish(events.Event{
			Type:          events.TypePriorityChanged,
			ComplaintUUID: root.UUID,
			Department:    root.Department,
			Priority:      root.Priority,
			Band:          root.PriorityBand,
			ReportCount:   root.ReportCount,
			OccurredAt:    time.Now(),
		})

		return &Outcome{Created: false, Complaint: complaint, Root: root, Similarity: match.Score}, nil
	}

	return nil, ErrMergeContention
}

// validate rejects bad input and normalizes the (0,0) sentinel to "no
// location" so it can never cluster at the origin.
func (p *Pipeline) validate(sub Submission) (Submission, error) {
	if sub.Title == "" {
		return sub, ErrEmptyTitle
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	if sub.HasLocation {
		point := spatial.Point{Longitude: sub.Longitude, Latitude: sub.Latitude}
		if sub.Longitude == 0 && sub.Latitude == 0 {
			sub.HasLocation = false
		} else if !point.Valid() {
			return sub, fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinates, sub.Longitude, sub.Latitude)
		}
	}
	return sub, nil
}

func (p *Pipeline) newComplaint(sub Submission, result classify.Result, score float64, band priority.Band) *database.Complaint {
	breakdown := make(database.JSONB, len(result.Breakdown)+1)
	for signal, scores := range result.Breakdown {
		breakdown[signal] = scores
	}
	breakdown["degraded"] = result.Degraded

	return &database.Complaint{
		UUID:         uuid.New().String(),
		ReporterID:   sub.ReporterID,
		Title:        sub.Title,
		Description:  sub.Description,
		Longitude:    sub.Longitude,
		Latitude:     sub.Latitude,
		HasLocation:  sub.HasLocation,
		Address:      sub.Address,
		Department:   string(result.Department),
		Confidence:   result.Confidence,
		AIProcessed:  true,
		Breakdown:    breakdown,
		Priority:     score,
		PriorityBand: string(band),
		ReportCount:  1,
		Status:       database.ComplaintStatusPending,
		Version:      1,
		CreatedAt:    sub.SubmittedAt,
	}
}

// findMergeTarget returns the highest-similarity eligible root for the new
// complaint, or nil when it should become its own root.
func (p *Pipeline) findMergeTarget(c *database.Complaint, point spatial.Point, at time.Time) (*database.Complaint, *similarity.Match, error) {
	ids := p.index.Query(point, p.cfg.RadiusMeters)
	if len(ids) == 0 {
		return nil, nil, nil
	}

	since := at.Add(-p.cfg.TimeWindow)
	candidates, err := p.store.ComplaintsByID(ids, since)
	if err != nil {
		return nil, nil, fmt.Errorf("load merge candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	simCfg := similarity.Config{
		Threshold:    p.cfg.SimilarityThreshold,
		RadiusMeters: p.cfg.RadiusMeters,
		TimeWindow:   p.cfg.TimeWindow,
		Weights:      similarity.DefaultWeights(),
	}
	subject := p.similarityItem(c)

	byID := make(map[uint]*database.Complaint, len(candidates))
	items := make([]similarity.Item, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]
		if cand.Department != c.Department {
			continue
		}
		byID[cand.ID] = cand
		items = append(items, p.similarityItem(cand))
	}

	matches := similarity.Rank(simCfg, subject, items)
	if len(matches) == 0 {
		return nil, nil, nil
	}

	// Group matches by their canonical root. A candidate that is itself
	// merged redirects to its root; merging never targets a non-root.
	type rootGroup struct {
		root *database.Complaint
		best similarity.Match
	}
	groups := make(map[uint]*rootGroup)
	for _, m := range matches {
		cand := byID[m.ID]
		root, err := p.store.ResolveRoot(cand)
		if err != nil {
			return nil, nil, err
		}
		if !root.Status.IsOpen() {
			continue
		}
		if g, ok := groups[root.ID]; !ok || m.Score > g.best.Score {
			groups[root.ID] = &rootGroup{root: root, best: m}
		}
	}

	ordered := make([]*rootGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].best.Score > ordered[j].best.Score })

	for _, g := range ordered {
		members, err := p.store.GroupMembers(g.root.ID)
		if err != nil {
			return nil, nil, err
		}
		group := make([]groupPoint, 0, len(members)+2)
		group = append(group, groupPoint{point: g.root.Point(), createdAt: g.root.CreatedAt})
		for _, m := range members {
			group = append(group, groupPoint{point: m.Point(), createdAt: m.CreatedAt})
		}
		group = append(group, groupPoint{point: point, createdAt: at})

		if p.eligible(g.root.ReportCount, group) {
			match := g.best
			return g.root, &match, nil
		}
	}
	return nil, nil, nil
}

func (p *Pipeline) similarityItem(c *database.Complaint) similarity.Item {
	return similarity.Item{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Department:    c.Department,
		Point:         c.Point(),
		CreatedAt:     c.CreatedAt,
		SentimentBand: classify.SentimentBand(p.lex, c.Title+" "+c.Description),
	}
}

func (p *Pipeline) createRoot(c *database.Complaint) (*Outcome, error) {
	if err := p.store.CreateComplaint(c); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	if c.HasLocation {
		p.index.Insert(c.ID, c.Point(), c.CreatedAt)
	}

	p.publisher.Publish(events.Event{
		Type:          events.TypeComplaintCreated,
		ComplaintUUID: c.UUID,
		Department:    c.Department,
		Priority:      c.Priority,
		Band:          c.PriorityBand,
		ReportCount:   c.ReportCount,
		OccurredAt:    time.Now(),
	})

	return &Outcome{Created: true, Complaint: c}, nil
}
