package jobs

import (
	"log"
	"time"

	"github.com/nagarseva/nagarseva/internal/spatial"
)

// OpenChecker reports which complaints are still open. Satisfied by
// *database.ComplaintStore.
type OpenChecker interface {
	OpenIDs(ids []uint) (map[uint]bool, error)
}

// IndexSweeper periodically evicts spatial index entries whose complaint is
// resolved, merged, or deleted, plus entries past the age horizon, to bound
// index memory. A complaint that is old but still open keeps matching until
// the horizon passes.
type IndexSweeper struct {
	index    *spatial.Index
	store    OpenChecker
	interval time.Duration
	maxAge   time.Duration
}

// NewIndexSweeper creates a sweeper. Zero interval defaults to 10 minutes,
// zero maxAge to 72 hours.
func NewIndexSweeper(index *spatial.Index, store OpenChecker, interval, maxAge time.Duration) *IndexSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}
	return &IndexSweeper{index: index, store: store, interval: interval, maxAge: maxAge}
}

// Run executes one sweep iteration. Returns the number of evicted entries.
func (j *IndexSweeper) Run() (int, error) {
	ids := j.index.IDs()
	if len(ids) == 0 {
		return 0, nil
	}

	open, err := j.store.OpenIDs(ids)
	if err != nil {
		return 0, err
	}

	evicted := j.index.Sweep(time.Now(), j.maxAge, func(id uint) bool {
		return open[id]
	})
	return evicted, nil
}

// Start begins periodic sweeps until stop is closed.
func (j *IndexSweeper) Start(stop <-chan struct{}) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			evicted, err := j.Run()
			if err != nil {
				log.Printf("Index sweep error: %v", err)
			} else if evicted > 0 {
				log.Printf("Index sweep: evicted %d entries (%d remain)", evicted, j.index.Len())
			}
		case <-stop:
			log.Println("Index sweeper stopped")
			return
		}
	}
}
