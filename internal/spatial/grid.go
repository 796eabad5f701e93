package spatial

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

const (
	earthRadiusMeters = 6371000.0

	// metersPerDegree is the extent of one degree of latitude. A degree of
	// longitude spans cos(latitude) of this.
	metersPerDegree = 111000.0

	// minCosLat caps the longitude scan width near the poles.
	minCosLat = 0.05
)

// Point is a WGS84 coordinate.
type Point struct {
	Longitude float64
	Latitude  float64
}

// Valid reports whether the point can participate in spatial candidacy.
// (0,0) and out-of-range coordinates are treated as "no location": such
// reports are never indexed and never matched, rather than clustering
// falsely at the origin.
func (p Point) Valid() bool {
	if p.Longitude == 0 && p.Latitude == 0 {
		return false
	}
	return p.Longitude >= -180 && p.Longitude <= 180 &&
		p.Latitude >= -90 && p.Latitude <= 90
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

type cellKey struct {
	lon int
	lat int
}

type entry struct {
	id       uint
	point    Point
	observed time.Time
}

// Index buckets open-complaint locations into a fixed lon/lat grid. The cell
// size is derived from the query radius so a lookup inspects a small, bounded
// neighborhood of cells independent of total volume. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	cellDeg  float64
	cells    map[cellKey][]entry
	location map[uint]cellKey
}

// NewIndex creates an index sized for the given query radius. The cell edge
// spans the radius in latitude; in longitude a cell covers only cos(lat) of
// that, so Query widens its longitude scan per latitude instead of assuming
// a fixed 3x3 neighborhood.
func NewIndex(radiusMeters float64) *Index {
	if radiusMeters <= 0 {
		radiusMeters = 100
	}
	cellDeg := radiusMeters / metersPerDegree
	return &Index{
		cellDeg:  cellDeg,
		cells:    make(map[cellKey][]entry),
		location: make(map[uint]cellKey),
	}
}

func (ix *Index) keyFor(p Point) cellKey {
	return cellKey{
		lon: int(math.Floor(p.Longitude / ix.cellDeg)),
		lat: int(math.Floor(p.Latitude / ix.cellDeg)),
	}
}

// CellKey returns an opaque string key for the cell containing p, usable for
// per-cell mutual exclusion by callers.
func (ix *Index) CellKey(p Point) string {
	k := ix.keyFor(p)
	return fmt.Sprintf("%d:%d", k.lon, k.lat)
}

// spans returns how many cells either side of the center a query at p must
// inspect to cover radiusMeters. Latitude cells span the construction radius
// exactly; longitude cells narrow by cos(lat), so the longitude span grows
// away from the equator.
func (ix *Index) spans(p Point, radiusMeters float64) (lonSpan, latSpan int) {
	cellMeters := ix.cellDeg * metersPerDegree
	latSpan = spanFor(radiusMeters, cellMeters)
	cosLat := math.Cos(p.Latitude * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	lonSpan = spanFor(radiusMeters, cellMeters*cosLat)
	return lonSpan, latSpan
}

func spanFor(radiusMeters, cellMeters float64) int {
	n := int(math.Ceil(radiusMeters / cellMeters))
	if n < 1 {
		n = 1
	}
	return n
}

// ScanCells returns the sorted keys of every cell a Query at p with
// radiusMeters inspects. Callers that need mutual exclusion across a merge
// neighborhood lock these keys; two submissions within radius of each other
// always share at least one key, and the sorted order keeps multi-key
// acquisition deadlock free. Returns nil for invalid points.
func (ix *Index) ScanCells(p Point, radiusMeters float64) []string {
	if !p.Valid() {
		return nil
	}
	lonSpan, latSpan := ix.spans(p, radiusMeters)
	center := ix.keyFor(p)
	keys := make([]string, 0, (2*lonSpan+1)*(2*latSpan+1))
	for dLon := -lonSpan; dLon <= lonSpan; dLon++ {
		for dLat := -latSpan; dLat <= latSpan; dLat++ {
			keys = append(keys, fmt.Sprintf("%d:%d", center.lon+dLon, center.lat+dLat))
		}
	}
	sort.Strings(keys)
	return keys
}

// Insert adds or moves a complaint location. Invalid points are ignored.
func (ix *Index) Insert(id uint, p Point, observed time.Time) {
	if !p.Valid() {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(id)
	k := ix.keyFor(p)
	ix.cells[k] = append(ix.cells[k], entry{id: id, point: p, observed: observed})
	ix.location[id] = k
}

// Remove drops a complaint from the index, if present.
func (ix *Index) Remove(id uint) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *Index) removeLocked(id uint) {
	k, ok := ix.location[id]
	if !ok {
		return
	}
	entries := ix.cells[k]
	for i, e := range entries {
		if e.id == id {
			entries[i] = entries[len(entries)-1]
			entries = entries[:len(entries)-1]
			break
		}
	}
	if len(entries) == 0 {
		delete(ix.cells, k)
	} else {
		ix.cells[k] = entries
	}
	delete(ix.location, id)
}

// Query returns the ids of indexed complaints within radiusMeters of p,
// inspecting only the cells the radius can reach at p's latitude and
// filtering by exact haversine distance.
func (ix *Index) Query(p Point, radiusMeters float64) []uint {
	if !p.Valid() {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	lonSpan, latSpan := ix.spans(p, radiusMeters)
	center := ix.keyFor(p)
	var ids []uint
	for dLon := -lonSpan; dLon <= lonSpan; dLon++ {
		for dLat := -latSpan; dLat <= latSpan; dLat++ {
			k := cellKey{lon: center.lon + dLon, lat: center.lat + dLat}
			for _, e := range ix.cells[k] {
				if HaversineMeters(p, e.point) <= radiusMeters {
					ids = append(ids, e.id)
				}
			}
		}
	}
	return ids
}

// IDs returns all indexed complaint ids.
func (ix *Index) IDs() []uint {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := make([]uint, 0, len(ix.location))
	for id := range ix.location {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of indexed complaints.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.location)
}

// Sweep evicts entries older than maxAge and entries the keep predicate
// rejects (closed complaints). Entries younger than maxAge whose complaint
// is still open are kept matchable regardless of age, so an old pending
// complaint keeps absorbing duplicates until the horizon passes. Returns the
// number of evicted entries.
func (ix *Index) Sweep(now time.Time, maxAge time.Duration, keep func(id uint) bool) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var stale []uint
	for _, entries := range ix.cells {
		for _, e := range entries {
			if now.Sub(e.observed) > maxAge || (keep != nil && !keep(e.id)) {
				stale = append(stale, e.id)
			}
		}
	}
	for _, id := range stale {
		ix.removeLocked(id)
	}
	return len(stale)
}
