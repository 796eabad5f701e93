package database

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/nagarseva/nagarseva/internal/spatial"
)

// ErrVersionConflict is returned when a compare-and-swap root update loses
// the race. Callers retry the whole grouping decision; the increment is
// never silently dropped.
var ErrVersionConflict = errors.New("complaint version conflict")

// ComplaintStore is the persistence collaborator for the triage core. It
// exposes only point-radius reads, creation, and optimistic updates; the
// core never assumes anything else about the storage engine.
type ComplaintStore struct {
	db *gorm.DB
}

// NewComplaintStore creates a store backed by the given database handle.
func NewComplaintStore(db *gorm.DB) *ComplaintStore {
	return &ComplaintStore{db: db}
}

// CreateComplaint persists a new complaint row.
func (s *ComplaintStore) CreateComplaint(c *Complaint) error {
	return s.db.Create(c).Error
}

// GetByID returns a complaint by primary key.
func (s *ComplaintStore) GetByID(id uint) (*Complaint, error) {
	var c Complaint
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByUUID returns a complaint by its public UUID.
func (s *ComplaintStore) GetByUUID(uuid string) (*Complaint, error) {
	var c Complaint
	if err := s.db.Where("uuid = ?", uuid).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ComplaintsByID returns complaints among the given ids that were created
// after since and are still mergeable targets: open roots, plus merged rows
// so the caller can redirect them to their root.
func (s *ComplaintStore) ComplaintsByID(ids []uint, since time.Time) ([]Complaint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Complaint
	err := s.db.Where("id IN ?", ids).
		Where("status IN ?", []ComplaintStatus{
			ComplaintStatusPending,
			ComplaintStatusWorking,
			ComplaintStatusMerged,
		}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// OpenComplaintsNear returns open complaints within radiusMeters of p
// created after since. This is the storage-level fallback for callers
// without an in-memory index: a coarse bounding box in SQL, exact haversine
// filtering in Go.
func (s *ComplaintStore) OpenComplaintsNear(p spatial.Point, radiusMeters float64, since time.Time) ([]Complaint, error) {
	if !p.Valid() {
		return nil, nil
	}

	latDelta := radiusMeters / 111000.0
	lonDelta := latDelta / math.Cos(p.Latitude*math.Pi/180)

	var rows []Complaint
	err := s.db.Where("has_location = ?", true).
		Where("status IN ?", []ComplaintStatus{ComplaintStatusPending, ComplaintStatusWorking}).
		Where("created_at >= ?", since).
		Where("latitude BETWEEN ? AND ?", p.Latitude-latDelta, p.Latitude+latDelta).
		Where("longitude BETWEEN ? AND ?", p.Longitude-lonDelta, p.Longitude+lonDelta).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, c := range rows {
		if spatial.HaversineMeters(p, c.Point()) <= radiusMeters {
			out = append(out, c)
		}
	}
	return out, nil
}

// OpenRoots returns all open root complaints. Used to warm the spatial index
// at startup.
func (s *ComplaintStore) OpenRoots() ([]Complaint, error) {
	var out []Complaint
	err := s.db.Where("merged_into_id IS NULL").
		Where("status IN ?", []ComplaintStatus{ComplaintStatusPending, ComplaintStatusWorking}).
		Find(&out).Error
	return out, err
}

// OpenIDs returns which of the given complaints are still open. Used by the
// spatial index sweeper to evict closed complaints.
func (s *ComplaintStore) OpenIDs(ids []uint) (map[uint]bool, error) {
	if len(ids) == 0 {
		return map[uint]bool{}, nil
	}
	var rows []Complaint
	err := s.db.Select("id").
		Where("id IN ?", ids).
		Where("status IN ?", []ComplaintStatus{ComplaintStatusPending, ComplaintStatusWorking}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	open := make(map[uint]bool, len(rows))
	for _, c := range rows {
		open[c.ID] = true
	}
	return open, nil
}

// ResolveRoot follows the MergedInto pointer at most one hop. Merges always
// target the current canonical root, so a single hop terminates.
func (s *ComplaintStore) ResolveRoot(c *Complaint) (*Complaint, error) {
	if c.MergedIntoID == nil {
		return c, nil
	}
	root, err := s.GetByID(*c.MergedIntoID)
	if err != nil {
		return nil, fmt.Errorf("resolve root of complaint %d: %w", c.ID, err)
	}
	if root.MergedIntoID != nil {
		return nil, fmt.Errorf("complaint %d merged into non-root %d", c.ID, root.ID)
	}
	return root, nil
}

// GroupMembers returns the complaints folded into the given root.
func (s *ComplaintStore) GroupMembers(rootID uint) ([]Complaint, error) {
	var out []Complaint
	err := s.db.Where("merged_into_id = ?", rootID).Order("created_at ASC").Find(&out).Error
	return out, err
}

// MergeIntoRoot atomically folds a new duplicate into a root: the duplicate
// row is created with status merged, the root's report count is incremented
// and its priority recomputed, and an audit row is written. The root update
// is guarded by the expected version; on a lost race nothing is written and
// ErrVersionConflict is returned.
func (s *ComplaintStore) MergeIntoRoot(dup *Complaint, rootID uint, expectedVersion int, newPriority float64, newBand string, similarity float64, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Complaint{}).
			Where("id = ? AND version = ? AND merged_into_id IS NULL", rootID, expectedVersion).
			Updates(map[string]interface{}{
				"report_count":  gorm.Expr("report_count + 1"),
				"priority":      newPriority,
				"priority_band": newBand,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		dup.Status = ComplaintStatusMerged
		dup.MergedIntoID = &rootID
		if err := tx.Create(dup).Error; err != nil {
			return err
		}

		merge := &ComplaintMerge{
			SourceComplaintID: dup.ID,
			TargetComplaintID: rootID,
			Similarity:        similarity,
			Reason:            reason,
			MergedBy:          "system",
		}
		return tx.Create(merge).Error
	})
}

// ListFilter narrows ListRoots. Zero values mean "any".
type ListFilter struct {
	Status     ComplaintStatus
	Department string
}

// ListRoots returns a page of root complaints, highest priority first, with
// the total row count for the filter. Folded duplicates are reachable through
// their root, not listed.
func (s *ComplaintStore) ListRoots(filter ListFilter, limit, offset int) ([]Complaint, int64, error) {
	q := s.db.Model(&Complaint{}).Where("merged_into_id IS NULL")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Complaint
	err := q.Order("priority DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, err
}

// UpdateStatus transitions a complaint's status, stamping ResolvedAt for
// solved complaints. Administrative transitions only; the triage core never
// deletes rows.
func (s *ComplaintStore) UpdateStatus(id uint, status ComplaintStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == ComplaintStatusSolved {
		now := time.Now()
		updates["resolved_at"] = now
	}
	return s.db.Model(&Complaint{}).Where("id = ?", id).Updates(updates).Error
}

// SetAdminResponse updates the mutable admin-response message.
func (s *ComplaintStore) SetAdminResponse(id uint, message string) error {
	return s.db.Model(&Complaint{}).Where("id = ?", id).Update("admin_response", message).Error
}

// MergeHistory returns the audit rows targeting a root, oldest first.
func (s *ComplaintStore) MergeHistory(rootID uint) ([]ComplaintMerge, error) {
	var out []ComplaintMerge
	err := s.db.Where("target_complaint_id = ?", rootID).Order("created_at ASC").Find(&out).Error
	return out, err
}
