package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/nagarseva/nagarseva/internal/spatial"
)

// JSONB is a custom type for PostgreSQL JSONB columns. SQLite (used in
// tests) hands the value back as a string, so both are accepted.
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// ComplaintStatus represents the lifecycle state of a complaint
type ComplaintStatus string

const (
	ComplaintStatusPending ComplaintStatus = "pending"
	ComplaintStatusWorking ComplaintStatus = "working"
	ComplaintStatusSolved  ComplaintStatus = "solved"
	// ComplaintStatusFake is a terminal alias that externally behaves like
	// deleted.
	ComplaintStatusFake    ComplaintStatus = "fake"
	ComplaintStatusDeleted ComplaintStatus = "deleted"
	ComplaintStatusMerged  ComplaintStatus = "merged"
)

// IsOpen reports whether the complaint can still absorb duplicates.
func (s ComplaintStatus) IsOpen() bool {
	return s == ComplaintStatusPending || s == ComplaintStatusWorking
}

// Complaint is the unit of work: a citizen-reported municipal issue.
// A complaint is either a root (MergedIntoID nil) or merged into a root;
// merge chains never form, a merged complaint points directly at its root.
type Complaint struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UUID        string `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	ReporterID  string `gorm:"size:64;index" json:"reporter_id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	// Location. HasLocation is false for reports without usable coordinates;
	// such complaints never participate in spatial candidacy.
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	HasLocation bool    `gorm:"default:false;index" json:"has_location"`
	Address     string  `gorm:"type:varchar(255)" json:"address"`

	// Classification output, with the raw per-scorer score breakdown kept
	// for auditability.
	Department  string  `gorm:"type:varchar(50);index" json:"department"`
	Confidence  float64 `gorm:"type:decimal(3,2)" json:"confidence"`
	AIProcessed bool    `gorm:"default:false" json:"ai_processed"`
	Breakdown   JSONB   `gorm:"type:jsonb" json:"breakdown"`

	Priority     float64 `json:"priority"`
	PriorityBand string  `gorm:"type:varchar(20)" json:"priority_band"`

	// Aggregation. ReportCount on a root equals 1 plus the number of
	// complaints merged into it and only ever increases.
	ReportCount   int    `gorm:"default:1" json:"report_count"`
	MergedIntoID  *uint  `gorm:"index" json:"merged_into_id,omitempty"`
	AdminResponse string `gorm:"type:text" json:"admin_response"`

	Status ComplaintStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Version guards concurrent root mutation via compare-and-swap updates.
	Version int `gorm:"default:1" json:"version"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	MergedInto *Complaint `gorm:"foreignKey:MergedIntoID" json:"-"`
}

func (Complaint) TableName() string {
	return "complaints"
}

// Point returns the complaint's coordinates.
func (c *Complaint) Point() spatial.Point {
	return spatial.Point{Longitude: c.Longitude, Latitude: c.Latitude}
}

// IsRoot reports whether the complaint is a canonical record rather than a
// folded duplicate.
func (c *Complaint) IsRoot() bool {
	return c.MergedIntoID == nil
}

// ComplaintMerge tracks when a duplicate report is folded into a root.
// This provides an audit trail for merge operations and backs the explicit
// split/undo administrative action.
type ComplaintMerge struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SourceComplaintID uint      `gorm:"not null;index" json:"source_complaint_id"` // The report that was folded away
	TargetComplaintID uint      `gorm:"not null;index" json:"target_complaint_id"` // The root that absorbed it
	Similarity        float64   `gorm:"type:decimal(3,2)" json:"similarity"`
	Reason            string    `gorm:"type:text" json:"reason"`
	MergedBy          string    `gorm:"type:varchar(50);not null" json:"merged_by"` // 'system' or an operator id
	CreatedAt         time.Time `json:"created_at"`
}

func (ComplaintMerge) TableName() string {
	return "complaint_merges"
}
