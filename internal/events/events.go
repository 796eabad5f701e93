package events

import (
	"log"
	"time"
)

// Type identifies a logical triage event.
type Type string

const (
	TypeComplaintCreated Type = "complaint.created"
	TypeComplaintMerged  Type = "complaint.merged"
	TypePriorityChanged  Type = "complaint.priority_changed"
)

// Event is the payload the core emits when a triage decision lands. The
// core's obligation ends here; turning an event into email/SMS/voice is some
// other component's job.
type Event struct {
	Type          Type      `json:"type"`
	ComplaintUUID string    `json:"complaint_uuid"`
	RootUUID      string    `json:"root_uuid,omitempty"` // set for merges
	Department    string    `json:"department"`
	Priority      float64   `json:"priority"`
	Band          string    `json:"band"`
	ReportCount   int       `json:"report_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher receives triage events. Implementations must not block the
// triage pipeline; slow deliveries happen on their own goroutines.
type Publisher interface {
	Publish(Event)
}

// Fanout delivers every event to all registered publishers.
type Fanout struct {
	publishers []Publisher
}

// NewFanout creates a fanout over the given publishers.
func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

// Add registers another publisher. Not safe to call after Publish starts
// being invoked; wiring happens once in main.
func (f *Fanout) Add(p Publisher) {
	f.publishers = append(f.publishers, p)
}

// Publish delivers the event to every registered publisher.
func (f *Fanout) Publish(e Event) {
	for _, p := range f.publishers {
		p.Publish(e)
	}
}

// LogPublisher writes events to the application log.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(e Event) {
	switch e.Type {
	case TypeComplaintMerged:
		log.Printf("Event %s: complaint %s merged into %s (reports: %d, priority: %.1f %s)",
			e.Type, e.ComplaintUUID, e.RootUUID, e.ReportCount, e.Priority, e.Band)
	default:
		log.Printf("Event %s: complaint %s department=%s priority=%.1f band=%s",
			e.Type, e.ComplaintUUID, e.Department, e.Priority, e.Band)
	}
}
