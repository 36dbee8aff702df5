package db

import (
	"strings"
	"time"

	"flotilla/internal/events"
)

// EventRecord is one journaled lifecycle event
type EventRecord struct {
	ID        string    `db:"id" json:"id"`
	Type      string    `db:"type" json:"type"`
	ServiceID string    `db:"service_id" json:"service_id"`
	Incident  string    `db:"incident" json:"incident,omitempty"`
	Attempt   int       `db:"attempt" json:"attempt,omitempty"`
	Affected  string    `db:"affected" json:"affected,omitempty"`
	Message   string    `db:"message" json:"message,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewEventRecord converts a bus event into its journal row. The affected list
// is stored comma-joined; service ids never contain commas.
func NewEventRecord(event events.Event) *EventRecord {
	return &EventRecord{
		ID:        event.ID,
		Type:      string(event.Type),
		ServiceID: event.ServiceID,
		Incident:  event.Incident,
		Attempt:   event.Attempt,
		Affected:  strings.Join(event.Affected, ","),
		Message:   event.Message,
		CreatedAt: event.Timestamp,
	}
}

// AffectedServices splits the stored affected list back into service ids
func (r *EventRecord) AffectedServices() []string {
	if r.Affected == "" {
		return nil
	}
	return strings.Split(r.Affected, ",")
}
