package db

import (
	"context"
	"time"

	"flotilla/internal/errors"
	"flotilla/internal/events"
	"flotilla/internal/logger"
)

// journalTimeout bounds each journal write issued from the event bus
const journalTimeout = 5 * time.Second

// EventRepository journals lifecycle events and serves queries over them
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(database *DB) *EventRepository {
	return &EventRepository{db: database}
}

// EventFilter narrows event listings
type EventFilter struct {
	ServiceID string
	Type      string
}

// Create inserts one event record
func (r *EventRepository) Create(ctx context.Context, record *EventRecord) error {
	query := `
		INSERT INTO events (id, type, service_id, incident, attempt, affected, message, created_at)
		VALUES (:id, :type, :service_id, :incident, :attempt, :affected, :message, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return errors.DatabaseQueryError("insert event", err)
	}
	return nil
}

// List returns a page of events, newest first by default
func (r *EventRepository) List(ctx context.Context, filter EventFilter, options PaginationOptions) (*PaginatedResponse[EventRecord], error) {
	if err := options.Validate(); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, err.Error())
	}

	where := " WHERE 1=1"
	args := map[string]interface{}{}
	if filter.ServiceID != "" {
		where += " AND service_id = :service_id"
		args["service_id"] = filter.ServiceID
	}
	if filter.Type != "" {
		where += " AND type = :type"
		args["type"] = filter.Type
	}

	countQuery := "SELECT COUNT(*) FROM events" + where
	rows, err := r.db.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, errors.DatabaseQueryError("count events", err)
	}
	var total int
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			rows.Close()
			return nil, errors.DatabaseQueryError("count events", err)
		}
	}
	rows.Close()

	listQuery := "SELECT * FROM events" + where + " " +
		options.BuildOrderClause() + " " + options.BuildLimitClause()
	rows, err = r.db.NamedQueryContext(ctx, listQuery, args)
	if err != nil {
		return nil, errors.DatabaseQueryError("list events", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var record EventRecord
		if err := rows.StructScan(&record); err != nil {
			return nil, errors.DatabaseQueryError("scan event", err)
		}
		records = append(records, record)
	}

	return NewPaginatedResponse(records, options, total), nil
}

// Subscriber returns a bus handler that journals every published event.
// Journal failures are logged and dropped; the event stream must not stall on
// a broken database.
func (r *EventRepository) Subscriber() events.Handler {
	return func(event events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := r.Create(ctx, NewEventRecord(event)); err != nil {
			logger.WithFields(logger.Fields{
				"event_type": string(event.Type),
				"service":    event.ServiceID,
			}).WithError(err).Warn("Failed to journal event")
		}
	}
}
