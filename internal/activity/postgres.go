package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder stores events in the activity_events table.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder builds a Postgres-backed recorder.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record inserts an event.
func (r *PostgresRecorder) Record(ctx context.Context, event Event) error {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO activity_events (id, kind, flow_id, occurred_at)
        VALUES ($1, $2, $3, $4)`, id, event.Kind, event.FlowID, event.OccurredAt.UTC())
	return err
}

// Recent lists the newest events first.
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultMemoryCapacity
	}
	rows, err := r.db.Query(ctx, `SELECT id, kind, flow_id, occurred_at FROM activity_events
        ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			id         uuid.UUID
			occurredAt time.Time
			e          Event
		)
		if err := rows.Scan(&id, &e.Kind, &e.FlowID, &occurredAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.OccurredAt = occurredAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Latest returns the newest event of kind.
func (r *PostgresRecorder) Latest(ctx context.Context, kind string) (Event, bool, error) {
	var (
		id         uuid.UUID
		occurredAt time.Time
		e          Event
	)
	err := r.db.QueryRow(ctx, `SELECT id, kind, flow_id, occurred_at FROM activity_events
        WHERE kind = $1 ORDER BY occurred_at DESC LIMIT 1`, kind).Scan(&id, &e.Kind, &e.FlowID, &occurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, err
	}
	e.ID = id.String()
	e.OccurredAt = occurredAt.UTC()
	return e, true, nil
}
