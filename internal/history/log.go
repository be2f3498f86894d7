// Package history appends immutable audit events for every successful
// work-unit transition and serves read access for audit and reporting
// collaborators.
//
// Events are never updated or deleted; their insertion order within a single
// work unit matches that unit's state-transition order and is the sole
// source of truth for "who did what when". Cross-unit ordering carries no
// guarantee.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadastra/internal/identity"
	"cadastra/internal/workunit"
)

// Event is one immutable audit record.
type Event struct {
	EventID   string
	Unit      workunit.Key
	Actor     string
	ActorRole identity.Role
	Stage     workunit.Stage
	// State is the resulting state label, e.g. "assigned" or "rejected(2)".
	State     string
	Note      string
	CreatedAt time.Time
}

// Log is the append-only audit writer. It shares the work-unit database.
type Log struct {
	db *sql.DB
}

// NewLog binds an audit log to an open database connection.
func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Append records one event. EventID and CreatedAt are stamped here when the
// caller leaves them zero. There is no update or delete operation.
func (l *Log) Append(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Actor) == "" {
		return errors.New("event actor is required")
	}
	if strings.TrimSpace(event.State) == "" {
		return errors.New("event state is required")
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(
		ctx,
		`INSERT INTO history_events (
            event_id, region, batch_code, block_number,
            actor, actor_role, stage, state, note, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID,
		event.Unit.Region,
		event.Unit.Batch,
		event.Unit.Block,
		event.Actor,
		event.ActorRole,
		event.Stage,
		event.State,
		nullableString(event.Note),
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	return nil
}

// QueryByWorkUnit returns a unit's events in transition order.
func (l *Log) QueryByWorkUnit(ctx context.Context, key workunit.Key) ([]Event, error) {
	return l.query(
		ctx,
		`SELECT `+eventColumns+` FROM history_events
         WHERE region = ? AND batch_code = ? AND block_number = ?
         ORDER BY id`,
		key.Region, key.Batch, key.Block,
	)
}

// QueryByActor returns an actor's events, newest first.
func (l *Log) QueryByActor(ctx context.Context, actor string) ([]Event, error) {
	return l.query(
		ctx,
		`SELECT `+eventColumns+` FROM history_events
         WHERE actor = ?
         ORDER BY id DESC`,
		actor,
	)
}

const eventColumns = "event_id, region, batch_code, block_number, actor, actor_role, stage, state, note, created_at"

func (l *Log) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			role       string
			stage      string
			note       sql.NullString
			createdRaw string
		)
		if err := rows.Scan(
			&event.EventID,
			&event.Unit.Region,
			&event.Unit.Batch,
			&event.Unit.Block,
			&event.Actor,
			&role,
			&stage,
			&event.State,
			&note,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		event.ActorRole = identity.Role(role)
		event.Stage = workunit.Stage(stage)
		event.Note = note.String
		if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			event.CreatedAt = created
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
