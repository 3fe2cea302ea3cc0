package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/simcore/internal/core/event"
	"go.uber.org/zap"
)

// ErrUnknownSession is returned when a journal session id is not recorded.
var ErrUnknownSession = errors.New("unknown journal session")

// SessionRow is one recorded run of the kernel.
type SessionRow struct {
	ID        uuid.UUID
	Name      string
	StartedAt time.Time
	Events    int64
}

// JournalRow is an event ready to be written: the wire encoding plus the
// columns it is indexed by.
type JournalRow struct {
	Topic     string
	Wire      []byte
	EmittedAt time.Time
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// StartSession records a new session and returns its id.
func (r *JournalRepo) StartSession(ctx context.Context, name string) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := r.db.Pool.Exec(ctx,
		`INSERT INTO journal_session (id, name) VALUES ($1, $2)`,
		id.String(), name,
	); err != nil {
		return uuid.Nil, fmt.Errorf("journal start session: %w", err)
	}
	return id, nil
}

// Append writes a batch of events for session in a single transaction.
// Events whose payload cannot be encoded are skipped and logged; the rest of
// the batch is still written.
func (r *JournalRepo) Append(ctx context.Context, session uuid.UUID, events []event.Event) error {
	rows := EncodeRows(events, r.db.log)
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_journal (session_id, topic, wire, emitted_at)
			 VALUES ($1, $2, $3, $4)`,
			session.String(), row.Topic, row.Wire, row.EmittedAt,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// LoadSession returns a session's events in the order they were recorded,
// ready for Bus.StartReplay.
func (r *JournalRepo) LoadSession(ctx context.Context, session uuid.UUID) ([]event.Event, error) {
	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM journal_session WHERE id = $1)`, session.String(),
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("journal load session: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT wire FROM event_journal WHERE session_id = $1 ORDER BY id`, session.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("journal load session: %w", err)
	}
	defer rows.Close()

	var wires [][]byte
	for rows.Next() {
		var wire []byte
		if err := rows.Scan(&wire); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		wires = append(wires, wire)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal load session: %w", err)
	}
	return DecodeRows(wires, r.db.log), nil
}

// Sessions lists recorded sessions, newest first.
func (r *JournalRepo) Sessions(ctx context.Context, limit int) ([]SessionRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.id::text, s.name, s.started_at, COUNT(e.id)
		 FROM journal_session s
		 LEFT JOIN event_journal e ON e.session_id = s.id
		 GROUP BY s.id, s.name, s.started_at
		 ORDER BY s.started_at DESC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal sessions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SessionRow, error) {
		var s SessionRow
		var id string
		if err := row.Scan(&id, &s.Name, &s.StartedAt, &s.Events); err != nil {
			return s, err
		}
		return s.withID(id)
	})
}

func (s SessionRow) withID(id string) (SessionRow, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return s, fmt.Errorf("session id %q: %w", id, err)
	}
	s.ID = parsed
	return s, nil
}

// EncodeRows turns events into journal rows, dropping (and logging) any whose
// payload does not encode.
func EncodeRows(events []event.Event, log *zap.Logger) []JournalRow {
	rows := make([]JournalRow, 0, len(events))
	for _, ev := range events {
		wire, err := event.MarshalEvent(ev)
		if err != nil {
			log.Error("journal skip event", zap.String("topic", ev.Topic.String()), zap.Error(err))
			continue
		}
		rows = append(rows, JournalRow{Topic: ev.Topic.String(), Wire: wire, EmittedAt: ev.Timestamp})
	}
	return rows
}

// DecodeRows is the inverse of EncodeRows. Rows that no longer decode are
// skipped and logged so one bad row cannot block a replay.
func DecodeRows(wires [][]byte, log *zap.Logger) []event.Event {
	events := make([]event.Event, 0, len(wires))
	for i, wire := range wires {
		ev, err := event.UnmarshalEvent(wire)
		if err != nil {
			log.Warn("journal skip row", zap.Int("index", i), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events
}
