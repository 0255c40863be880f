package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// LedgerRepository implements ledger.EventStore for PostgreSQL.
//
// Per-student append serialization uses a transaction-scoped advisory lock
// keyed on the student ID, so concurrent appends for the same student queue
// up while appends for different students proceed in parallel.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

const eventColumns = `event_id, student_id, school_id, event_type, occurred_at, payload, hash, previous_hash, status`

// Append runs build under the student's advisory lock and inserts the event
// it returns. The latest-confirmed read and the insert share one transaction:
// the previous-hash link can never be computed against a stale chain head.
func (r *LedgerRepository) Append(ctx context.Context, studentID shared.StudentID, build ledger.BuildFunc) (*ledger.Event, error) {
	var event *ledger.Event

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			studentID.String(),
		); err != nil {
			return storageErr("Append", "acquire student append lock", err)
		}

		row := tx.QueryRow(ctx, `
			SELECT `+eventColumns+`
			FROM ledger_events
			WHERE student_id = $1 AND status = $2
			ORDER BY seq DESC
			LIMIT 1
		`, studentID.String(), string(ledger.StatusConfirmed))

		prev, err := scanEvent(row)
		if err != nil && !IsNoRows(err) {
			return storageErr("Append", "read chain head", err)
		}

		event, err = build(prev)
		if err != nil {
			return err
		}

		payloadJSON, err := json.Marshal(event.Payload)
		if err != nil {
			return shared.WrapError("ledger", "Append", shared.ErrInvalidInput, "marshal payload", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO ledger_events (`+eventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			event.EventID,
			event.StudentID.String(),
			event.SchoolID.String(),
			string(event.EventType),
			event.Timestamp,
			payloadJSON,
			event.Hash,
			event.PreviousHash,
			string(event.Status),
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.WrapError("ledger", "Append", shared.ErrAlreadyExists, "duplicate event ID", err)
			}
			return storageErr("Append", "insert event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// ListByStudent returns the student's events in append (seq) order.
func (r *LedgerRepository) ListByStudent(ctx context.Context, studentID shared.StudentID, f ledger.Filter) ([]*ledger.Event, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + eventColumns + ` FROM ledger_events WHERE student_id = $1`)
	args := []interface{}{studentID.String()}

	if f.Status != nil {
		args = append(args, string(*f.Status))
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	if f.EventType != nil {
		args = append(args, string(*f.EventType))
		fmt.Fprintf(&sb, ` AND event_type = $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, f.From.UTC())
		fmt.Fprintf(&sb, ` AND occurred_at >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, f.To.UTC())
		fmt.Fprintf(&sb, ` AND occurred_at <= $%d`, len(args))
	}
	sb.WriteString(` ORDER BY seq ASC`)

	rows, err := r.conn.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("List", "query events", err)
	}
	defer rows.Close()

	events := make([]*ledger.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, storageErr("List", "scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("List", "iterate events", err)
	}

	return events, nil
}

// GetByID returns a single event, or ledger.ErrEventNotFound.
func (r *LedgerRepository) GetByID(ctx context.Context, eventID string) (*ledger.Event, error) {
	row := r.conn.pool.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM ledger_events WHERE event_id = $1
	`, eventID)

	e, err := scanEvent(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, ledger.ErrEventNotFound
		}
		return nil, storageErr("Get", "query event", err)
	}
	return e, nil
}

// scanEvent maps one row onto a ledger.Event. Returns pgx.ErrNoRows through.
func scanEvent(row pgx.Row) (*ledger.Event, error) {
	var (
		e           ledger.Event
		studentID   string
		schoolID    string
		eventType   string
		occurredAt  time.Time
		payloadJSON []byte
		status      string
	)

	err := row.Scan(
		&e.EventID,
		&studentID,
		&schoolID,
		&eventType,
		&occurredAt,
		&payloadJSON,
		&e.Hash,
		&e.PreviousHash,
		&status,
	)
	if err != nil {
		return nil, err
	}

	e.StudentID = shared.StudentID(studentID)
	e.SchoolID = shared.SchoolID(schoolID)
	e.EventType = ledger.EventType(eventType)
	e.Timestamp = occurredAt.UTC()
	e.Status = ledger.EventStatus(status)

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	return &e, nil
}

func storageErr(op, msg string, err error) error {
	return shared.WrapError("ledger", op, shared.ErrStorage, msg, err)
}
