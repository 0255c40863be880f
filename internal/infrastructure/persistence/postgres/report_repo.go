package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// AnchorRepository implements report.AnchorStore for PostgreSQL.
// Anchors are write-once; this repository has no update statement.
type AnchorRepository struct {
	conn *Connection
}

// NewAnchorRepository creates a new AnchorRepository.
func NewAnchorRepository(conn *Connection) *AnchorRepository {
	return &AnchorRepository{conn: conn}
}

const anchorColumns = `report_id, student_id, school_id, period_start, period_end, merkle_root, event_count, report_hash, anchored_at`

// Save persists a new anchor.
func (r *AnchorRepository) Save(ctx context.Context, a *report.Anchor) error {
	_, err := r.conn.pool.Exec(ctx, `
		INSERT INTO report_anchors (`+anchorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ReportID.String(),
		a.StudentID.String(),
		a.SchoolID.String(),
		a.PeriodStart,
		a.PeriodEnd,
		a.MerkleRoot,
		a.EventCount,
		a.ReportHash,
		a.AnchoredAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return report.ErrAnchorExists
		}
		return shared.WrapError("report", "Save", shared.ErrStorage, "insert anchor", err)
	}
	return nil
}

// GetByReportID returns the anchor for a report.
func (r *AnchorRepository) GetByReportID(ctx context.Context, reportID shared.ReportID) (*report.Anchor, error) {
	row := r.conn.pool.QueryRow(ctx, `
		SELECT `+anchorColumns+` FROM report_anchors WHERE report_id = $1
	`, reportID.String())

	a, err := scanAnchor(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, report.ErrAnchorNotFound
		}
		return nil, shared.WrapError("report", "Get", shared.ErrStorage, "query anchor", err)
	}
	return a, nil
}

// ListByStudent returns all anchors for a student, most recent first.
func (r *AnchorRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*report.Anchor, error) {
	rows, err := r.conn.pool.Query(ctx, `
		SELECT `+anchorColumns+` FROM report_anchors
		WHERE student_id = $1
		ORDER BY anchored_at DESC
	`, studentID.String())
	if err != nil {
		return nil, shared.WrapError("report", "List", shared.ErrStorage, "query anchors", err)
	}
	defer rows.Close()

	return collectAnchors(rows)
}

// ListAll returns every anchor, most recent first.
func (r *AnchorRepository) ListAll(ctx context.Context) ([]*report.Anchor, error) {
	rows, err := r.conn.pool.Query(ctx, `
		SELECT `+anchorColumns+` FROM report_anchors ORDER BY anchored_at DESC
	`)
	if err != nil {
		return nil, shared.WrapError("report", "List", shared.ErrStorage, "query anchors", err)
	}
	defer rows.Close()

	return collectAnchors(rows)
}

func collectAnchors(rows pgx.Rows) ([]*report.Anchor, error) {
	anchors := make([]*report.Anchor, 0)
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, shared.WrapError("report", "List", shared.ErrStorage, "scan anchor", err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("report", "List", shared.ErrStorage, "iterate anchors", err)
	}
	return anchors, nil
}

func scanAnchor(row pgx.Row) (*report.Anchor, error) {
	var (
		a         report.Anchor
		reportID  string
		studentID string
		schoolID  string
	)

	err := row.Scan(
		&reportID,
		&studentID,
		&schoolID,
		&a.PeriodStart,
		&a.PeriodEnd,
		&a.MerkleRoot,
		&a.EventCount,
		&a.ReportHash,
		&a.AnchoredAt,
	)
	if err != nil {
		return nil, err
	}

	a.ReportID = shared.ReportID(reportID)
	a.StudentID = shared.StudentID(studentID)
	a.SchoolID = shared.SchoolID(schoolID)
	a.PeriodStart = a.PeriodStart.UTC()
	a.PeriodEnd = a.PeriodEnd.UTC()
	a.AnchoredAt = a.AnchoredAt.UTC()

	return &a, nil
}
