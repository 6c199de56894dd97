// Package postgres keeps a journal of pipeline outcomes in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const DefaultHistoryLimit = 50

type OutcomeRepository struct {
	db *sql.DB
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *OutcomeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Several organizer processes may share one database.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025102301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL,
	success BOOLEAN NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	classifier_source TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	attempts INTEGER NOT NULL DEFAULT 1,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_finished_at ON outcomes(finished_at DESC);
CREATE INDEX IF NOT EXISTS idx_outcomes_success ON outcomes(success);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Record inserts one outcome. It implements ports.OutcomeRecorder.
func (r *OutcomeRepository) Record(ctx context.Context, record domain.OutcomeRecord) error {
	var category, description, source string
	var confidence float64
	if c := record.Classification; c != nil {
		category, description, source, confidence = string(c.Category), c.Description, string(c.Source), c.Confidence
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO outcomes (
	id, source_path, detected_at, success, failed_stage, error_message, category, description,
	confidence, classifier_source, destination, attempts, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO NOTHING
`,
		record.ID, record.Candidate.Path, record.Candidate.DetectedAt.UTC(), record.Success,
		string(record.FailedStage), record.Error, category, description,
		confidence, source, record.Destination, record.Attempts,
		record.StartedAt.UTC(), record.FinishedAt.UTC(),
	)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "insert outcome", err)
	}
	return nil
}

type HistoryQuery struct {
	Limit      int
	FailedOnly bool
}

// ListRecent returns the newest outcomes first.
func (r *OutcomeRepository) ListRecent(ctx context.Context, q HistoryQuery) ([]domain.OutcomeRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var b strings.Builder
	b.WriteString(`
SELECT id, source_path, detected_at, success, failed_stage, error_message, category, description,
	confidence, classifier_source, destination, attempts, started_at, finished_at
FROM outcomes`)
	if q.FailedOnly {
		b.WriteString(`
WHERE success = FALSE`)
	}
	b.WriteString(`
ORDER BY finished_at DESC
LIMIT $1`)

	rows, err := r.db.QueryContext(ctx, b.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.OutcomeRecord, 0, limit)
	for rows.Next() {
		var (
			rec                           domain.OutcomeRecord
			path, failedStage             string
			category, description, source string
			confidence                    float64
		)
		if err := rows.Scan(
			&rec.ID, &path, &rec.Candidate.DetectedAt, &rec.Success, &failedStage, &rec.Error,
			&category, &description, &confidence, &source, &rec.Destination, &rec.Attempts,
			&rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Candidate.Path = path
		rec.Candidate.Extension = domain.NormalizeExtension(path)
		rec.FailedStage = domain.Stage(failedStage)
		rec.Stage = rec.State()
		if category != "" {
			rec.Classification = &domain.ClassificationResult{
				Category:    domain.Category(category),
				Description: description,
				Confidence:  confidence,
				Source:      domain.ClassificationSource(source),
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}
