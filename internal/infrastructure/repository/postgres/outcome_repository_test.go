package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*OutcomeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &OutcomeRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(int64(2025102301)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS outcomes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordInsertsClassification(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2025, 10, 23, 12, 0, 0, 0, time.UTC)
	record := domain.OutcomeRecord{
		ID:        "rec-1",
		Candidate: domain.NewScanCandidate("/scans/scan_001.pdf", now),
		Success:   true,
		Classification: &domain.ClassificationResult{
			Category:    domain.CategoryReceipts,
			Description: "walmart_receipt",
			Confidence:  0.3,
			Source:      domain.SourceKeyword,
		},
		Destination: "/scans/receipts/walmart_receipt_10232025.pdf",
		Attempts:    1,
		StartedAt:   now,
		FinishedAt:  now.Add(time.Second),
	}

	mock.ExpectExec("INSERT INTO outcomes").
		WithArgs("rec-1", "/scans/scan_001.pdf", now, true, "", "", "receipts", "walmart_receipt",
			0.3, "keyword", record.Destination, 1, now, now.Add(time.Second)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Record(context.Background(), record); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordWrapsDatabaseErrorsAsTemporary(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO outcomes").WillReturnError(errors.New("connection reset"))

	err := repo.Record(context.Background(), domain.OutcomeRecord{ID: "rec-2"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestListRecentFailedOnly(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2025, 10, 23, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "source_path", "detected_at", "success", "failed_stage", "error_message", "category", "description",
		"confidence", "classifier_source", "destination", "attempts", "started_at", "finished_at",
	}).AddRow("rec-3", "/scans/broken.PDF", now, false, "extracting", "engine crashed", "", "", 0.0, "", "", 2, now, now)

	mock.ExpectQuery(`FROM outcomes\s+WHERE success = FALSE\s+ORDER BY finished_at DESC`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := repo.ListRecent(context.Background(), HistoryQuery{Limit: 10, FailedOnly: true})
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	rec := got[0]
	if rec.Stage != domain.StageFailed || rec.FailedStage != domain.StageExtracting || rec.Classification != nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Candidate.Extension != ".pdf" || rec.Attempts != 2 {
		t.Fatalf("unexpected candidate fields: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
