package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	score := 72
	run := Run{
		ID:        "run-1",
		ClientID:  "guest:a",
		Flow:      FlowGenerateUpdatedResume,
		Status:    StatusCompleted,
		Provider:  "gemini",
		Model:     "gemini-2.0-flash",
		ATSScore:  &score,
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO flow_runs").
		WithArgs(
			run.ID,
			run.ClientID,
			run.Flow,
			run.Status,
			run.Provider,
			run.Model,
			int64(72),
			nil, // suggestion_count
			nil, // error_code
			int64(1500),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByClient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "client_id", "flow", "status", "provider", "model", "ats_score", "suggestion_count", "error_code", "duration_ms", "created_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("run-2", "guest:a", FlowMatchJobs, StatusCompleted, "openai", "gpt-4o-mini", nil, int64(4), nil, int64(900), now).
		AddRow("run-1", "guest:a", FlowGenerateUpdatedResume, StatusFailed, "gemini", "gemini-2.0-flash", nil, nil, "llm_timeout", int64(120000), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, client_id, flow").
		WithArgs("guest:a", 50).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	runs, err := repo.ListByClient(context.Background(), "guest:a", 50)
	if err != nil {
		t.Fatalf("ListByClient: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].SuggestionCount == nil || *runs[0].SuggestionCount != 4 {
		t.Fatalf("expected suggestion count 4, got %v", runs[0].SuggestionCount)
	}
	if runs[0].ATSScore != nil {
		t.Fatalf("expected nil ats score")
	}
	if runs[1].ErrorCode != "llm_timeout" || runs[1].Duration != 2*time.Minute {
		t.Fatalf("unexpected second run: %+v", runs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
