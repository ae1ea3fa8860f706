package history

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a run.
func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO flow_runs (
	id, client_id, flow, status, provider, model, ats_score, suggestion_count, error_code, duration_ms, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		run.ID,
		run.ClientID,
		run.Flow,
		run.Status,
		run.Provider,
		run.Model,
		nullInt(run.ATSScore),
		nullInt(run.SuggestionCount),
		nullString(run.ErrorCode),
		run.Duration.Milliseconds(),
		run.CreatedAt,
	)
	return err
}

// ListByClient returns runs for a client, newest first.
func (r *PGRepo) ListByClient(ctx context.Context, clientID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
SELECT id, client_id, flow, status, provider, model, ats_score, suggestion_count, error_code, duration_ms, created_at
FROM flow_runs
WHERE client_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			atsScore    sql.NullInt64
			suggestions sql.NullInt64
			errorCode   sql.NullString
			durationMs  int64
		)
		if err := rows.Scan(
			&run.ID,
			&run.ClientID,
			&run.Flow,
			&run.Status,
			&run.Provider,
			&run.Model,
			&atsScore,
			&suggestions,
			&errorCode,
			&durationMs,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		run.ATSScore = intPtr(atsScore)
		run.SuggestionCount = intPtr(suggestions)
		run.ErrorCode = errorCode.String
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
