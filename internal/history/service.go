package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildmycv-backend/internal/shared/telemetry"
)

const summaryWindow = 200

// Service records flow runs and summarises them for the dashboard.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service over repo.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// Record stores run, filling ID and CreatedAt when empty. Every failure is logged
// and returned; callers must not fail a user request because of them.
func (s *Service) Record(ctx context.Context, run Run) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if strings.TrimSpace(run.ClientID) == "" || run.Flow == "" || run.Status == "" {
		err := fmt.Errorf("%w: client, flow and status are required", ErrInvalidRun)
		logRecordFailure(run, err)
		return err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	if err := s.Repo.Create(ctx, run); err != nil {
		logRecordFailure(run, err)
		return err
	}
	return nil
}

func logRecordFailure(run Run, err error) {
	telemetry.Warn("history.record_failed", map[string]any{
		"client_id": run.ClientID,
		"flow":      run.Flow,
		"error":     err.Error(),
	})
}

// Summary aggregates the most recent completed runs of clientID.
func (s *Service) Summary(ctx context.Context, clientID string) (Summary, error) {
	summary := Summary{ScoreHistory: []ScorePoint{}}
	runs, err := s.Repo.ListByClient(ctx, clientID, summaryWindow)
	if err != nil {
		return Summary{}, err
	}

	var total, scored int
	// runs are newest first; walk backwards so the series ends with the newest
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		if run.Status != StatusCompleted {
			continue
		}
		switch run.Flow {
		case FlowAnalyzeResume:
			summary.Analyses++
		case FlowMatchJobs:
			summary.JobMatches++
		case FlowGenerateUpdatedResume:
			summary.Optimizations++
			if run.ATSScore != nil {
				score := *run.ATSScore
				summary.LatestATSScore = &score
				summary.ScoreHistory = append(summary.ScoreHistory, ScorePoint{Score: score, At: run.CreatedAt})
				total += score
				scored++
			}
		}
	}
	if scored > 0 {
		avg := float64(total) / float64(scored)
		summary.AverageATSScore = &avg
	}
	return summary, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
