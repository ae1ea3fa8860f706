package history

import (
	"errors"
	"time"
)

// Flow names as recorded and reported.
const (
	FlowAnalyzeResume         = "analyzeResume"
	FlowMatchJobs             = "matchJobs"
	FlowGenerateUpdatedResume = "generateUpdatedResume"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrInvalidRun = errors.New("invalid run")

// Run is one flow invocation. Output fields are copied from what the flow
// returned; nothing here is computed locally.
type Run struct {
	ID              string
	ClientID        string
	Flow            string
	Status          string
	Provider        string
	Model           string
	ATSScore        *int
	SuggestionCount *int
	ErrorCode       string
	Duration        time.Duration
	CreatedAt       time.Time
}

// ScorePoint is one ATS score for the effectiveness chart.
type ScorePoint struct {
	Score int       `json:"score"`
	At    time.Time `json:"at"`
}

// Summary backs the dashboard.
type Summary struct {
	LatestATSScore  *int         `json:"latestAtsScore"`
	AverageATSScore *float64     `json:"averageAtsScore"`
	Optimizations   int          `json:"optimizations"`
	JobMatches      int          `json:"jobMatches"`
	Analyses        int          `json:"analyses"`
	ScoreHistory    []ScorePoint `json:"scoreHistory"`
}
