// pkg/pipeline/run.go
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunContext carries the per-run identity and shared observability
// facilities through every stage of the pipeline. Stages receive it instead
// of creating their own loggers and counters so that one run produces one
// coherent set of reports.
type RunContext struct {
	// JobID uniquely identifies this run in logs and output file names.
	JobID string

	// StartedAt is when the run context was created.
	StartedAt time.Time

	// Logger is the run-scoped structured logger, tagged with the job ID.
	Logger *zap.Logger

	// Issues collects warnings and advisories raised across stages.
	Issues *IssueCollector

	// Metrics tracks row counts and stage timings for the run.
	Metrics *RunMetrics
}

// NewRunContext creates a run context with a fresh job ID. A nil logger is
// replaced with a no-op logger so stages never need nil checks.
func NewRunContext(logger *zap.Logger) *RunContext {
	if logger == nil {
		logger = zap.NewNop()
	}

	jobID := uuid.New().String()[:8]
	logger = logger.With(zap.String("job_id", jobID))

	return &RunContext{
		JobID:     jobID,
		StartedAt: time.Now(),
		Logger:    logger,
		Issues:    NewIssueCollector(logger),
		Metrics:   NewRunMetrics(),
	}
}

// RunStatus represents the terminal state of a pipeline run.
type RunStatus string

const (
	// StatusCompleted indicates the run produced a star schema.
	StatusCompleted RunStatus = "completed"
	// StatusFailed indicates the run aborted on a validation error.
	StatusFailed RunStatus = "failed"
)

// RunResult summarizes a finished pipeline run.
type RunResult struct {
	JobID      string        `json:"job_id"`
	Status     RunStatus     `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`

	RowsExtracted int `json:"rows_extracted"`
	RowsCleaned   int `json:"rows_cleaned"`
	FactRows      int `json:"fact_rows"`

	Warnings   int64 `json:"warnings"`
	Advisories int64 `json:"advisories"`
}

// NewRunResult builds a result from the run context and terminal state.
func NewRunResult(rc *RunContext, status RunStatus, runErr error) *RunResult {
	result := &RunResult{
		JobID:      rc.JobID,
		Status:     status,
		StartedAt:  rc.StartedAt,
		FinishedAt: time.Now(),
	}
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	if runErr != nil {
		result.Error = runErr.Error()
	}

	result.RowsExtracted = rc.Metrics.RowsExtracted
	result.RowsCleaned = rc.Metrics.RowsCleaned
	result.FactRows = rc.Metrics.FactRows

	counts := rc.Issues.Counts()
	result.Warnings = counts[ClassParseWarning] + counts[ClassIntegrityWarning]
	result.Advisories = counts[ClassAdvisory]

	return result
}
