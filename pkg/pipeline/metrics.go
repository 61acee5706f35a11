// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// StageTiming captures the duration and row movement of a single stage.
type StageTiming struct {
	Stage     string        `json:"stage"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	RowsIn    int           `json:"rows_in"`
	RowsOut   int           `json:"rows_out"`
}

// RunMetrics tracks statistics for one pipeline run.
type RunMetrics struct {
	mu sync.Mutex

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	RowsExtracted int `json:"rows_extracted"`
	RowsCleaned   int `json:"rows_cleaned"`
	RowsExcluded  int `json:"rows_excluded"`
	FactRows      int `json:"fact_rows"`
	DimensionRows int `json:"dimension_rows"`

	stages map[string]*StageTiming
}

// NewRunMetrics creates a metrics tracker with the start time set to now.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		StartTime: time.Now(),
		stages:    make(map[string]*StageTiming),
	}
}

// StageStarted records the beginning of a stage with its input row count.
func (m *RunMetrics) StageStarted(stage string, rowsIn int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage] = &StageTiming{
		Stage:     stage,
		StartTime: time.Now(),
		RowsIn:    rowsIn,
	}
}

// StageCompleted records the end of a stage with its output row count.
func (m *RunMetrics) StageCompleted(stage string, rowsOut int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	timing, ok := m.stages[stage]
	if !ok {
		timing = &StageTiming{Stage: stage, StartTime: time.Now()}
		m.stages[stage] = timing
	}
	timing.EndTime = time.Now()
	timing.Duration = timing.EndTime.Sub(timing.StartTime)
	timing.RowsOut = rowsOut
}

// RecordRowCounts updates the run-level row counters.
func (m *RunMetrics) RecordRowCounts(extracted, cleaned, excluded int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RowsExtracted = extracted
	m.RowsCleaned = cleaned
	m.RowsExcluded = excluded
}

// RecordModelCounts updates the star schema row counters.
func (m *RunMetrics) RecordModelCounts(factRows, dimensionRows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FactRows = factRows
	m.DimensionRows = dimensionRows
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
}

// Duration returns the total elapsed time of the run so far.
func (m *RunMetrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// Stages returns the recorded stage timings sorted by start time.
func (m *RunMetrics) Stages() []StageTiming {
	m.mu.Lock()
	defer m.mu.Unlock()

	timings := make([]StageTiming, 0, len(m.stages))
	for _, timing := range m.stages {
		timings = append(timings, *timing)
	}
	sort.Slice(timings, func(i, j int) bool {
		return timings[i].StartTime.Before(timings[j].StartTime)
	})
	return timings
}

// GenerateReport produces a human-readable summary of the run.
func (m *RunMetrics) GenerateReport() string {
	stages := m.Stages()

	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder

	sb.WriteString("=== Pipeline Run Report ===\n\n")
	sb.WriteString(fmt.Sprintf("Started: %s\n", m.StartTime.Format(time.RFC3339)))
	if !m.EndTime.IsZero() {
		sb.WriteString(fmt.Sprintf("Completed: %s\n", m.EndTime.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("Total Duration: %s\n", m.EndTime.Sub(m.StartTime).Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	sb.WriteString("Row Counts:\n")
	sb.WriteString(fmt.Sprintf("  Extracted: %d\n", m.RowsExtracted))
	sb.WriteString(fmt.Sprintf("  Cleaned: %d (%s)\n", m.RowsCleaned,
		getPercentage(m.RowsCleaned, m.RowsExtracted)))
	sb.WriteString(fmt.Sprintf("  Excluded: %d (%s)\n", m.RowsExcluded,
		getPercentage(m.RowsExcluded, m.RowsExtracted)))
	sb.WriteString(fmt.Sprintf("  Fact Rows: %d\n", m.FactRows))
	sb.WriteString(fmt.Sprintf("  Dimension Rows: %d\n", m.DimensionRows))
	sb.WriteString("\n")

	if len(stages) > 0 {
		sb.WriteString("Stage Timings:\n")
		for _, timing := range stages {
			sb.WriteString(fmt.Sprintf("  %-12s %8s  in=%d out=%d\n",
				timing.Stage, timing.Duration.Round(time.Millisecond),
				timing.RowsIn, timing.RowsOut))
		}
	}

	return sb.String()
}

// ToJSON serializes the metrics to JSON.
func (m *RunMetrics) ToJSON() (string, error) {
	stages := m.Stages()

	m.mu.Lock()
	defer m.mu.Unlock()

	payload := struct {
		StartTime     time.Time     `json:"start_time"`
		EndTime       time.Time     `json:"end_time,omitempty"`
		RowsExtracted int           `json:"rows_extracted"`
		RowsCleaned   int           `json:"rows_cleaned"`
		RowsExcluded  int           `json:"rows_excluded"`
		FactRows      int           `json:"fact_rows"`
		DimensionRows int           `json:"dimension_rows"`
		Stages        []StageTiming `json:"stages"`
	}{
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		RowsExtracted: m.RowsExtracted,
		RowsCleaned:   m.RowsCleaned,
		RowsExcluded:  m.RowsExcluded,
		FactRows:      m.FactRows,
		DimensionRows: m.DimensionRows,
		Stages:        stages,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metrics to JSON: %w", err)
	}
	return string(data), nil
}

// getPercentage formats a percentage string with divide-by-zero protection.
func getPercentage(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
