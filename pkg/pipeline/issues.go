// pkg/pipeline/issues.go
package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IssueClass categorises conditions observed during a run. Only the
// validation class is fatal; everything else is counted and surfaced through
// the reports.
type IssueClass int

const (
	// ClassAdvisory marks business-meaningful conditions that are not
	// defects: cancellations, high quantities, imputed fields.
	ClassAdvisory IssueClass = iota
	// ClassParseWarning marks a recovered parse failure, propagated
	// downstream as a missing value.
	ClassParseWarning
	// ClassIntegrityWarning marks a fact row whose foreign key could not be
	// resolved; the row is retained with a null reference.
	ClassIntegrityWarning
	// ClassValidation marks a fatal precondition failure: a required column
	// missing or an empty dataset handed to a stage that needs rows.
	ClassValidation
)

// String returns a string representation of the issue class.
func (c IssueClass) String() string {
	switch c {
	case ClassAdvisory:
		return "Advisory"
	case ClassParseWarning:
		return "ParseWarning"
	case ClassIntegrityWarning:
		return "IntegrityWarning"
	case ClassValidation:
		return "Validation"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Fatal reports whether issues of this class abort the run.
func (c IssueClass) Fatal() bool {
	return c == ClassValidation
}

// Issue records a single observed condition.
type Issue struct {
	Class     IssueClass
	Stage     string
	Column    string
	RowIndex  int
	Value     any
	Message   string
	Timestamp time.Time
}

// NewIssue creates an issue with the current timestamp.
func NewIssue(class IssueClass, stage, message string) Issue {
	return Issue{
		Class:     class,
		Stage:     stage,
		RowIndex:  -1,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithColumn attaches column context to the issue.
func (i Issue) WithColumn(column string) Issue {
	i.Column = column
	return i
}

// WithRow attaches the offending row index and value to the issue.
func (i Issue) WithRow(index int, value any) Issue {
	i.RowIndex = index
	i.Value = value
	return i
}

// String returns a formatted single-line description.
func (i Issue) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", i.Class))
	if i.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", i.Stage))
	}
	if i.Column != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", i.Column))
	}
	if i.RowIndex >= 0 {
		sb.WriteString(fmt.Sprintf("Row: %d ", i.RowIndex))
		if i.Value != nil {
			sb.WriteString(fmt.Sprintf("Value: %v ", i.Value))
		}
	}
	sb.WriteString(i.Message)
	return sb.String()
}

// IssueCollector accumulates issues for one run. It keeps per-class counts
// and a bounded sample of each class so reports stay small on dirty inputs.
type IssueCollector struct {
	logger     *zap.Logger
	mu         sync.Mutex
	counts     map[IssueClass]int64
	samples    map[IssueClass][]Issue
	maxSamples int
}

// NewIssueCollector creates an issue collector.
func NewIssueCollector(logger *zap.Logger) *IssueCollector {
	return &IssueCollector{
		logger:     logger,
		counts:     make(map[IssueClass]int64),
		samples:    make(map[IssueClass][]Issue),
		maxSamples: 5,
	}
}

// Record saves an issue occurrence and logs it at a level appropriate to
// its class.
func (ic *IssueCollector) Record(issue Issue) {
	ic.mu.Lock()
	ic.counts[issue.Class]++
	if samples := ic.samples[issue.Class]; len(samples) < ic.maxSamples {
		ic.samples[issue.Class] = append(samples, issue)
	}
	ic.mu.Unlock()

	if ic.logger == nil {
		return
	}

	logLevel := zap.DebugLevel
	switch issue.Class {
	case ClassParseWarning, ClassIntegrityWarning:
		logLevel = zap.WarnLevel
	case ClassValidation:
		logLevel = zap.ErrorLevel
	}

	ic.logger.Log(logLevel, "Pipeline issue",
		zap.String("class", issue.Class.String()),
		zap.String("stage", issue.Stage),
		zap.String("column", issue.Column),
		zap.String("message", issue.Message))
}

// RecordCount registers n occurrences of the same condition at once, keeping
// a single sample. Used by rules that count affected rows in bulk.
func (ic *IssueCollector) RecordCount(issue Issue, n int64) {
	if n <= 0 {
		return
	}

	ic.mu.Lock()
	ic.counts[issue.Class] += n
	if samples := ic.samples[issue.Class]; len(samples) < ic.maxSamples {
		ic.samples[issue.Class] = append(samples, issue)
	}
	ic.mu.Unlock()
}

// Count returns the number of recorded issues for a class.
func (ic *IssueCollector) Count(class IssueClass) int64 {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.counts[class]
}

// Counts returns a copy of the per-class issue counts.
func (ic *IssueCollector) Counts() map[IssueClass]int64 {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	counts := make(map[IssueClass]int64, len(ic.counts))
	for class, count := range ic.counts {
		counts[class] = count
	}
	return counts
}

// Samples returns a copy of the bounded per-class issue samples.
func (ic *IssueCollector) Samples() map[IssueClass][]Issue {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	samples := make(map[IssueClass][]Issue, len(ic.samples))
	for class, issues := range ic.samples {
		copied := make([]Issue, len(issues))
		copy(copied, issues)
		samples[class] = copied
	}
	return samples
}

// ValidationError is the fatal error class of the pipeline: a required
// column is missing or a stage received an empty dataset. It names the
// columns or condition that triggered it.
type ValidationError struct {
	Stage   string
	Columns []string
	Reason  string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("%s: missing required columns: %s",
			e.Stage, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

// NewMissingColumnsError creates a ValidationError for absent columns.
func NewMissingColumnsError(stage string, columns []string) *ValidationError {
	return &ValidationError{Stage: stage, Columns: columns}
}

// NewEmptyDatasetError creates a ValidationError for a zero-row dataset.
func NewEmptyDatasetError(stage string) *ValidationError {
	return &ValidationError{Stage: stage, Reason: "dataset contains no rows"}
}
