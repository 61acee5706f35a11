// pkg/pipeline/pipeline_test.go
package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIssueClassString(t *testing.T) {
	tests := []struct {
		class IssueClass
		want  string
		fatal bool
	}{
		{ClassAdvisory, "Advisory", false},
		{ClassParseWarning, "ParseWarning", false},
		{ClassIntegrityWarning, "IntegrityWarning", false},
		{ClassValidation, "Validation", true},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, tt.class.String())
		require.Equal(t, tt.fatal, tt.class.Fatal())
	}
}

func TestIssueBuilders(t *testing.T) {
	issue := NewIssue(ClassParseWarning, "cleaning", "unparsable timestamp").
		WithColumn("InvoiceDate").
		WithRow(42, "not a date")

	require.Equal(t, "InvoiceDate", issue.Column)
	require.Equal(t, 42, issue.RowIndex)
	require.Equal(t, "not a date", issue.Value)

	text := issue.String()
	require.Contains(t, text, "[ParseWarning]")
	require.Contains(t, text, "Stage: cleaning")
	require.Contains(t, text, "Row: 42")
	require.Contains(t, text, "unparsable timestamp")
}

func TestIssueCollectorCountsAndSamples(t *testing.T) {
	ic := NewIssueCollector(zap.NewNop())

	for i := 0; i < 10; i++ {
		ic.Record(NewIssue(ClassAdvisory, "cleaning", "cancelled").WithRow(i, nil))
	}
	ic.Record(NewIssue(ClassValidation, "cleaning", "missing column"))

	require.Equal(t, int64(10), ic.Count(ClassAdvisory))
	require.Equal(t, int64(1), ic.Count(ClassValidation))
	require.Equal(t, int64(0), ic.Count(ClassParseWarning))

	// Samples stay bounded while counts keep growing.
	samples := ic.Samples()
	require.Len(t, samples[ClassAdvisory], 5)
	require.Len(t, samples[ClassValidation], 1)
}

func TestIssueCollectorRecordCount(t *testing.T) {
	ic := NewIssueCollector(zap.NewNop())

	ic.RecordCount(NewIssue(ClassIntegrityWarning, "modelling", "unmapped rows"), 7)
	ic.RecordCount(NewIssue(ClassIntegrityWarning, "modelling", "ignored"), 0)

	require.Equal(t, int64(7), ic.Count(ClassIntegrityWarning))
	require.Len(t, ic.Samples()[ClassIntegrityWarning], 1)
}

func TestValidationErrors(t *testing.T) {
	err := NewMissingColumnsError("cleaning", []string{"UnitPrice", "Country"})
	require.Contains(t, err.Error(), "cleaning: missing required columns: UnitPrice, Country")

	empty := NewEmptyDatasetError("modelling")
	require.Contains(t, empty.Error(), "modelling: dataset contains no rows")
}

func TestRunMetricsStages(t *testing.T) {
	m := NewRunMetrics()
	m.StageStarted("ingestion", 0)
	m.StageCompleted("ingestion", 100)
	m.StageStarted("cleaning", 100)
	m.StageCompleted("cleaning", 95)
	m.RecordRowCounts(100, 95, 5)
	m.RecordModelCounts(95, 40)
	m.Finish()

	stages := m.Stages()
	require.Len(t, stages, 2)
	require.Equal(t, "ingestion", stages[0].Stage)
	require.Equal(t, "cleaning", stages[1].Stage)
	require.Equal(t, 95, stages[1].RowsOut)

	report := m.GenerateReport()
	require.Contains(t, report, "Pipeline Run Report")
	require.Contains(t, report, "Extracted: 100")
	require.Contains(t, report, "Cleaned: 95 (95.0%)")
	require.Contains(t, report, "Fact Rows: 95")

	jsonOut, err := m.ToJSON()
	require.NoError(t, err)
	require.Contains(t, jsonOut, `"rows_extracted": 100`)
	require.Contains(t, jsonOut, `"stage": "ingestion"`)
}

func TestRunMetricsZeroDivision(t *testing.T) {
	m := NewRunMetrics()
	m.Finish()
	report := m.GenerateReport()
	require.Contains(t, report, "Cleaned: 0 (0.0%)")
}

func TestNewRunContext(t *testing.T) {
	rc := NewRunContext(nil)

	require.Len(t, rc.JobID, 8)
	require.NotNil(t, rc.Logger)
	require.NotNil(t, rc.Issues)
	require.NotNil(t, rc.Metrics)

	// Two runs never share an identity or a collector.
	other := NewRunContext(nil)
	require.NotEqual(t, rc.JobID, other.JobID)
	rc.Issues.Record(NewIssue(ClassAdvisory, "cleaning", "test"))
	require.Equal(t, int64(0), other.Issues.Count(ClassAdvisory))
}

func TestNewRunResult(t *testing.T) {
	rc := NewRunContext(zap.NewNop())
	rc.Metrics.RecordRowCounts(100, 95, 5)
	rc.Metrics.RecordModelCounts(95, 40)
	rc.Issues.RecordCount(NewIssue(ClassParseWarning, "cleaning", "bad dates"), 3)
	rc.Issues.RecordCount(NewIssue(ClassIntegrityWarning, "modelling", "unmapped"), 2)
	rc.Issues.RecordCount(NewIssue(ClassAdvisory, "cleaning", "cancelled"), 7)

	result := NewRunResult(rc, StatusCompleted, nil)
	require.Equal(t, rc.JobID, result.JobID)
	require.Equal(t, StatusCompleted, result.Status)
	require.Empty(t, result.Error)
	require.Equal(t, 100, result.RowsExtracted)
	require.Equal(t, 95, result.RowsCleaned)
	require.Equal(t, 95, result.FactRows)
	require.Equal(t, int64(5), result.Warnings)
	require.Equal(t, int64(7), result.Advisories)
}

func TestNewRunResultFailure(t *testing.T) {
	rc := NewRunContext(zap.NewNop())
	err := NewEmptyDatasetError("cleaning")

	result := NewRunResult(rc, StatusFailed, err)
	require.Equal(t, StatusFailed, result.Status)
	require.True(t, strings.Contains(result.Error, "dataset contains no rows"))
}
