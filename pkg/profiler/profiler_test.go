// pkg/profiler/profiler_test.go
package profiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

func sampleRowSet() *model.RowSet {
	rs := model.NewRowSet(model.RequiredColumns())
	rs.Append(model.Row{
		model.ColInvoiceNo:   "536365",
		model.ColStockCode:   "A1",
		model.ColDescription: "LAMP",
		model.ColQuantity:    "6",
		model.ColInvoiceDate: "2010-12-01 08:26",
		model.ColUnitPrice:   "2.55",
		model.ColCustomerID:  "17850",
		model.ColCountry:     "United Kingdom",
	})
	rs.Append(model.Row{
		model.ColInvoiceNo:   "C536366",
		model.ColStockCode:   "A1",
		model.ColDescription: nil,
		model.ColQuantity:    "-6",
		model.ColInvoiceDate: "2010-12-01 08:28",
		model.ColUnitPrice:   "2.55",
		model.ColCustomerID:  nil,
		model.ColCountry:     "United Kingdom",
	})
	rs.Append(model.Row{
		model.ColInvoiceNo:   "536367",
		model.ColStockCode:   "A2",
		model.ColDescription: "MUG",
		model.ColQuantity:    "0",
		model.ColInvoiceDate: "2010-12-01 09:00",
		model.ColUnitPrice:   "0",
		model.ColCustomerID:  "17851",
		model.ColCountry:     "France",
	})
	return rs
}

func TestProfileCountsQualityIssues(t *testing.T) {
	p := NewDataProfiler("testjob1", zap.NewNop())
	summary, err := p.Profile(sampleRowSet())
	require.NoError(t, err)

	require.Equal(t, int64(3), summary.Overview.RowCount)
	require.Equal(t, int64(8), summary.Overview.ColumnCount)

	require.Equal(t, int64(1), summary.Issues.MissingCustomerIDs)
	require.Equal(t, int64(1), summary.Issues.MissingDescriptions)
	require.Equal(t, int64(1), summary.Issues.NegativeQuantities)
	require.Equal(t, int64(1), summary.Issues.ZeroQuantities)
	require.Equal(t, int64(1), summary.Issues.NegativePrices)
	require.Equal(t, int64(1), summary.Issues.ZeroPrices)
	require.Equal(t, int64(0), summary.Issues.DuplicateRows)

	// 2 missing cells out of 24.
	require.InDelta(t, 91.67, summary.Complete.CompletenessScore, 0.01)
	require.Equal(t, int64(1), summary.Complete.MissingValues[model.ColCustomerID])
}

func TestProfileCountsDuplicates(t *testing.T) {
	rs := sampleRowSet()
	rs.Append(rs.Rows[0])

	p := NewDataProfiler("testjob2", zap.NewNop())
	summary, err := p.Profile(rs)
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.Issues.DuplicateRows)
}

func TestProfileBusinessConstraints(t *testing.T) {
	p := NewDataProfiler("testjob3", zap.NewNop())
	summary, err := p.Profile(sampleRowSet())
	require.NoError(t, err)

	require.Equal(t, int64(1), summary.constraintCount("Cancellation transactions"))
	require.Equal(t, int64(0), summary.constraintCount("Extreme Quantities"))
	require.Equal(t, int64(1), summary.constraintCount("Missing Product Descriptions"))
}

func TestProfileNoMissingDescriptionsConstraintWhenClean(t *testing.T) {
	rs := model.NewRowSet(model.RequiredColumns())
	rs.Append(model.Row{
		model.ColInvoiceNo:   "536365",
		model.ColStockCode:   "A1",
		model.ColDescription: "LAMP",
		model.ColQuantity:    "6",
		model.ColInvoiceDate: "2010-12-01 08:26",
		model.ColUnitPrice:   "2.55",
		model.ColCustomerID:  "17850",
		model.ColCountry:     "France",
	})

	p := NewDataProfiler("testjob4", zap.NewNop())
	summary, err := p.Profile(rs)
	require.NoError(t, err)

	for _, constraint := range summary.Constraints {
		require.NotEqual(t, "Missing Product Descriptions", constraint.Constraint)
	}
}

func TestWriteReportAndHistory(t *testing.T) {
	dir := t.TempDir()

	p := NewDataProfiler("testjob5", zap.NewNop())
	summary, err := p.Profile(sampleRowSet())
	require.NoError(t, err)

	reportPath, err := p.WriteReport(summary, dir)
	require.NoError(t, err)
	require.FileExists(t, reportPath)

	content, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	text := string(content)
	require.Contains(t, text, "DATA PROFILE REPORT - Job ID: testjob5")
	require.Contains(t, text, "BUSINESS LOGIC CONSTRAINTS")
	require.Contains(t, text, "Missing Customer IDs: 1")

	// First append creates the file with a header, second only adds a row.
	require.NoError(t, p.AppendHistory(summary, dir))
	require.NoError(t, p.AppendHistory(summary, dir))

	history, err := os.ReadFile(filepath.Join(dir, historyFileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(history)), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "job_id,run_timestamp"))
	require.True(t, strings.HasPrefix(lines[1], "testjob5,"))
}
