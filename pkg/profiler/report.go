// pkg/profiler/report.go
package profiler

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const historyFileName = "profiling_history.csv"

var historyHeader = []string{
	"job_id",
	"run_timestamp",
	"total_rows",
	"total_columns",
	"completeness_score",
	"duplicate_rows",
	"negative_quantities",
	"invalid_prices",
	"zero_prices",
	"missing_customer_ids",
	"missing_descriptions",
	"cancellation_count",
	"extreme_quantities_count",
}

// WriteReport renders the quality summary as a text report under
// outputDir/reports and returns the report path.
func (p *DataProfiler) WriteReport(summary *QualitySummary, outputDir string) (string, error) {
	reportsDir := filepath.Join(outputDir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	fileName := fmt.Sprintf("profile_report_%s.txt", time.Now().Format("20060102_150405"))
	reportPath := filepath.Join(reportsDir, fileName)

	if err := os.WriteFile(reportPath, []byte(renderReport(summary)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write profile report: %w", err)
	}

	p.logger.Info("Profile report saved", zap.String("path", reportPath))
	return reportPath, nil
}

func renderReport(summary *QualitySummary) string {
	divider := strings.Repeat("=", 50)
	rule := strings.Repeat("-", 50)

	var sb strings.Builder
	sb.WriteString(divider + "\n")
	sb.WriteString(fmt.Sprintf("DATA PROFILE REPORT - Job ID: %s\n", summary.JobID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", summary.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(divider + "\n\n")

	sb.WriteString("DATASET OVERVIEW\n" + rule + "\n")
	sb.WriteString(fmt.Sprintf("Total Rows: %d\n", summary.Overview.RowCount))
	sb.WriteString(fmt.Sprintf("Total Columns: %d\n", summary.Overview.ColumnCount))
	sb.WriteString(fmt.Sprintf("Overall Completeness Score: %.2f%%\n\n", summary.Complete.CompletenessScore))

	sb.WriteString("COLUMN DATA TYPES\n" + rule + "\n")
	for _, col := range sortedKeys(summary.ColumnTypes) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", col, summary.ColumnTypes[col]))
	}
	sb.WriteString("\n")

	sb.WriteString("COMPLETENESS ANALYSIS\n" + rule + "\n")
	sb.WriteString("Missing Values by Column:\n")
	for _, col := range sortedKeys(summary.Complete.MissingValues) {
		sb.WriteString(fmt.Sprintf("  %s: %d (%.2f%%)\n",
			col, summary.Complete.MissingValues[col], summary.Complete.MissingPercentage[col]))
	}
	sb.WriteString("\n")

	sb.WriteString("DATA QUALITY ISSUES\n" + rule + "\n")
	sb.WriteString(fmt.Sprintf("Duplicate Rows: %d\n", summary.Issues.DuplicateRows))
	sb.WriteString(fmt.Sprintf("Negative Quantities: %d\n", summary.Issues.NegativeQuantities))
	sb.WriteString(fmt.Sprintf("Zero Quantities: %d\n", summary.Issues.ZeroQuantities))
	sb.WriteString(fmt.Sprintf("Negative Prices: %d\n", summary.Issues.NegativePrices))
	sb.WriteString(fmt.Sprintf("Zero Prices: %d\n", summary.Issues.ZeroPrices))
	sb.WriteString(fmt.Sprintf("Missing Customer IDs: %d\n", summary.Issues.MissingCustomerIDs))
	sb.WriteString(fmt.Sprintf("Missing Descriptions: %d\n\n", summary.Issues.MissingDescriptions))

	sb.WriteString("BUSINESS LOGIC CONSTRAINTS\n" + rule + "\n")
	for _, constraint := range summary.Constraints {
		sb.WriteString(fmt.Sprintf("Constraint: %s\n", constraint.Constraint))
		sb.WriteString(fmt.Sprintf("  Count: %d\n", constraint.Count))
		sb.WriteString(fmt.Sprintf("  Action Needed: %s\n", constraint.ActionNeeded))
		if constraint.Percentage != nil {
			sb.WriteString(fmt.Sprintf("  Percentage: %.2f%%\n", *constraint.Percentage))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// AppendHistory adds one row for this run to the profiling history CSV,
// creating the file with a header when it does not exist yet.
func (p *DataProfiler) AppendHistory(summary *QualitySummary, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create profiling directory: %w", err)
	}

	historyPath := filepath.Join(outputDir, historyFileName)
	_, statErr := os.Stat(historyPath)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open profiling history: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if isNew {
		if err := writer.Write(historyHeader); err != nil {
			return fmt.Errorf("failed to write history header: %w", err)
		}
	}

	record := []string{
		summary.JobID,
		summary.GeneratedAt.Format(time.RFC3339),
		strconv.FormatInt(summary.Overview.RowCount, 10),
		strconv.FormatInt(summary.Overview.ColumnCount, 10),
		strconv.FormatFloat(summary.Complete.CompletenessScore, 'f', 2, 64),
		strconv.FormatInt(summary.Issues.DuplicateRows, 10),
		strconv.FormatInt(summary.Issues.NegativeQuantities, 10),
		strconv.FormatInt(summary.Issues.NegativePrices, 10),
		strconv.FormatInt(summary.Issues.ZeroPrices, 10),
		strconv.FormatInt(summary.Issues.MissingCustomerIDs, 10),
		strconv.FormatInt(summary.Issues.MissingDescriptions, 10),
		strconv.FormatInt(summary.constraintCount("Cancellation transactions"), 10),
		strconv.FormatInt(summary.constraintCount("Extreme Quantities"), 10),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write history row: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush profiling history: %w", err)
	}

	p.logger.Info("Profiling history updated",
		zap.String("path", historyPath),
		zap.String("job_id", summary.JobID))
	return nil
}

func (s *QualitySummary) constraintCount(name string) int64 {
	for _, constraint := range s.Constraints {
		if constraint.Constraint == name {
			return constraint.Count
		}
	}
	return 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
