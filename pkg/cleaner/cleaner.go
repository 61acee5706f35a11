// pkg/cleaner/cleaner.go
package cleaner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/pipeline"
)

const stageName = "cleaning"

// DataCleaner applies the fixed sequence of cleaning rules to a raw retail
// extract and produces the cleaned rowset plus its quality report.
type DataCleaner struct {
	logger *zap.Logger
	issues *pipeline.IssueCollector
}

// NewDataCleaner creates a cleaner. A nil logger is replaced with a no-op
// logger; a nil collector disables issue recording.
func NewDataCleaner(logger *zap.Logger, issues *pipeline.IssueCollector) *DataCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataCleaner{
		logger: logger,
		issues: issues,
	}
}

// Clean runs the cleaning rules in their fixed order and returns the cleaned
// rowset and report. The rule order is a contract: duplicates are removed
// before the price filter, and line totals are derived only on surviving
// rows. The input rowset is mutated in place; callers hand over ownership.
func (c *DataCleaner) Clean(rs *model.RowSet) (*model.RowSet, *model.CleaningReport, error) {
	if rs == nil {
		return nil, nil, fmt.Errorf("rowset cannot be nil")
	}

	if err := c.validate(rs); err != nil {
		return nil, nil, err
	}

	initialRows := int64(rs.Len())
	stats := make(model.QualityStats)

	c.logger.Info("Starting data cleaning", zap.Int64("initial_rows", initialRows))

	c.normalizeTimestamps(rs, stats)
	c.flagCancellations(rs, stats)
	c.imputeCustomerIDs(rs, stats)
	c.imputeDescriptions(rs, stats)
	c.removeDuplicates(rs, stats)
	c.filterInvalidPrices(rs, stats)
	c.deriveLineTotals(rs)
	c.flagHighQuantities(rs, stats)
	c.extractDateComponents(rs)
	c.normalizeCountries(rs)

	finalRows := int64(rs.Len())
	report := model.NewCleaningReport(initialRows, finalRows, stats)

	c.logger.Info("Data cleaning completed",
		zap.Int64("initial_rows", report.InitialRows),
		zap.Int64("final_rows", report.FinalRows),
		zap.Int64("rows_removed", report.RowsRemoved),
		zap.Float64("pass_rate_pct", report.DataQualityPassRate))

	return rs, report, nil
}

// validate enforces the input contract: all required columns present and at
// least one row. Missing columns are reported together so one run surfaces
// the full schema mismatch.
func (c *DataCleaner) validate(rs *model.RowSet) error {
	if missing := rs.MissingColumns(model.RequiredColumns()); len(missing) > 0 {
		err := pipeline.NewMissingColumnsError(stageName, missing)
		c.record(pipeline.NewIssue(pipeline.ClassValidation, stageName, err.Error()))
		return err
	}

	if rs.Len() == 0 {
		err := pipeline.NewEmptyDatasetError(stageName)
		c.record(pipeline.NewIssue(pipeline.ClassValidation, stageName, err.Error()))
		return err
	}

	return nil
}

func (c *DataCleaner) record(issue pipeline.Issue) {
	if c.issues != nil {
		c.issues.Record(issue)
	}
}

func (c *DataCleaner) recordCount(issue pipeline.Issue, n int64) {
	if c.issues != nil {
		c.issues.RecordCount(issue, n)
	}
}
