// pkg/profiler/profiler.go
package profiler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// DataProfiler assesses the quality of a raw extract before cleaning runs.
// It measures, never mutates; the counts it reports preview what the
// cleaning rules will do.
type DataProfiler struct {
	jobID  string
	logger *zap.Logger
}

// NewDataProfiler creates a profiler for one run.
func NewDataProfiler(jobID string, logger *zap.Logger) *DataProfiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataProfiler{
		jobID:  jobID,
		logger: logger,
	}
}

// DatasetOverview describes the shape of the profiled rowset.
type DatasetOverview struct {
	RowCount    int64 `json:"row_count"`
	ColumnCount int64 `json:"column_count"`
}

// Completeness holds per-column missing value counts and the overall
// completeness score.
type Completeness struct {
	MissingValues     map[string]int64   `json:"missing_values"`
	MissingPercentage map[string]float64 `json:"missing_percentage"`
	CompletenessScore float64            `json:"completeness_score"`
}

// QualityIssues counts the defect classes the cleaning rules will act on.
type QualityIssues struct {
	DuplicateRows       int64 `json:"duplicate_rows"`
	NegativeQuantities  int64 `json:"negative_quantities"`
	ZeroQuantities      int64 `json:"zero_quantities"`
	NegativePrices      int64 `json:"negative_prices"`
	ZeroPrices          int64 `json:"zero_prices"`
	MissingCustomerIDs  int64 `json:"missing_customer_ids"`
	MissingDescriptions int64 `json:"missing_descriptions"`
}

// BusinessConstraint names a business rule the downstream stages apply,
// with the row count it affects.
type BusinessConstraint struct {
	Constraint   string   `json:"constraint"`
	Count        int64    `json:"count"`
	Percentage   *float64 `json:"percentage,omitempty"`
	ActionNeeded string   `json:"action_needed"`
}

// QualitySummary is the complete profile of one raw extract.
type QualitySummary struct {
	JobID       string               `json:"job_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Overview    DatasetOverview      `json:"dataset_overview"`
	ColumnTypes map[string]string    `json:"column_types"`
	Complete    Completeness         `json:"completeness"`
	Issues      QualityIssues        `json:"data_quality_issues"`
	Constraints []BusinessConstraint `json:"business_logic_constraints"`
}

// Profile builds the quality summary for a raw rowset.
func (p *DataProfiler) Profile(rs *model.RowSet) (*QualitySummary, error) {
	if rs == nil {
		return nil, fmt.Errorf("rowset cannot be nil")
	}

	p.logger.Info("Generating data quality metrics", zap.Int("rows", rs.Len()))

	summary := &QualitySummary{
		JobID:       p.jobID,
		GeneratedAt: time.Now(),
		Overview: DatasetOverview{
			RowCount:    int64(rs.Len()),
			ColumnCount: int64(len(rs.Columns)),
		},
		ColumnTypes: p.inferColumnTypes(rs),
		Complete:    p.assessCompleteness(rs),
		Issues:      p.findQualityIssues(rs),
	}
	summary.Constraints = p.identifyBusinessConstraints(rs, summary.Issues)

	p.logSummary(summary)
	return summary, nil
}

// inferColumnTypes reports the Go type of the first non-missing value in
// each column, "unknown" when the whole column is missing.
func (p *DataProfiler) inferColumnTypes(rs *model.RowSet) map[string]string {
	types := make(map[string]string, len(rs.Columns))
	for _, col := range rs.Columns {
		types[col] = "unknown"
		for _, row := range rs.Rows {
			if v := row[col]; v != nil {
				types[col] = fmt.Sprintf("%T", v)
				break
			}
		}
	}
	return types
}

func (p *DataProfiler) assessCompleteness(rs *model.RowSet) Completeness {
	completeness := Completeness{
		MissingValues:     make(map[string]int64, len(rs.Columns)),
		MissingPercentage: make(map[string]float64, len(rs.Columns)),
	}

	rowCount := int64(rs.Len())
	var totalMissing int64
	for _, col := range rs.Columns {
		var missing int64
		for _, row := range rs.Rows {
			if row[col] == nil {
				missing++
			}
		}
		completeness.MissingValues[col] = missing
		if rowCount > 0 {
			completeness.MissingPercentage[col] = float64(missing) / float64(rowCount) * 100
		}
		totalMissing += missing
	}

	totalCells := rowCount * int64(len(rs.Columns))
	if totalCells > 0 {
		completeness.CompletenessScore = (1 - float64(totalMissing)/float64(totalCells)) * 100
	}
	return completeness
}

func (p *DataProfiler) findQualityIssues(rs *model.RowSet) QualityIssues {
	var issues QualityIssues

	seen := make(map[string]struct{}, rs.Len())
	for _, row := range rs.Rows {
		fingerprint := rs.Fingerprint(row)
		if _, dup := seen[fingerprint]; dup {
			issues.DuplicateRows++
		} else {
			seen[fingerprint] = struct{}{}
		}

		if quantity, err := model.AsInt(row[model.ColQuantity]); err == nil {
			if quantity < 0 {
				issues.NegativeQuantities++
			}
			if quantity == 0 {
				issues.ZeroQuantities++
			}
		}

		if price, err := model.AsFloat(row[model.ColUnitPrice]); err == nil {
			if price <= 0 {
				issues.NegativePrices++
			}
			if price == 0 {
				issues.ZeroPrices++
			}
		}

		if row[model.ColCustomerID] == nil {
			issues.MissingCustomerIDs++
		}
		if row[model.ColDescription] == nil {
			issues.MissingDescriptions++
		}
	}

	return issues
}

func (p *DataProfiler) identifyBusinessConstraints(rs *model.RowSet, issues QualityIssues) []BusinessConstraint {
	var cancellations int64
	var extremeQuantities int64
	for _, row := range rs.Rows {
		if len(model.AsString(row[model.ColInvoiceNo])) > 0 &&
			model.AsString(row[model.ColInvoiceNo])[0] == 'C' {
			cancellations++
		}
		if quantity, err := model.AsInt(row[model.ColQuantity]); err == nil {
			if quantity > 10000 || quantity < -10000 {
				extremeQuantities++
			}
		}
	}

	constraints := []BusinessConstraint{
		{
			Constraint:   "Cancellation transactions",
			Count:        cancellations,
			ActionNeeded: "Flag as cancellations but keep for refund analysis",
		},
		{
			Constraint:   "Missing CustomerIDs",
			Count:        issues.MissingCustomerIDs,
			Percentage:   percentageOf(issues.MissingCustomerIDs, int64(rs.Len())),
			ActionNeeded: "Assign surrogate key (0) for unknown customers",
		},
		{
			Constraint:   "Negative Quantities",
			Count:        issues.NegativeQuantities,
			ActionNeeded: "Validate against cancellation flag; keep legitimate returns",
		},
		{
			Constraint:   "Invalid Prices (<= 0)",
			Count:        issues.NegativePrices,
			ActionNeeded: "Exclude from fact table as they represent data errors",
		},
		{
			Constraint:   "Extreme Quantities",
			Count:        extremeQuantities,
			ActionNeeded: "Flag for business review but keep for wholesale analysis",
		},
	}

	if issues.MissingDescriptions > 0 {
		constraints = append(constraints, BusinessConstraint{
			Constraint:   "Missing Product Descriptions",
			Count:        issues.MissingDescriptions,
			ActionNeeded: "Fill with \"Unknown Product\" placeholder",
		})
	}

	return constraints
}

func (p *DataProfiler) logSummary(summary *QualitySummary) {
	p.logger.Info("Data quality assessment",
		zap.Int64("rows", summary.Overview.RowCount),
		zap.Int64("columns", summary.Overview.ColumnCount),
		zap.Float64("completeness_pct", summary.Complete.CompletenessScore),
		zap.Int64("missing_customer_ids", summary.Issues.MissingCustomerIDs),
		zap.Int64("duplicate_rows", summary.Issues.DuplicateRows),
		zap.Int64("invalid_prices", summary.Issues.NegativePrices),
		zap.Int("business_constraints", len(summary.Constraints)))
}

func percentageOf(part, total int64) *float64 {
	if total == 0 {
		return nil
	}
	pct := float64(part) / float64(total) * 100
	return &pct
}
