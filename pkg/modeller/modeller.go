// pkg/modeller/modeller.go
package modeller

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/pipeline"
)

const stageName = "modelling"

// StarSchemaBuilder turns a cleaned rowset into the dimensional model: three
// dimensions plus the sales fact table.
type StarSchemaBuilder struct {
	logger *zap.Logger
	issues *pipeline.IssueCollector
}

// NewStarSchemaBuilder creates a builder. A nil logger is replaced with a
// no-op logger; a nil collector disables issue recording.
func NewStarSchemaBuilder(logger *zap.Logger, issues *pipeline.IssueCollector) *StarSchemaBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StarSchemaBuilder{
		logger: logger,
		issues: issues,
	}
}

// Build constructs the star schema from the cleaned rowset. The three
// dimension builders are independent and run concurrently; the fact builder
// joins after all three complete because it resolves foreign keys against
// their output. The assembler then finalizes types and derives the report.
func (b *StarSchemaBuilder) Build(rs *model.RowSet) (*model.StarSchema, *model.ModellingReport, error) {
	if rs == nil {
		return nil, nil, fmt.Errorf("rowset cannot be nil")
	}
	if rs.Len() == 0 {
		err := pipeline.NewEmptyDatasetError(stageName)
		b.record(pipeline.NewIssue(pipeline.ClassValidation, stageName, err.Error()))
		return nil, nil, err
	}

	b.logger.Info("Building star schema", zap.Int("cleaned_rows", rs.Len()))

	var (
		wg        sync.WaitGroup
		dimDate   []model.DateRow
		dimProd   []model.ProductRow
		dimCust   []model.CustomerRow
		dateErr   error
		prodErr   error
		custErr   error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		dimDate, dateErr = b.buildDateDimension(rs)
	}()
	go func() {
		defer wg.Done()
		dimProd, prodErr = b.buildProductDimension(rs)
	}()
	go func() {
		defer wg.Done()
		dimCust, custErr = b.buildCustomerDimension(rs)
	}()
	wg.Wait()

	if err := multierr.Combine(dateErr, prodErr, custErr); err != nil {
		return nil, nil, fmt.Errorf("dimension build failed: %w", err)
	}

	builtAt := time.Now()
	facts := b.buildFacts(rs, dimDate, dimProd, dimCust, builtAt)

	schema := &model.StarSchema{
		DimDate:     dimDate,
		DimProduct:  dimProd,
		DimCustomer: dimCust,
		FactSales:   facts,
		BuiltAt:     builtAt,
	}

	report, err := b.assemble(schema)
	if err != nil {
		return nil, nil, err
	}

	b.logger.Info("Star schema built",
		zap.Int64("dim_date", report.TablesCreated.DimDate),
		zap.Int64("dim_product", report.TablesCreated.DimProduct),
		zap.Int64("dim_customer", report.TablesCreated.DimCustomer),
		zap.Int64("fact_sales", report.TablesCreated.FactSales))

	return schema, report, nil
}

func (b *StarSchemaBuilder) record(issue pipeline.Issue) {
	if b.issues != nil {
		b.issues.Record(issue)
	}
}

func (b *StarSchemaBuilder) recordCount(issue pipeline.Issue, n int64) {
	if b.issues != nil {
		b.issues.RecordCount(issue, n)
	}
}
