// pkg/model/report.go
package model

import "time"

// Quality-stat keys recorded by the cleaning pipeline.
const (
	StatDatetimeParseFailures  = "datetime_parse_failures"
	StatCancelledTransactions  = "cancelled_transactions"
	StatMissingCustomerIDs     = "missing_customer_ids"
	StatMissingDescriptions    = "missing_descriptions"
	StatDuplicatesRemoved      = "duplicates_removed"
	StatInvalidPriceExclusions = "invalid_price_exclusions"
	StatHighQuantityRecords    = "high_quantity_records"
)

// QualityStats maps a cleaning metric name to its count. Each rule records
// its own count before applying its effect, so a later failure cannot lose
// earlier diagnostics.
type QualityStats map[string]int64

// Add increments a metric by n.
func (qs QualityStats) Add(name string, n int64) {
	qs[name] += n
}

// Get returns the count for a metric, zero if never recorded.
func (qs QualityStats) Get(name string) int64 {
	return qs[name]
}

// CleaningReport summarises one run of the cleaning pipeline. It is owned by
// that run and discarded after rendering.
type CleaningReport struct {
	InitialRows         int64        `json:"initial_rows"`
	FinalRows           int64        `json:"final_rows"`
	RowsRemoved         int64        `json:"rows_removed"`
	DataQualityPassRate float64      `json:"data_quality_pass_rate"`
	CleaningMetrics     QualityStats `json:"cleaning_metrics"`
}

// NewCleaningReport derives the report from row counts and the accumulated
// metrics. A zero initial count yields a zero pass rate rather than a
// division by zero; the pipeline rejects empty input before this point.
func NewCleaningReport(initialRows, finalRows int64, stats QualityStats) *CleaningReport {
	report := &CleaningReport{
		InitialRows:     initialRows,
		FinalRows:       finalRows,
		RowsRemoved:     initialRows - finalRows,
		CleaningMetrics: stats,
	}
	if initialRows > 0 {
		report.DataQualityPassRate = float64(finalRows) / float64(initialRows) * 100
	}
	return report
}

// TableCounts holds the per-table row counts of one modelling run.
type TableCounts struct {
	DimDate     int64 `json:"dim_date"`
	DimProduct  int64 `json:"dim_product"`
	DimCustomer int64 `json:"dim_customer"`
	FactSales   int64 `json:"fact_sales"`
}

// ModellingReport summarises the assembled star schema.
type ModellingReport struct {
	TablesCreated TableCounts `json:"tables_created"`

	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`

	UniqueProducts   int64 `json:"unique_products"`
	UniqueCustomers  int64 `json:"unique_customers"`
	UnknownCustomers int64 `json:"unknown_customers"`

	UnmappedDates     int64 `json:"unmapped_dates"`
	UnmappedProducts  int64 `json:"unmapped_products"`
	UnmappedCustomers int64 `json:"unmapped_customers"`
}

// HasUnmapped reports whether any fact row carries an unresolved foreign key.
func (r *ModellingReport) HasUnmapped() bool {
	return r.UnmappedDates > 0 || r.UnmappedProducts > 0 || r.UnmappedCustomers > 0
}
