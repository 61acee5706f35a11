// pkg/cleaner/cleaner_test.go
package cleaner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/pipeline"
)

func newRawRowSet(rows ...model.Row) *model.RowSet {
	rs := model.NewRowSet(model.RequiredColumns())
	for _, row := range rows {
		rs.Append(row)
	}
	return rs
}

func rawRow(invoiceNo, stockCode string, description any, quantity any, invoiceDate any, unitPrice any, customerID any, country string) model.Row {
	return model.Row{
		model.ColInvoiceNo:   invoiceNo,
		model.ColStockCode:   stockCode,
		model.ColDescription: description,
		model.ColQuantity:    quantity,
		model.ColInvoiceDate: invoiceDate,
		model.ColUnitPrice:   unitPrice,
		model.ColCustomerID:  customerID,
		model.ColCountry:     country,
	}
}

func TestCleanRejectsMissingColumns(t *testing.T) {
	rs := model.NewRowSet([]string{model.ColInvoiceNo, model.ColStockCode})
	rs.Append(model.Row{model.ColInvoiceNo: "536365", model.ColStockCode: "A1"})

	c := NewDataCleaner(zap.NewNop(), nil)
	_, _, err := c.Clean(rs)
	require.Error(t, err)

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Columns, model.ColUnitPrice)
	require.Contains(t, validationErr.Columns, model.ColCountry)
	require.Contains(t, err.Error(), "missing required columns")
}

func TestCleanRejectsEmptyDataset(t *testing.T) {
	rs := model.NewRowSet(model.RequiredColumns())

	c := NewDataCleaner(zap.NewNop(), nil)
	_, _, err := c.Clean(rs)
	require.Error(t, err)

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Empty(t, validationErr.Columns)
}

func TestCleanSampleInvoices(t *testing.T) {
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, " uk "),
		rawRow("C536366", "A1", nil, -6, "2010-12-01 08:28", 2.55, nil, "UK"),
	)

	issues := pipeline.NewIssueCollector(zap.NewNop())
	c := NewDataCleaner(zap.NewNop(), issues)
	cleaned, report, err := c.Clean(rs)
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.Len())

	first, second := cleaned.Rows[0], cleaned.Rows[1]

	require.Equal(t, false, first[model.ColIsCancelled])
	require.Equal(t, true, second[model.ColIsCancelled])
	require.Equal(t, int64(17850), first[model.ColCustomerID])
	require.Equal(t, int64(0), second[model.ColCustomerID])
	require.Equal(t, "LAMP", first[model.ColDescription])
	require.Equal(t, "Unknown Product", second[model.ColDescription])
	require.Equal(t, "Uk", first[model.ColCountry])
	require.Equal(t, "Uk", second[model.ColCountry])
	require.InDelta(t, 15.30, first[model.ColLineTotal].(float64), 1e-9)
	require.InDelta(t, -15.30, second[model.ColLineTotal].(float64), 1e-9)

	require.Equal(t, int64(2), report.InitialRows)
	require.Equal(t, int64(2), report.FinalRows)
	require.Equal(t, int64(0), report.RowsRemoved)
	require.InDelta(t, 100.0, report.DataQualityPassRate, 1e-9)
	require.Equal(t, int64(1), report.CleaningMetrics.Get(model.StatCancelledTransactions))
	require.Equal(t, int64(1), report.CleaningMetrics.Get(model.StatMissingCustomerIDs))
	require.Equal(t, int64(1), report.CleaningMetrics.Get(model.StatMissingDescriptions))

	require.Equal(t, int64(3), issues.Count(pipeline.ClassAdvisory))
}

func TestCleanDropsNonPositivePrices(t *testing.T) {
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, "France"),
		rawRow("536366", "A2", "MUG", 2, "2010-12-01 09:00", 0.0, 17851, "France"),
		rawRow("536367", "A3", "BOWL", 3, "2010-12-01 09:30", -1.25, 17852, "France"),
	)

	c := NewDataCleaner(zap.NewNop(), nil)
	cleaned, report, err := c.Clean(rs)
	require.NoError(t, err)

	require.Equal(t, 1, cleaned.Len())
	require.Equal(t, int64(3), report.InitialRows)
	require.Equal(t, int64(1), report.FinalRows)
	require.Equal(t, int64(2), report.RowsRemoved)
	require.Equal(t, int64(2), report.CleaningMetrics.Get(model.StatInvalidPriceExclusions))
}

func TestCleanRemovesDuplicatesBeforePriceFilter(t *testing.T) {
	// Two identical zero-price rows collapse to one duplicate removal and
	// one price exclusion, not two exclusions.
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 0.0, 17850, "France"),
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 0.0, 17850, "France"),
		rawRow("536366", "A2", "MUG", 2, "2010-12-01 09:00", 1.25, 17851, "France"),
	)

	c := NewDataCleaner(zap.NewNop(), nil)
	cleaned, report, err := c.Clean(rs)
	require.NoError(t, err)

	require.Equal(t, 1, cleaned.Len())
	require.Equal(t, int64(1), report.CleaningMetrics.Get(model.StatDuplicatesRemoved))
	require.Equal(t, int64(1), report.CleaningMetrics.Get(model.StatInvalidPriceExclusions))
}

func TestCleanDuplicateSurvivorsKeepFirstSeenOrder(t *testing.T) {
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, "France"),
		rawRow("536366", "A2", "MUG", 2, "2010-12-01 09:00", 1.25, 17851, "France"),
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, "France"),
	)

	c := NewDataCleaner(zap.NewNop(), nil)
	cleaned, _, err := c.Clean(rs)
	require.NoError(t, err)

	require.Equal(t, 2, cleaned.Len())
	require.Equal(t, "536365", cleaned.Rows[0][model.ColInvoiceNo])
	require.Equal(t, "536366", cleaned.Rows[1][model.ColInvoiceNo])
}

func TestCleanUnparsableTimestampBecomesNull(t *testing.T) {
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "not a date", 2.55, 17850, "France"),
	)

	issues := pipeline.NewIssueCollector(zap.NewNop())
	c := NewDataCleaner(zap.NewNop(), issues)
	cleaned, report, err := c.Clean(rs)
	require.NoError(t, err)

	row := cleaned.Rows[0]
	require.Nil(t, row[model.ColInvoiceDate])
	require.Nil(t, row[model.ColInvoiceYear])
	require.Nil(t, row[model.ColInvoiceDayOfWeek])
	require.Equal(t, int64(1), report.CleaningMetrics.Get(model.StatDatetimeParseFailures))
	require.Equal(t, int64(1), issues.Count(pipeline.ClassParseWarning))
}

func TestCleanDateComponents(t *testing.T) {
	// 2010-12-01 was a Wednesday: day-of-week 2 under the Monday=0 convention.
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, "France"),
	)

	c := NewDataCleaner(zap.NewNop(), nil)
	cleaned, _, err := c.Clean(rs)
	require.NoError(t, err)

	row := cleaned.Rows[0]
	ts, ok := row[model.ColInvoiceDate].(time.Time)
	require.True(t, ok)
	require.Equal(t, 2010, ts.Year())
	require.Equal(t, int64(2010), row[model.ColInvoiceYear])
	require.Equal(t, int64(12), row[model.ColInvoiceMonth])
	require.Equal(t, int64(1), row[model.ColInvoiceDay])
	require.Equal(t, int64(2), row[model.ColInvoiceDayOfWeek])
	require.Equal(t, int64(4), row[model.ColInvoiceQuarter])
}

func TestCleanHighQuantityFlag(t *testing.T) {
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 10001, "2010-12-01 08:26", 2.55, 17850, "France"),
		rawRow("C536366", "A1", "LAMP", -10001, "2010-12-01 08:28", 2.55, 17850, "France"),
		rawRow("536367", "A1", "LAMP", 10000, "2010-12-01 08:30", 2.55, 17850, "France"),
	)

	c := NewDataCleaner(zap.NewNop(), nil)
	cleaned, report, err := c.Clean(rs)
	require.NoError(t, err)

	require.Equal(t, true, cleaned.Rows[0][model.ColHighQuantityFlag])
	require.Equal(t, true, cleaned.Rows[1][model.ColHighQuantityFlag])
	require.Equal(t, false, cleaned.Rows[2][model.ColHighQuantityFlag])
	require.Equal(t, int64(2), report.CleaningMetrics.Get(model.StatHighQuantityRecords))
}

func TestCleanDescriptionMetricAbsentWhenNothingImputed(t *testing.T) {
	rs := newRawRowSet(
		rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, "France"),
	)

	c := NewDataCleaner(zap.NewNop(), nil)
	_, report, err := c.Clean(rs)
	require.NoError(t, err)

	_, present := report.CleaningMetrics[model.StatMissingDescriptions]
	require.False(t, present)
}

func TestCleanIsIdempotent(t *testing.T) {
	build := func() *model.RowSet {
		return newRawRowSet(
			rawRow("536365", "A1", "LAMP", 6, "2010-12-01 08:26", 2.55, 17850, " uk "),
			rawRow("C536366", "A1", nil, -6, "2010-12-01 08:28", 2.55, nil, "UK"),
			rawRow("536367", "A2", "MUG", 2, "2010-12-01 09:00", 0.0, 17851, "France"),
		)
	}

	c := NewDataCleaner(zap.NewNop(), nil)
	once, _, err := c.Clean(build())
	require.NoError(t, err)

	// Clean mutates in place, so snapshot the first pass before rerunning.
	firstPassRows := once.Len()
	lineTotals := make([]any, 0, firstPassRows)
	countries := make([]any, 0, firstPassRows)
	for _, row := range once.Rows {
		lineTotals = append(lineTotals, row[model.ColLineTotal])
		countries = append(countries, row[model.ColCountry])
	}

	twice, report, err := c.Clean(once)
	require.NoError(t, err)

	require.Equal(t, firstPassRows, twice.Len())
	require.Equal(t, int64(0), report.RowsRemoved)
	require.Equal(t, int64(0), report.CleaningMetrics.Get(model.StatMissingCustomerIDs))
	_, present := report.CleaningMetrics[model.StatMissingDescriptions]
	require.False(t, present)

	for i, row := range twice.Rows {
		require.Equal(t, lineTotals[i], row[model.ColLineTotal])
		require.Equal(t, countries[i], row[model.ColCountry])
	}
}
