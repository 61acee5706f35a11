// pkg/cleaner/rules.go
package cleaner

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/pipeline"
)

// unknownProduct is the placeholder stored for missing descriptions.
const unknownProduct = "Unknown Product"

// unknownCustomerID is the sentinel stored for missing customer ids.
const unknownCustomerID = int64(0)

// highQuantityThreshold flags bulk orders worth a second look.
const highQuantityThreshold = int64(10000)

// normalizeTimestamps parses the invoice timestamp into time.Time.
// Unparsable values become nil, never an error.
func (c *DataCleaner) normalizeTimestamps(rs *model.RowSet, stats model.QualityStats) {
	var failures int64
	for _, row := range rs.Rows {
		raw := row[model.ColInvoiceDate]
		if raw == nil {
			continue
		}

		parsed, err := model.AsTime(raw)
		if err != nil {
			row[model.ColInvoiceDate] = nil
			failures++
			continue
		}
		row[model.ColInvoiceDate] = parsed
	}

	stats.Add(model.StatDatetimeParseFailures, failures)
	if failures > 0 {
		c.recordCount(pipeline.NewIssue(pipeline.ClassParseWarning, stageName,
			fmt.Sprintf("%d invoice timestamps could not be parsed", failures)).
			WithColumn(model.ColInvoiceDate), failures)
		c.logger.Warn("Unparsable invoice timestamps set to null",
			zap.Int64("count", failures))
	}
}

// flagCancellations derives the cancellation flag: an invoice is a
// cancellation iff its stringified identifier starts with "C".
func (c *DataCleaner) flagCancellations(rs *model.RowSet, stats model.QualityStats) {
	rs.AddColumn(model.ColIsCancelled)

	var cancelled int64
	for _, row := range rs.Rows {
		isCancelled := strings.HasPrefix(model.AsString(row[model.ColInvoiceNo]), "C")
		row[model.ColIsCancelled] = isCancelled
		if isCancelled {
			cancelled++
		}
	}

	stats.Add(model.StatCancelledTransactions, cancelled)
	c.recordCount(pipeline.NewIssue(pipeline.ClassAdvisory, stageName,
		fmt.Sprintf("%d cancelled transactions flagged", cancelled)).
		WithColumn(model.ColInvoiceNo), cancelled)
}

// imputeCustomerIDs coerces customer ids to integers and substitutes the
// unknown-customer sentinel for missing or unparsable values.
func (c *DataCleaner) imputeCustomerIDs(rs *model.RowSet, stats model.QualityStats) {
	var missing int64
	for _, row := range rs.Rows {
		raw := row[model.ColCustomerID]
		if raw == nil {
			row[model.ColCustomerID] = unknownCustomerID
			missing++
			continue
		}

		id, err := model.AsInt(raw)
		if err != nil {
			row[model.ColCustomerID] = unknownCustomerID
			missing++
			continue
		}
		row[model.ColCustomerID] = id
	}

	stats.Add(model.StatMissingCustomerIDs, missing)
	c.recordCount(pipeline.NewIssue(pipeline.ClassAdvisory, stageName,
		fmt.Sprintf("%d missing customer ids imputed with sentinel 0", missing)).
		WithColumn(model.ColCustomerID), missing)
}

// imputeDescriptions substitutes the placeholder for missing product
// descriptions. The metric is recorded only when at least one row changed.
func (c *DataCleaner) imputeDescriptions(rs *model.RowSet, stats model.QualityStats) {
	var missing int64
	for _, row := range rs.Rows {
		desc := strings.TrimSpace(model.AsString(row[model.ColDescription]))
		if desc == "" {
			row[model.ColDescription] = unknownProduct
			missing++
			continue
		}
		row[model.ColDescription] = desc
	}

	if missing > 0 {
		stats.Add(model.StatMissingDescriptions, missing)
		c.recordCount(pipeline.NewIssue(pipeline.ClassAdvisory, stageName,
			fmt.Sprintf("%d missing descriptions imputed", missing)).
			WithColumn(model.ColDescription), missing)
	}
}

// removeDuplicates collapses rows identical across every column to their
// first occurrence, preserving survivor order.
func (c *DataCleaner) removeDuplicates(rs *model.RowSet, stats model.QualityStats) {
	seen := make(map[string]struct{}, rs.Len())
	kept := rs.Rows[:0]

	var removed int64
	for _, row := range rs.Rows {
		fingerprint := rs.Fingerprint(row)
		if _, dup := seen[fingerprint]; dup {
			removed++
			continue
		}
		seen[fingerprint] = struct{}{}
		kept = append(kept, row)
	}
	rs.Rows = kept

	stats.Add(model.StatDuplicatesRemoved, removed)
	c.recordCount(pipeline.NewIssue(pipeline.ClassAdvisory, stageName,
		fmt.Sprintf("%d exact duplicate rows removed", removed)), removed)
}

// filterInvalidPrices drops rows whose unit price is missing, unparsable or
// not strictly positive. Runs after duplicate removal; the order affects the
// final row count and is part of the contract.
func (c *DataCleaner) filterInvalidPrices(rs *model.RowSet, stats model.QualityStats) {
	kept := rs.Rows[:0]

	var excluded int64
	for _, row := range rs.Rows {
		price, err := model.AsFloat(row[model.ColUnitPrice])
		if err != nil || price <= 0 {
			excluded++
			continue
		}
		row[model.ColUnitPrice] = price
		kept = append(kept, row)
	}
	rs.Rows = kept

	stats.Add(model.StatInvalidPriceExclusions, excluded)
	c.recordCount(pipeline.NewIssue(pipeline.ClassAdvisory, stageName,
		fmt.Sprintf("%d rows with non-positive unit price excluded", excluded)).
		WithColumn(model.ColUnitPrice), excluded)
}

// deriveLineTotals computes line_total = quantity * unit_price on the rows
// that survived the price filter. Quantities are coerced to integers;
// unparsable quantities become zero and raise a parse warning.
func (c *DataCleaner) deriveLineTotals(rs *model.RowSet) {
	rs.AddColumn(model.ColLineTotal)

	var badQuantities int64
	for _, row := range rs.Rows {
		quantity, err := model.AsInt(row[model.ColQuantity])
		if err != nil {
			quantity = 0
			badQuantities++
		}
		row[model.ColQuantity] = quantity

		price, _ := model.AsFloat(row[model.ColUnitPrice])
		row[model.ColLineTotal] = float64(quantity) * price
	}

	if badQuantities > 0 {
		c.recordCount(pipeline.NewIssue(pipeline.ClassParseWarning, stageName,
			fmt.Sprintf("%d unparsable quantities treated as zero", badQuantities)).
			WithColumn(model.ColQuantity), badQuantities)
	}
}

// flagHighQuantities marks rows whose absolute quantity exceeds the bulk
// threshold. Advisory only.
func (c *DataCleaner) flagHighQuantities(rs *model.RowSet, stats model.QualityStats) {
	rs.AddColumn(model.ColHighQuantityFlag)

	var flagged int64
	for _, row := range rs.Rows {
		quantity, _ := model.AsInt(row[model.ColQuantity])
		high := quantity > highQuantityThreshold || quantity < -highQuantityThreshold
		row[model.ColHighQuantityFlag] = high
		if high {
			flagged++
		}
	}

	stats.Add(model.StatHighQuantityRecords, flagged)
	c.recordCount(pipeline.NewIssue(pipeline.ClassAdvisory, stageName,
		fmt.Sprintf("%d high quantity transactions flagged", flagged)).
		WithColumn(model.ColQuantity), flagged)
}

// extractDateComponents derives calendar fields from the normalized invoice
// timestamp. Rows without a timestamp get null components.
func (c *DataCleaner) extractDateComponents(rs *model.RowSet) {
	rs.AddColumn(model.ColInvoiceYear)
	rs.AddColumn(model.ColInvoiceMonth)
	rs.AddColumn(model.ColInvoiceDay)
	rs.AddColumn(model.ColInvoiceDayOfWeek)
	rs.AddColumn(model.ColInvoiceQuarter)

	for _, row := range rs.Rows {
		ts, ok := row[model.ColInvoiceDate].(time.Time)
		if !ok {
			row[model.ColInvoiceYear] = nil
			row[model.ColInvoiceMonth] = nil
			row[model.ColInvoiceDay] = nil
			row[model.ColInvoiceDayOfWeek] = nil
			row[model.ColInvoiceQuarter] = nil
			continue
		}

		month := int64(ts.Month())
		row[model.ColInvoiceYear] = int64(ts.Year())
		row[model.ColInvoiceMonth] = month
		row[model.ColInvoiceDay] = int64(ts.Day())
		// Monday = 0 convention.
		row[model.ColInvoiceDayOfWeek] = int64((int(ts.Weekday()) + 6) % 7)
		row[model.ColInvoiceQuarter] = (month-1)/3 + 1
	}
}

// normalizeCountries trims whitespace and title-cases country names.
func (c *DataCleaner) normalizeCountries(rs *model.RowSet) {
	titleCaser := cases.Title(language.English)
	for _, row := range rs.Rows {
		country := strings.TrimSpace(model.AsString(row[model.ColCountry]))
		row[model.ColCountry] = titleCaser.String(country)
	}
}
