// pkg/modeller/fact.go
package modeller

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/pipeline"
)

// buildFacts resolves every cleaned row against the three dimensions and
// emits the fact table. A row whose key cannot be resolved, such as one with
// no invoice timestamp, keeps a null foreign key and is retained, counted and
// surfaced as an integrity warning rather than dropped.
func (b *StarSchemaBuilder) buildFacts(
	rs *model.RowSet,
	dimDate []model.DateRow,
	dimProduct []model.ProductRow,
	dimCustomer []model.CustomerRow,
	builtAt time.Time,
) []model.FactRow {
	dateKeys := make(map[int64]struct{}, len(dimDate))
	for _, d := range dimDate {
		dateKeys[d.DateKey] = struct{}{}
	}
	productKeys := make(map[string]int64, len(dimProduct))
	for _, p := range dimProduct {
		productKeys[p.StockCode] = p.ProductKey
	}
	customerKeys := make(map[int64]int64, len(dimCustomer))
	for _, c := range dimCustomer {
		customerKeys[c.CustomerID] = c.CustomerKey
	}

	facts := make([]model.FactRow, 0, rs.Len())
	var unmappedDates, unmappedProducts, unmappedCustomers int64

	for _, row := range rs.Rows {
		fact := model.FactRow{
			TransactionKey: int64(len(facts)) + 1,
			InvoiceNo:      model.AsString(row[model.ColInvoiceNo]),
			UnitPrice:      mustFloat(row[model.ColUnitPrice]),
			LineTotal:      mustFloat(row[model.ColLineTotal]),
			LoadedAt:       builtAt,
		}
		fact.Quantity, _ = model.AsInt(row[model.ColQuantity])
		fact.IsCancelled, _ = model.AsBool(row[model.ColIsCancelled])
		fact.HighQuantityFlag, _ = model.AsBool(row[model.ColHighQuantityFlag])

		if ts, ok := row[model.ColInvoiceDate].(time.Time); ok {
			dateKey := model.DateKey(ts)
			if _, mapped := dateKeys[dateKey]; mapped {
				fact.DateKey = &dateKey
			} else {
				unmappedDates++
			}
		} else {
			unmappedDates++
		}

		stockCode := model.AsString(row[model.ColStockCode])
		if key, mapped := productKeys[stockCode]; mapped {
			productKey := key
			fact.ProductKey = &productKey
		} else {
			unmappedProducts++
		}

		if customerID, err := model.AsInt(row[model.ColCustomerID]); err == nil {
			if key, mapped := customerKeys[customerID]; mapped {
				customerKey := key
				fact.CustomerKey = &customerKey
			} else {
				unmappedCustomers++
			}
		} else {
			unmappedCustomers++
		}

		facts = append(facts, fact)
	}

	b.reportUnmapped("date", model.ColInvoiceDate, unmappedDates)
	b.reportUnmapped("product", model.ColStockCode, unmappedProducts)
	b.reportUnmapped("customer", model.ColCustomerID, unmappedCustomers)

	b.logger.Debug("Fact table built", zap.Int("facts", len(facts)))
	return facts
}

func (b *StarSchemaBuilder) reportUnmapped(dimension, column string, count int64) {
	if count == 0 {
		return
	}
	b.recordCount(pipeline.NewIssue(pipeline.ClassIntegrityWarning, stageName,
		fmt.Sprintf("%d fact rows have no matching %s dimension entry", count, dimension)).
		WithColumn(column), count)
	b.logger.Warn("Unmapped fact rows retained with null foreign key",
		zap.String("dimension", dimension),
		zap.Int64("count", count))
}

func mustFloat(v any) float64 {
	f, _ := model.AsFloat(v)
	return f
}
