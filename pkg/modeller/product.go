// pkg/modeller/product.go
package modeller

import (
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// buildProductDimension groups cleaned rows by stock code, compared as text.
// Surrogate keys run 1..N in first-seen order; the description is the one on
// the first row holding the code, not the most frequent one.
func (b *StarSchemaBuilder) buildProductDimension(rs *model.RowSet) ([]model.ProductRow, error) {
	index := make(map[string]int, rs.Len())
	products := make([]model.ProductRow, 0)

	for _, row := range rs.Rows {
		stockCode := model.AsString(row[model.ColStockCode])
		ts, hasTS := row[model.ColInvoiceDate].(time.Time)

		pos, seen := index[stockCode]
		if !seen {
			product := model.ProductRow{
				ProductKey:  int64(len(products)) + 1,
				StockCode:   stockCode,
				Description: model.AsString(row[model.ColDescription]),
				IsActive:    true,
			}
			if hasTS {
				product.FirstSeenDate = ts
				product.LastSeenDate = ts
			}
			index[stockCode] = len(products)
			products = append(products, product)
			continue
		}

		if !hasTS {
			continue
		}
		product := &products[pos]
		if product.FirstSeenDate.IsZero() || ts.Before(product.FirstSeenDate) {
			product.FirstSeenDate = ts
		}
		if ts.After(product.LastSeenDate) {
			product.LastSeenDate = ts
		}
	}

	b.logger.Debug("Product dimension built", zap.Int("products", len(products)))
	return products, nil
}
