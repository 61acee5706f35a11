// pkg/modeller/customer.go
package modeller

import (
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// buildCustomerDimension groups cleaned rows by customer id. Imputation has
// already run, so the sentinel id 0 forms its own "unknown customer" group.
// The country is the one on the customer's first row in cleaned order.
func (b *StarSchemaBuilder) buildCustomerDimension(rs *model.RowSet) ([]model.CustomerRow, error) {
	index := make(map[int64]int, rs.Len())
	customers := make([]model.CustomerRow, 0)

	for _, row := range rs.Rows {
		customerID, err := model.AsInt(row[model.ColCustomerID])
		if err != nil {
			// Imputation guarantees an integer id; treat stragglers as unknown.
			customerID = 0
		}
		ts, hasTS := row[model.ColInvoiceDate].(time.Time)

		pos, seen := index[customerID]
		if !seen {
			customer := model.CustomerRow{
				CustomerKey:       int64(len(customers)) + 1,
				CustomerID:        customerID,
				Country:           model.AsString(row[model.ColCountry]),
				IsUnknownCustomer: customerID == 0,
			}
			if hasTS {
				customer.FirstPurchaseDate = ts
				customer.LastPurchaseDate = ts
			}
			index[customerID] = len(customers)
			customers = append(customers, customer)
			continue
		}

		if !hasTS {
			continue
		}
		customer := &customers[pos]
		if customer.FirstPurchaseDate.IsZero() || ts.Before(customer.FirstPurchaseDate) {
			customer.FirstPurchaseDate = ts
		}
		if ts.After(customer.LastPurchaseDate) {
			customer.LastPurchaseDate = ts
		}
	}

	b.logger.Debug("Customer dimension built", zap.Int("customers", len(customers)))
	return customers, nil
}
