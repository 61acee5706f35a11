// pkg/modeller/assembler.go
package modeller

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// unknownNaturalKey replaces empty string natural keys in the final tables.
const unknownNaturalKey = "Unknown"

// assemble finalizes the star schema and derives the modelling report.
// String natural keys are defaulted here, after every join has run, so a
// coercion can never corrupt a key that a lookup upstream depended on. The
// surrogate key sequences are verified dense before the schema is released.
func (b *StarSchemaBuilder) assemble(schema *model.StarSchema) (*model.ModellingReport, error) {
	for i := range schema.DimProduct {
		product := &schema.DimProduct[i]
		if product.StockCode == "" {
			product.StockCode = unknownNaturalKey
		}
		if product.Description == "" {
			product.Description = unknownNaturalKey
		}
	}
	for i := range schema.DimCustomer {
		customer := &schema.DimCustomer[i]
		if customer.Country == "" {
			customer.Country = unknownNaturalKey
		}
	}

	if err := verifySurrogateKeys(schema); err != nil {
		return nil, fmt.Errorf("star schema failed integrity verification: %w", err)
	}

	report := &model.ModellingReport{
		TablesCreated: model.TableCounts{
			DimDate:     int64(len(schema.DimDate)),
			DimProduct:  int64(len(schema.DimProduct)),
			DimCustomer: int64(len(schema.DimCustomer)),
			FactSales:   int64(len(schema.FactSales)),
		},
		UniqueProducts:  int64(len(schema.DimProduct)),
		UniqueCustomers: int64(len(schema.DimCustomer)),
	}

	if len(schema.DimDate) > 0 {
		report.DateRangeStart = schema.DimDate[0].FullDate
		report.DateRangeEnd = schema.DimDate[len(schema.DimDate)-1].FullDate
	}

	for _, customer := range schema.DimCustomer {
		if customer.IsUnknownCustomer {
			report.UnknownCustomers++
		}
	}

	for _, fact := range schema.FactSales {
		if fact.DateKey == nil {
			report.UnmappedDates++
		}
		if fact.ProductKey == nil {
			report.UnmappedProducts++
		}
		if fact.CustomerKey == nil {
			report.UnmappedCustomers++
		}
	}

	return report, nil
}

// verifySurrogateKeys checks that every table's generated keys run 1..N in
// row order. A violation means a builder bug, not bad input data.
func verifySurrogateKeys(schema *model.StarSchema) error {
	var err error

	for i, product := range schema.DimProduct {
		if product.ProductKey != int64(i)+1 {
			err = multierr.Append(err, fmt.Errorf(
				"dim_product key at position %d is %d, want %d", i, product.ProductKey, i+1))
			break
		}
	}
	for i, customer := range schema.DimCustomer {
		if customer.CustomerKey != int64(i)+1 {
			err = multierr.Append(err, fmt.Errorf(
				"dim_customer key at position %d is %d, want %d", i, customer.CustomerKey, i+1))
			break
		}
	}
	for i, fact := range schema.FactSales {
		if fact.TransactionKey != int64(i)+1 {
			err = multierr.Append(err, fmt.Errorf(
				"fact_sales transaction key at position %d is %d, want %d", i, fact.TransactionKey, i+1))
			break
		}
	}
	for i := 1; i < len(schema.DimDate); i++ {
		prev, curr := schema.DimDate[i-1].FullDate, schema.DimDate[i].FullDate
		if !curr.Equal(prev.AddDate(0, 0, 1)) {
			err = multierr.Append(err, fmt.Errorf(
				"dim_date spine has a gap between %s and %s",
				prev.Format("2006-01-02"), curr.Format("2006-01-02")))
			break
		}
	}

	return err
}
