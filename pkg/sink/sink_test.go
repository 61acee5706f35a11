// pkg/sink/sink_test.go
package sink

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

func sampleSchema() *model.StarSchema {
	day := time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC)
	dateKey := int64(20101201)
	productKey := int64(1)
	customerKey := int64(1)

	return &model.StarSchema{
		DimDate: []model.DateRow{{
			DateKey:   dateKey,
			FullDate:  day,
			Year:      2010,
			Quarter:   4,
			Month:     12,
			MonthName: "December",
			Day:       1,
			DayOfWeek: 2,
			DayName:   "Wednesday",
		}},
		DimProduct: []model.ProductRow{{
			ProductKey:  productKey,
			StockCode:   "A1",
			Description: "LAMP",
			IsActive:    true,
		}},
		DimCustomer: []model.CustomerRow{{
			CustomerKey: customerKey,
			CustomerID:  17850,
			Country:     "Uk",
		}},
		FactSales: []model.FactRow{
			{
				TransactionKey: 1,
				DateKey:        &dateKey,
				ProductKey:     &productKey,
				CustomerKey:    &customerKey,
				Quantity:       6,
				UnitPrice:      2.55,
				LineTotal:      15.30,
				InvoiceNo:      "536365",
				LoadedAt:       day,
			},
			{
				TransactionKey: 2,
				Quantity:       2,
				UnitPrice:      1.25,
				LineTotal:      2.50,
				InvoiceNo:      "536366",
				LoadedAt:       day,
			},
		},
		BuiltAt: day,
	}
}

func TestCSVSinkWriteRowSet(t *testing.T) {
	rs := model.NewRowSet([]string{model.ColInvoiceNo, model.ColDescription})
	rs.Append(model.Row{model.ColInvoiceNo: "536365", model.ColDescription: "LAMP"})
	rs.Append(model.Row{model.ColInvoiceNo: "536366", model.ColDescription: nil})

	dir := t.TempDir()
	s := NewCSVSink(zap.NewNop())
	path, err := s.WriteRowSet(rs, dir, "Online_Retail_raw")
	require.NoError(t, err)
	require.FileExists(t, path)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"InvoiceNo", "Description"}, records[0])
	require.Equal(t, []string{"536365", "LAMP"}, records[1])
	// Missing values round-trip as empty fields.
	require.Equal(t, []string{"536366", ""}, records[2])
}

func TestCSVSinkWriteSchema(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(zap.NewNop())
	require.NoError(t, s.WriteSchema(sampleSchema(), dir))

	for _, table := range []string{"dim_date", "dim_product", "dim_customer", "fact_sales"} {
		require.FileExists(t, filepath.Join(dir, table+".csv"))
	}

	file, err := os.Open(filepath.Join(dir, "fact_sales.csv"))
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Resolved keys are written as integers, unresolved ones as empty fields.
	require.Equal(t, "20101201", records[1][1])
	require.Equal(t, "", records[2][1])
	require.Equal(t, "", records[2][2])
}

func TestParquetSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewParquetSink(zap.NewNop())
	require.NoError(t, s.WriteSchema(sampleSchema(), dir))

	for _, table := range []string{"dim_date", "dim_product", "dim_customer", "fact_sales"} {
		require.FileExists(t, filepath.Join(dir, table+".parquet"))
	}

	file, err := os.Open(filepath.Join(dir, "fact_sales.parquet"))
	require.NoError(t, err)
	defer file.Close()

	info, err := file.Stat()
	require.NoError(t, err)

	reader := parquet.NewGenericReader[model.FactRow](file)
	defer reader.Close()
	require.Equal(t, int64(2), reader.NumRows())

	facts := make([]model.FactRow, 2)
	n, err := reader.Read(facts)
	if err != nil {
		require.ErrorIs(t, err, io.EOF)
	}
	require.Equal(t, 2, n)
	require.Equal(t, int64(1), facts[0].TransactionKey)
	require.NotNil(t, facts[0].DateKey)
	require.Equal(t, int64(20101201), *facts[0].DateKey)
	require.Nil(t, facts[1].DateKey)
	require.Positive(t, info.Size())
}

func TestParquetSinkEmptyTables(t *testing.T) {
	dir := t.TempDir()
	s := NewParquetSink(zap.NewNop())

	schema := &model.StarSchema{}
	require.NoError(t, s.WriteSchema(schema, dir))
	require.FileExists(t, filepath.Join(dir, "fact_sales.parquet"))
}
