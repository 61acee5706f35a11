// pkg/sink/csv.go
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// CSVSink writes pipeline outputs as CSV files with timestamped names, so
// successive runs never overwrite each other's extracts.
type CSVSink struct {
	logger *zap.Logger
}

// NewCSVSink creates a CSV sink.
func NewCSVSink(logger *zap.Logger) *CSVSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSink{logger: logger}
}

// WriteRowSet saves a rowset under dir with the given name prefix and a
// timestamp suffix. Missing values are written as empty fields, the inverse
// of how the CSV source loads them.
func (s *CSVSink) WriteRowSet(rs *model.RowSet, dir, prefix string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, time.Now().Format("20060102_150405")))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(rs.Columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, col := range rs.Columns {
			record[i] = model.FormatValue(row[col])
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}

	s.logger.Info("RowSet saved",
		zap.String("path", path),
		zap.Int("rows", rs.Len()))
	return path, nil
}

// WriteSchema saves the four star schema tables as CSV files under dir.
func (s *CSVSink) WriteSchema(schema *model.StarSchema, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := s.writeTable(dir, "dim_date",
		[]string{"date_key", "full_date", "year", "quarter", "month", "month_name", "day", "day_of_week", "day_name", "is_weekend"},
		len(schema.DimDate), func(i int) []string {
			d := schema.DimDate[i]
			return []string{
				strconv.FormatInt(d.DateKey, 10),
				d.FullDate.Format("2006-01-02"),
				strconv.FormatInt(d.Year, 10),
				strconv.FormatInt(d.Quarter, 10),
				strconv.FormatInt(d.Month, 10),
				d.MonthName,
				strconv.FormatInt(d.Day, 10),
				strconv.FormatInt(d.DayOfWeek, 10),
				d.DayName,
				strconv.FormatBool(d.IsWeekend),
			}
		}); err != nil {
		return err
	}

	if err := s.writeTable(dir, "dim_product",
		[]string{"product_key", "stock_code", "description", "first_seen_date", "last_seen_date", "is_active"},
		len(schema.DimProduct), func(i int) []string {
			p := schema.DimProduct[i]
			return []string{
				strconv.FormatInt(p.ProductKey, 10),
				p.StockCode,
				p.Description,
				model.FormatValue(p.FirstSeenDate),
				model.FormatValue(p.LastSeenDate),
				strconv.FormatBool(p.IsActive),
			}
		}); err != nil {
		return err
	}

	if err := s.writeTable(dir, "dim_customer",
		[]string{"customer_key", "customer_id", "country", "first_purchase_date", "last_purchase_date", "is_unknown_customer"},
		len(schema.DimCustomer), func(i int) []string {
			c := schema.DimCustomer[i]
			return []string{
				strconv.FormatInt(c.CustomerKey, 10),
				strconv.FormatInt(c.CustomerID, 10),
				c.Country,
				model.FormatValue(c.FirstPurchaseDate),
				model.FormatValue(c.LastPurchaseDate),
				strconv.FormatBool(c.IsUnknownCustomer),
			}
		}); err != nil {
		return err
	}

	return s.writeTable(dir, "fact_sales",
		[]string{"transaction_key", "date_key", "product_key", "customer_key", "quantity", "unit_price", "line_total", "is_cancelled", "high_quantity_flag", "invoice_no", "loaded_at"},
		len(schema.FactSales), func(i int) []string {
			f := schema.FactSales[i]
			return []string{
				strconv.FormatInt(f.TransactionKey, 10),
				formatNullableKey(f.DateKey),
				formatNullableKey(f.ProductKey),
				formatNullableKey(f.CustomerKey),
				strconv.FormatInt(f.Quantity, 10),
				strconv.FormatFloat(f.UnitPrice, 'f', -1, 64),
				strconv.FormatFloat(f.LineTotal, 'f', -1, 64),
				strconv.FormatBool(f.IsCancelled),
				strconv.FormatBool(f.HighQuantityFlag),
				f.InvoiceNo,
				f.LoadedAt.Format(time.RFC3339),
			}
		})
}

func (s *CSVSink) writeTable(dir, name string, header []string, rowCount int, renderRow func(int) []string) error {
	path := filepath.Join(dir, name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for i := 0; i < rowCount; i++ {
		if err := writer.Write(renderRow(i)); err != nil {
			return fmt.Errorf("failed to write %s row: %w", name, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	s.logger.Info("Table saved", zap.String("table", name), zap.Int("rows", rowCount))
	return nil
}

func formatNullableKey(key *int64) string {
	if key == nil {
		return ""
	}
	return strconv.FormatInt(*key, 10)
}
