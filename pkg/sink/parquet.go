// pkg/sink/parquet.go
package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// ParquetSink writes the star schema as parquet files for downstream
// analytical tooling. Each table becomes one file under the target
// directory; existing files are replaced, matching the full rebuild
// lifecycle of the schema itself.
type ParquetSink struct {
	logger *zap.Logger
}

// NewParquetSink creates a parquet sink.
func NewParquetSink(logger *zap.Logger) *ParquetSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParquetSink{logger: logger}
}

// WriteSchema saves the four star schema tables under dir.
func (s *ParquetSink) WriteSchema(schema *model.StarSchema, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := writeParquet(s.logger, filepath.Join(dir, "dim_date.parquet"), schema.DimDate); err != nil {
		return err
	}
	if err := writeParquet(s.logger, filepath.Join(dir, "dim_product.parquet"), schema.DimProduct); err != nil {
		return err
	}
	if err := writeParquet(s.logger, filepath.Join(dir, "dim_customer.parquet"), schema.DimCustomer); err != nil {
		return err
	}
	return writeParquet(s.logger, filepath.Join(dir, "fact_sales.parquet"), schema.FactSales)
}

func writeParquet[T any](logger *zap.Logger, path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[T](file)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write rows to %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer for %s: %w", path, err)
	}

	logger.Info("Parquet file saved",
		zap.String("path", path),
		zap.Int("rows", len(rows)))
	return nil
}
