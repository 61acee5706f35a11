// pkg/sink/postgres.go
package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/config"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// PostgresSink loads the star schema into a PostgreSQL warehouse. Tables
// are rebuilt from scratch on every run: dropped, recreated and bulk
// inserted, never merged with a previous run's rows.
type PostgresSink struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresSink opens a connection to PostgreSQL and verifies it.
func NewPostgresSink(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("postgres-sink")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sink := &PostgresSink{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	if err := sink.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	s.logger.Info("Closing PostgreSQL connection")
	return s.db.Close()
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.cfg.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", s.cfg.Schema, err)
	}
	return nil
}

var tableDefinitions = map[string][]string{
	"dim_date": {
		"date_key BIGINT NOT NULL",
		"full_date DATE NOT NULL",
		"year INT NOT NULL",
		"quarter INT NOT NULL",
		"month INT NOT NULL",
		"month_name TEXT NOT NULL",
		"day INT NOT NULL",
		"day_of_week INT NOT NULL",
		"day_name TEXT NOT NULL",
		"is_weekend BOOLEAN NOT NULL",
	},
	"dim_product": {
		"product_key BIGINT NOT NULL",
		"stock_code TEXT NOT NULL",
		"description TEXT NOT NULL",
		"first_seen_date TIMESTAMP",
		"last_seen_date TIMESTAMP",
		"is_active BOOLEAN NOT NULL",
	},
	"dim_customer": {
		"customer_key BIGINT NOT NULL",
		"customer_id BIGINT NOT NULL",
		"country TEXT NOT NULL",
		"first_purchase_date TIMESTAMP",
		"last_purchase_date TIMESTAMP",
		"is_unknown_customer BOOLEAN NOT NULL",
	},
	"fact_sales": {
		"transaction_key BIGINT NOT NULL",
		"date_key BIGINT",
		"product_key BIGINT",
		"customer_key BIGINT",
		"quantity BIGINT NOT NULL",
		"unit_price DOUBLE PRECISION NOT NULL",
		"line_total DOUBLE PRECISION NOT NULL",
		"is_cancelled BOOLEAN NOT NULL",
		"high_quantity_flag BOOLEAN NOT NULL",
		"invoice_no TEXT NOT NULL",
		"loaded_at TIMESTAMP NOT NULL",
	},
}

var tablePrimaryKeys = map[string]string{
	"dim_date":     "date_key",
	"dim_product":  "product_key",
	"dim_customer": "customer_key",
	"fact_sales":   "transaction_key",
}

// WriteSchema rebuilds the four warehouse tables from the star schema.
func (s *PostgresSink) WriteSchema(ctx context.Context, schema *model.StarSchema) error {
	if err := s.rebuildTable(ctx, "dim_date"); err != nil {
		return err
	}
	if err := s.rebuildTable(ctx, "dim_product"); err != nil {
		return err
	}
	if err := s.rebuildTable(ctx, "dim_customer"); err != nil {
		return err
	}
	if err := s.rebuildTable(ctx, "fact_sales"); err != nil {
		return err
	}

	if err := s.insertDates(ctx, schema.DimDate); err != nil {
		return err
	}
	if err := s.insertProducts(ctx, schema.DimProduct); err != nil {
		return err
	}
	if err := s.insertCustomers(ctx, schema.DimCustomer); err != nil {
		return err
	}
	return s.insertFacts(ctx, schema.FactSales)
}

func (s *PostgresSink) rebuildTable(ctx context.Context, table string) error {
	fullName := fmt.Sprintf("%s.%s", s.cfg.Schema, table)

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", fullName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", fullName, err)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (\n\t%s,\n\tPRIMARY KEY (%s)\n)",
		fullName,
		strings.Join(tableDefinitions[table], ",\n\t"),
		tablePrimaryKeys[table])
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", fullName, err)
	}

	s.logger.Info("Rebuilt table", zap.String("table", fullName))
	return nil
}

// batchInsert performs a bulk insert with numbered placeholders, split into
// batches so one statement never exceeds the parameter limit.
func (s *PostgresSink) batchInsert(ctx context.Context, table string, columns []string, valueRows [][]interface{}) (int64, error) {
	if len(valueRows) == 0 {
		return 0, nil
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	fullName := fmt.Sprintf("%s.%s", s.cfg.Schema, table)
	columnStr := strings.Join(columns, ", ")

	var totalInserted int64
	for i := 0; i < len(valueRows); i += batchSize {
		end := i + batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}
		currentBatch := valueRows[i:end]

		placeholders := make([]string, len(currentBatch))
		args := make([]interface{}, 0, len(currentBatch)*len(columns))
		for j, row := range currentBatch {
			rowPlaceholders := make([]string, len(columns))
			for k, val := range row {
				paramIndex := j*len(columns) + k + 1
				rowPlaceholders[k] = fmt.Sprintf("$%d", paramIndex)
				args = append(args, val)
			}
			placeholders[j] = fmt.Sprintf("(%s)", strings.Join(rowPlaceholders, ", "))
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			fullName, columnStr, strings.Join(placeholders, ", "))

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return totalInserted, fmt.Errorf("batch insert into %s failed: %w", fullName, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			s.logger.Warn("Couldn't get rows affected", zap.Error(err))
		} else {
			totalInserted += affected
		}
	}

	s.logger.Info("Table loaded",
		zap.String("table", fullName),
		zap.Int64("rows", totalInserted))
	return totalInserted, nil
}

func (s *PostgresSink) insertDates(ctx context.Context, rows []model.DateRow) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = []interface{}{
			r.DateKey, r.FullDate, r.Year, r.Quarter, r.Month,
			r.MonthName, r.Day, r.DayOfWeek, r.DayName, r.IsWeekend,
		}
	}
	_, err := s.batchInsert(ctx, "dim_date",
		[]string{"date_key", "full_date", "year", "quarter", "month", "month_name", "day", "day_of_week", "day_name", "is_weekend"},
		values)
	return err
}

func (s *PostgresSink) insertProducts(ctx context.Context, rows []model.ProductRow) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = []interface{}{
			r.ProductKey, r.StockCode, r.Description,
			nullableTime(r.FirstSeenDate), nullableTime(r.LastSeenDate), r.IsActive,
		}
	}
	_, err := s.batchInsert(ctx, "dim_product",
		[]string{"product_key", "stock_code", "description", "first_seen_date", "last_seen_date", "is_active"},
		values)
	return err
}

func (s *PostgresSink) insertCustomers(ctx context.Context, rows []model.CustomerRow) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = []interface{}{
			r.CustomerKey, r.CustomerID, r.Country,
			nullableTime(r.FirstPurchaseDate), nullableTime(r.LastPurchaseDate), r.IsUnknownCustomer,
		}
	}
	_, err := s.batchInsert(ctx, "dim_customer",
		[]string{"customer_key", "customer_id", "country", "first_purchase_date", "last_purchase_date", "is_unknown_customer"},
		values)
	return err
}

func (s *PostgresSink) insertFacts(ctx context.Context, rows []model.FactRow) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = []interface{}{
			r.TransactionKey, r.DateKey, r.ProductKey, r.CustomerKey,
			r.Quantity, r.UnitPrice, r.LineTotal,
			r.IsCancelled, r.HighQuantityFlag, r.InvoiceNo, r.LoadedAt,
		}
	}
	_, err := s.batchInsert(ctx, "fact_sales",
		[]string{"transaction_key", "date_key", "product_key", "customer_key", "quantity", "unit_price", "line_total", "is_cancelled", "high_quantity_flag", "invoice_no", "loaded_at"},
		values)
	return err
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
