// pkg/source/snowflake.go
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/config"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// SnowflakeSource reads the raw retail extract from a Snowflake table.
type SnowflakeSource struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeSource opens a connection to Snowflake and verifies it.
func NewSnowflakeSource(ctx context.Context, cfg *config.SnowflakeConfig, logger *zap.Logger) (*SnowflakeSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("snowflake-source")

	sfConfig := &sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	}

	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	applyConnectionSettings(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)

	if err := pingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	logConnectionStats(logger, cfg.Database, db)
	return &SnowflakeSource{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// Name identifies the source in logs and reports.
func (s *SnowflakeSource) Name() string {
	return fmt.Sprintf("snowflake:%s.%s.%s", s.cfg.Database, s.cfg.Schema, s.cfg.Table)
}

// Fetch reads the configured table into a rowset. Column order follows the
// result set so downstream fingerprints stay deterministic.
func (s *SnowflakeSource) Fetch(ctx context.Context) (*model.RowSet, error) {
	queryCtx := ctx
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	query := fmt.Sprintf(`SELECT "%s", "%s", "%s", "%s", "%s", "%s", "%s", "%s" FROM %s`,
		model.ColInvoiceNo, model.ColStockCode, model.ColDescription, model.ColQuantity,
		model.ColInvoiceDate, model.ColUnitPrice, model.ColCustomerID, model.ColCountry,
		s.cfg.Table)

	rows, err := s.db.QueryxContext(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.cfg.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	rs := model.NewRowSet(columns)
	for rows.Next() {
		raw := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(model.Row, len(columns))
		for col, value := range raw {
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[col] = value
		}
		rs.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	s.logger.Info("Snowflake table loaded",
		zap.String("table", s.cfg.Table),
		zap.Int("rows", rs.Len()))

	return rs, nil
}

// Close closes the database connection.
func (s *SnowflakeSource) Close() error {
	s.logger.Info("Closing Snowflake connection")
	logConnectionStats(s.logger, s.cfg.Database, s.db)
	return s.db.Close()
}
