// cmd/retail-pipeline/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/cleaner"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/config"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/modeller"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/pipeline"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/profiler"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/sink"
	"github.com/BernadinePierre/online-retail-pipeline/pkg/source"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	for _, dir := range cfg.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create directory %s: %v\n", dir, err)
			os.Exit(1)
		}
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rc := pipeline.NewRunContext(logger)
	rc.Logger.Info("Online retail pipeline starting")

	runErr := run(context.Background(), cfg, rc)
	rc.Metrics.Finish()

	status := pipeline.StatusCompleted
	if runErr != nil {
		status = pipeline.StatusFailed
		rc.Logger.Error("Pipeline failed", zap.Error(runErr))
	}

	result := pipeline.NewRunResult(rc, status, runErr)
	rc.Logger.Info("Pipeline finished",
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration),
		zap.Int("rows_extracted", result.RowsExtracted),
		zap.Int("rows_cleaned", result.RowsCleaned),
		zap.Int("fact_rows", result.FactRows),
		zap.Int64("warnings", result.Warnings),
		zap.Int64("advisories", result.Advisories))

	if metricsJSON, err := rc.Metrics.ToJSON(); err == nil {
		metricsPath := filepath.Join(cfg.LogDir(),
			fmt.Sprintf("run_metrics_%s.json", rc.JobID))
		if writeErr := os.WriteFile(metricsPath, []byte(metricsJSON), 0o644); writeErr != nil {
			rc.Logger.Warn("Failed to write metrics file", zap.Error(writeErr))
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, rc *pipeline.RunContext) error {
	logger := rc.Logger
	csvSink := sink.NewCSVSink(logger)

	// Stage 1: ingestion
	rc.Metrics.StageStarted("ingestion", 0)
	raw, origin, err := ingest(ctx, cfg, rc)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	rc.Metrics.StageCompleted("ingestion", raw.Len())

	rawPath, err := csvSink.WriteRowSet(raw, cfg.RawDir(), "Online_Retail_raw")
	if err != nil {
		return fmt.Errorf("failed to save raw backup: %w", err)
	}
	logger.Info("Raw data saved", zap.String("path", rawPath), zap.String("source", origin))

	// Stage 2: profiling
	rc.Metrics.StageStarted("profiling", raw.Len())
	dataProfiler := profiler.NewDataProfiler(rc.JobID, logger)
	summary, err := dataProfiler.Profile(raw)
	if err != nil {
		return fmt.Errorf("profiling failed: %w", err)
	}
	if _, err := dataProfiler.WriteReport(summary, cfg.ProfilingDir()); err != nil {
		return fmt.Errorf("failed to write profile report: %w", err)
	}
	if err := dataProfiler.AppendHistory(summary, cfg.ProfilingDir()); err != nil {
		return fmt.Errorf("failed to update profiling history: %w", err)
	}
	rc.Metrics.StageCompleted("profiling", raw.Len())

	// Stage 3: cleaning
	rc.Metrics.StageStarted("cleaning", raw.Len())
	dataCleaner := cleaner.NewDataCleaner(logger, rc.Issues)
	cleaned, cleaningReport, err := dataCleaner.Clean(raw)
	if err != nil {
		return fmt.Errorf("cleaning failed: %w", err)
	}
	rc.Metrics.StageCompleted("cleaning", cleaned.Len())
	rc.Metrics.RecordRowCounts(
		int(cleaningReport.InitialRows),
		int(cleaningReport.FinalRows),
		int(cleaningReport.RowsRemoved))

	cleanedPath, err := csvSink.WriteRowSet(cleaned, cfg.ProcessedDir(), "cleaned_data")
	if err != nil {
		return fmt.Errorf("failed to save cleaned data: %w", err)
	}
	logger.Info("Cleaned data saved",
		zap.String("path", cleanedPath),
		zap.Float64("pass_rate_pct", cleaningReport.DataQualityPassRate))

	// Stage 4: modelling
	rc.Metrics.StageStarted("modelling", cleaned.Len())
	builder := modeller.NewStarSchemaBuilder(logger, rc.Issues)
	schema, modellingReport, err := builder.Build(cleaned)
	if err != nil {
		return fmt.Errorf("modelling failed: %w", err)
	}
	rc.Metrics.StageCompleted("modelling", int(modellingReport.TablesCreated.FactSales))
	rc.Metrics.RecordModelCounts(
		int(modellingReport.TablesCreated.FactSales),
		int(modellingReport.TablesCreated.DimDate+
			modellingReport.TablesCreated.DimProduct+
			modellingReport.TablesCreated.DimCustomer))

	if modellingReport.HasUnmapped() {
		logger.Warn("Star schema has unmapped fact rows",
			zap.Int64("unmapped_dates", modellingReport.UnmappedDates),
			zap.Int64("unmapped_products", modellingReport.UnmappedProducts),
			zap.Int64("unmapped_customers", modellingReport.UnmappedCustomers))
	}

	// Stage 5: persistence
	rc.Metrics.StageStarted("persistence", int(modellingReport.TablesCreated.FactSales))
	if err := persist(ctx, cfg, logger, csvSink, schema); err != nil {
		return err
	}
	rc.Metrics.StageCompleted("persistence", int(modellingReport.TablesCreated.FactSales))

	logger.Info("Pipeline execution summary",
		zap.String("raw_data", rawPath),
		zap.String("cleaned_data", cleanedPath),
		zap.String("model_dir", cfg.ModelDir()),
		zap.Int64("dim_date", modellingReport.TablesCreated.DimDate),
		zap.Int64("dim_product", modellingReport.TablesCreated.DimProduct),
		zap.Int64("dim_customer", modellingReport.TablesCreated.DimCustomer),
		zap.Int64("fact_sales", modellingReport.TablesCreated.FactSales))

	return nil
}

// ingest acquires the raw extract, preferring Snowflake when configured and
// falling back to the local CSV backup.
func ingest(ctx context.Context, cfg *config.Config, rc *pipeline.RunContext) (*model.RowSet, string, error) {
	var primary source.RetailSource

	if cfg.Snowflake != nil {
		snowflake, err := source.NewSnowflakeSource(ctx, cfg.Snowflake, rc.Logger)
		if err != nil {
			rc.Logger.Warn("Snowflake unavailable, falling back to local file", zap.Error(err))
		} else {
			primary = snowflake
			defer snowflake.Close()
		}
	}

	fetcher := source.NewFetcher(primary, cfg.FallbackFile, cfg.FetchTimeout, rc.Logger)
	return fetcher.Fetch(ctx)
}

// persist writes the star schema to every configured sink. CSV is always
// written; parquet and the warehouse load are opt-in.
func persist(ctx context.Context, cfg *config.Config, logger *zap.Logger, csvSink *sink.CSVSink, schema *model.StarSchema) error {
	if err := csvSink.WriteSchema(schema, cfg.ModelDir()); err != nil {
		return fmt.Errorf("failed to save schema tables: %w", err)
	}

	if cfg.WriteParquet {
		parquetSink := sink.NewParquetSink(logger)
		if err := parquetSink.WriteSchema(schema, cfg.ModelDir()); err != nil {
			return fmt.Errorf("failed to save parquet tables: %w", err)
		}
	}

	if cfg.Postgres != nil {
		pgSink, err := sink.NewPostgresSink(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("warehouse connection failed: %w", err)
		}
		defer pgSink.Close()

		if err := pgSink.WriteSchema(ctx, schema); err != nil {
			return fmt.Errorf("warehouse load failed: %w", err)
		}
	}

	return nil
}

// buildLogger creates a zap logger writing to the console and a timestamped
// log file under the configured log directory.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.LogFormat == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	logPath := filepath.Join(cfg.LogDir(),
		fmt.Sprintf("pipeline_log_%s.log", time.Now().Format("20060102_150405")))
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(logFile), level),
	)

	return zap.New(core), nil
}
