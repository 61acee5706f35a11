// pkg/source/fetch.go
package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

// Fetcher acquires the raw extract from a primary source with a timeout and
// falls back to a local CSV backup when the primary is unavailable. The
// fallback keeps the pipeline runnable offline.
type Fetcher struct {
	primary      RetailSource
	fallbackPath string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewFetcher creates a fetcher. The primary source may be nil, in which case
// the fallback file is used directly.
func NewFetcher(primary RetailSource, fallbackPath string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		primary:      primary,
		fallbackPath: fallbackPath,
		timeout:      timeout,
		logger:       logger,
	}
}

// Fetch tries the primary source first, then the local fallback. The loaded
// extract is validated against the required column set before it is handed
// to the pipeline.
func (f *Fetcher) Fetch(ctx context.Context) (*model.RowSet, string, error) {
	rs, origin, err := f.acquire(ctx)
	if err != nil {
		return nil, "", err
	}

	if missing := rs.MissingColumns(model.RequiredColumns()); len(missing) > 0 {
		return nil, "", fmt.Errorf("source %s is missing expected columns: %v", origin, missing)
	}

	f.logger.Info("Data ingestion completed",
		zap.String("source", origin),
		zap.Int("rows", rs.Len()))
	return rs, origin, nil
}

func (f *Fetcher) acquire(ctx context.Context) (*model.RowSet, string, error) {
	if f.primary == nil {
		return f.loadFallback(ctx)
	}

	f.logger.Info("Attempting primary source",
		zap.String("source", f.primary.Name()),
		zap.Duration("timeout", f.timeout))

	rs, err := f.fetchWithTimeout(ctx)
	if err == nil {
		return rs, f.primary.Name(), nil
	}

	f.logger.Warn("Primary source failed, using local fallback", zap.Error(err))
	return f.loadFallback(ctx)
}

// fetchWithTimeout runs the primary fetch in a goroutine so a hung source
// cannot stall the run past the configured timeout.
func (f *Fetcher) fetchWithTimeout(ctx context.Context) (*model.RowSet, error) {
	fetchCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	type fetchResult struct {
		rs  *model.RowSet
		err error
	}
	resultCh := make(chan fetchResult, 1)
	go func() {
		rs, err := f.primary.Fetch(fetchCtx)
		resultCh <- fetchResult{rs: rs, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.rs, result.err
	case <-fetchCtx.Done():
		return nil, fmt.Errorf("primary source timed out: %w", fetchCtx.Err())
	}
}

func (f *Fetcher) loadFallback(ctx context.Context) (*model.RowSet, string, error) {
	if f.fallbackPath == "" {
		return nil, "", fmt.Errorf("no fallback file configured and primary source unavailable")
	}

	fallback := NewCSVSource(f.fallbackPath, f.logger)
	rs, err := fallback.Fetch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fallback load failed: %w", err)
	}
	return rs, fallback.Name(), nil
}
