// pkg/source/source_test.go
package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BernadinePierre/online-retail-pipeline/pkg/model"
)

const sampleCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,A1,LAMP,6,2010-12-01 08:26,2.55,17850,United Kingdom
C536366,A1,,-6,2010-12-01 08:28,2.55,,United Kingdom
`

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retail.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceLoadsRows(t *testing.T) {
	path := writeTempCSV(t, sampleCSV)

	s := NewCSVSource(path, zap.NewNop())
	rs, err := s.Fetch(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, rs.Len())
	require.Equal(t, model.RequiredColumns(), rs.Columns)
	require.Equal(t, "536365", rs.Rows[0][model.ColInvoiceNo])
	require.Equal(t, "2.55", rs.Rows[0][model.ColUnitPrice])

	// Empty CSV fields load as missing values.
	require.Nil(t, rs.Rows[1][model.ColDescription])
	require.Nil(t, rs.Rows[1][model.ColCustomerID])
}

func TestCSVSourceMissingFile(t *testing.T) {
	s := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv"), zap.NewNop())
	_, err := s.Fetch(context.Background())
	require.Error(t, err)
}

type stubSource struct {
	rs    *model.RowSet
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) (*model.RowSet, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.rs, s.err
}

func (s *stubSource) Close() error { return nil }

func stubRowSet() *model.RowSet {
	rs := model.NewRowSet(model.RequiredColumns())
	rs.Append(model.Row{
		model.ColInvoiceNo:   "536365",
		model.ColStockCode:   "A1",
		model.ColDescription: "LAMP",
		model.ColQuantity:    "6",
		model.ColInvoiceDate: "2010-12-01 08:26",
		model.ColUnitPrice:   "2.55",
		model.ColCustomerID:  "17850",
		model.ColCountry:     "France",
	})
	return rs
}

func TestFetcherPrefersPrimary(t *testing.T) {
	f := NewFetcher(&stubSource{rs: stubRowSet()}, "", time.Second, zap.NewNop())

	rs, origin, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "stub", origin)
	require.Equal(t, 1, rs.Len())
}

func TestFetcherFallsBackWhenPrimaryFails(t *testing.T) {
	path := writeTempCSV(t, sampleCSV)
	f := NewFetcher(&stubSource{err: errors.New("connection refused")}, path, time.Second, zap.NewNop())

	rs, origin, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "csv:"+path, origin)
	require.Equal(t, 2, rs.Len())
}

func TestFetcherFallsBackOnTimeout(t *testing.T) {
	path := writeTempCSV(t, sampleCSV)
	slow := &stubSource{rs: stubRowSet(), delay: time.Second}
	f := NewFetcher(slow, path, 10*time.Millisecond, zap.NewNop())

	rs, origin, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "csv:"+path, origin)
	require.Equal(t, 2, rs.Len())
}

func TestFetcherUsesFallbackWithoutPrimary(t *testing.T) {
	path := writeTempCSV(t, sampleCSV)
	f := NewFetcher(nil, path, time.Second, zap.NewNop())

	rs, _, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
}

func TestFetcherRejectsMissingColumns(t *testing.T) {
	path := writeTempCSV(t, "InvoiceNo,StockCode\n536365,A1\n")
	f := NewFetcher(nil, path, time.Second, zap.NewNop())

	_, _, err := f.Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing expected columns")
}

func TestFetcherErrorsWithoutAnySource(t *testing.T) {
	f := NewFetcher(nil, "", time.Second, zap.NewNop())
	_, _, err := f.Fetch(context.Background())
	require.Error(t, err)
}
