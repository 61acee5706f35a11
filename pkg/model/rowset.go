// pkg/model/rowset.go
package model

import (
	"strings"
	"time"
)

// Source column names of the raw retail extract.
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
)

// Derived column names added by the cleaning pipeline.
const (
	ColIsCancelled      = "IsCancelled"
	ColLineTotal        = "LineTotal"
	ColHighQuantityFlag = "HighQuantityFlag"
	ColInvoiceYear      = "InvoiceYear"
	ColInvoiceMonth     = "InvoiceMonth"
	ColInvoiceDay       = "InvoiceDay"
	ColInvoiceDayOfWeek = "InvoiceDayOfWeek"
	ColInvoiceQuarter   = "InvoiceQuarter"
)

// RequiredColumns lists the columns every raw extract must provide before the
// cleaning pipeline may run.
func RequiredColumns() []string {
	return []string{
		ColInvoiceNo,
		ColStockCode,
		ColDescription,
		ColQuantity,
		ColInvoiceDate,
		ColUnitPrice,
		ColCustomerID,
		ColCountry,
	}
}

// Row is a single record keyed by column name. Values are one of
// string, int64, float64, bool, time.Time or nil (missing).
type Row map[string]any

// RowSet is an ordered collection of rows sharing a column schema.
// Row order is load-bearing: surrogate keys and "first seen" dimension
// attributes are assigned in row order, so stages must preserve it.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// NewRowSet creates an empty RowSet with the given column schema.
func NewRowSet(columns []string) *RowSet {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &RowSet{Columns: cols, Rows: make([]Row, 0)}
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	return len(rs.Rows)
}

// HasColumn reports whether the column is part of the schema.
func (rs *RowSet) HasColumn(name string) bool {
	for _, col := range rs.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// AddColumn registers a derived column in the schema. Adding an existing
// column is a no-op.
func (rs *RowSet) AddColumn(name string) {
	if !rs.HasColumn(name) {
		rs.Columns = append(rs.Columns, name)
	}
}

// MissingColumns returns the subset of required that is absent from the
// schema, preserving the requested order.
func (rs *RowSet) MissingColumns(required []string) []string {
	var missing []string
	for _, col := range required {
		if !rs.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Append adds a row. The row is stored as-is; callers hand over ownership.
func (rs *RowSet) Append(row Row) {
	rs.Rows = append(rs.Rows, row)
}

// Fingerprint renders a row into a canonical string over the schema's column
// order, used for exact-duplicate detection. Distinct value types that render
// identically are kept apart by a type sigil.
func (rs *RowSet) Fingerprint(row Row) string {
	var sb strings.Builder
	for i, col := range rs.Columns {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		writeFingerprintValue(&sb, row[col])
	}
	return sb.String()
}

func writeFingerprintValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("_")
	case string:
		sb.WriteString("s:")
		sb.WriteString(val)
	case bool:
		if val {
			sb.WriteString("b:1")
		} else {
			sb.WriteString("b:0")
		}
	case time.Time:
		sb.WriteString("t:")
		sb.WriteString(val.Format(time.RFC3339Nano))
	default:
		sb.WriteString("v:")
		sb.WriteString(FormatValue(val))
	}
}
