// pkg/model/schema.go
package model

import "time"

// DateKey encodes a calendar date as the dense integer YYYYMMDD, the
// surrogate key convention of the date dimension.
func DateKey(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// DateRow is one calendar day of the date dimension spine.
type DateRow struct {
	DateKey   int64     `db:"date_key" parquet:"date_key"`
	FullDate  time.Time `db:"full_date" parquet:"full_date,timestamp(millisecond)"`
	Year      int64     `db:"year" parquet:"year"`
	Quarter   int64     `db:"quarter" parquet:"quarter"`
	Month     int64     `db:"month" parquet:"month"`
	MonthName string    `db:"month_name" parquet:"month_name"`
	Day       int64     `db:"day" parquet:"day"`
	DayOfWeek int64     `db:"day_of_week" parquet:"day_of_week"`
	DayName   string    `db:"day_name" parquet:"day_name"`
	IsWeekend bool      `db:"is_weekend" parquet:"is_weekend"`
}

// ProductRow is one distinct stock code of the product dimension.
type ProductRow struct {
	ProductKey    int64     `db:"product_key" parquet:"product_key"`
	StockCode     string    `db:"stock_code" parquet:"stock_code"`
	Description   string    `db:"description" parquet:"description"`
	FirstSeenDate time.Time `db:"first_seen_date" parquet:"first_seen_date,timestamp(millisecond)"`
	LastSeenDate  time.Time `db:"last_seen_date" parquet:"last_seen_date,timestamp(millisecond)"`
	IsActive      bool      `db:"is_active" parquet:"is_active"`
}

// CustomerRow is one distinct customer id of the customer dimension.
// Customer id 0 is the reserved sentinel for unknown purchasers.
type CustomerRow struct {
	CustomerKey       int64     `db:"customer_key" parquet:"customer_key"`
	CustomerID        int64     `db:"customer_id" parquet:"customer_id"`
	Country           string    `db:"country" parquet:"country"`
	FirstPurchaseDate time.Time `db:"first_purchase_date" parquet:"first_purchase_date,timestamp(millisecond)"`
	LastPurchaseDate  time.Time `db:"last_purchase_date" parquet:"last_purchase_date,timestamp(millisecond)"`
	IsUnknownCustomer bool      `db:"is_unknown_customer" parquet:"is_unknown_customer"`
}

// FactRow is one transaction line of the fact table. Foreign keys are
// pointers: nil marks a reference the builders could not resolve, reported
// as an integrity warning rather than dropping the row.
type FactRow struct {
	TransactionKey   int64     `db:"transaction_key" parquet:"transaction_key"`
	DateKey          *int64    `db:"date_key" parquet:"date_key,optional"`
	ProductKey       *int64    `db:"product_key" parquet:"product_key,optional"`
	CustomerKey      *int64    `db:"customer_key" parquet:"customer_key,optional"`
	Quantity         int64     `db:"quantity" parquet:"quantity"`
	UnitPrice        float64   `db:"unit_price" parquet:"unit_price"`
	LineTotal        float64   `db:"line_total" parquet:"line_total"`
	IsCancelled      bool      `db:"is_cancelled" parquet:"is_cancelled"`
	HighQuantityFlag bool      `db:"high_quantity_flag" parquet:"high_quantity_flag"`
	InvoiceNo        string    `db:"invoice_no" parquet:"invoice_no"`
	LoadedAt         time.Time `db:"loaded_at" parquet:"loaded_at,timestamp(millisecond)"`
}

// StarSchema is the complete dimensional model produced by one run. Tables
// are rebuilt from scratch every run and supersede any previous output.
type StarSchema struct {
	DimDate     []DateRow
	DimProduct  []ProductRow
	DimCustomer []CustomerRow
	FactSales   []FactRow
	BuiltAt     time.Time
}
