package s0_data

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/churnlab/internal/contracts"
)

// Column names of the cleaned transaction log
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColPrice       = "Price"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
	ColYear        = "Year"
	ColMonth       = "Month"
	ColDayOfWeek   = "DayOfWeek"
	ColHour        = "Hour"
)

// RequiredColumns must all be present (plus one of Price / UnitPrice)
var RequiredColumns = []string{
	ColInvoiceNo, ColStockCode, ColQuantity, ColInvoiceDate, ColCustomerID, ColCountry,
}

// timeLayouts accepted for InvoiceDate, tried in order
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ContractError reports an input-contract violation (fatal, never coerced)
type ContractError struct {
	MissingColumns []string
	Violations     map[string]int // column → offending row count
	FirstRow       map[string]int // column → first offending data row (1-based)
}

func (e *ContractError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("input contract violation: missing columns %s", strings.Join(e.MissingColumns, ", "))
	}

	cols := make([]string, 0, len(e.Violations))
	for col := range e.Violations {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("%s=%d rows (first row %d)", col, e.Violations[col], e.FirstRow[col]))
	}
	return fmt.Sprintf("input contract violation: %s", strings.Join(parts, ", "))
}

// HasViolations reports whether anything was recorded
func (e *ContractError) HasViolations() bool {
	return len(e.MissingColumns) > 0 || len(e.Violations) > 0
}

func (e *ContractError) add(col string, row int) {
	if e.Violations == nil {
		e.Violations = make(map[string]int)
		e.FirstRow = make(map[string]int)
	}
	if e.Violations[col] == 0 {
		e.FirstRow[col] = row
	}
	e.Violations[col]++
}

// ParseTimestamp parses InvoiceDate with the accepted layouts
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// NormalizeCustomerID turns float-formatted ids ("17850.0") into "17850"
func NormalizeCustomerID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

// parseQuantity accepts "6" and integral floats like "6.0"
func parseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("non-integral quantity %q", s)
	}
	return int64(f), nil
}

// rawRow is one record before contract checks
type rawRow struct {
	InvoiceNo   string
	StockCode   string
	Quantity    string
	InvoiceDate string
	Price       string
	CustomerID  string
	Country     string

	// 선택 컬럼 (없으면 InvoiceDate에서 계산)
	Year, Month, DayOfWeek, Hour string
}

// checkRow converts a raw row, recording every violated column in cerr.
// ok is false when the row cannot be used.
func checkRow(raw rawRow, rowNum int, cerr *ContractError) (contracts.Transaction, bool) {
	ok := true
	tx := contracts.Transaction{
		InvoiceNo:  strings.TrimSpace(raw.InvoiceNo),
		StockCode:  strings.TrimSpace(raw.StockCode),
		CustomerID: NormalizeCustomerID(raw.CustomerID),
		Country:    strings.TrimSpace(raw.Country),
	}

	if tx.CustomerID == "" || strings.EqualFold(tx.CustomerID, "nan") {
		cerr.add(ColCustomerID, rowNum)
		ok = false
	}
	if tx.InvoiceNo == "" {
		cerr.add(ColInvoiceNo, rowNum)
		ok = false
	}
	if tx.StockCode == "" {
		cerr.add(ColStockCode, rowNum)
		ok = false
	}

	ts, err := ParseTimestamp(raw.InvoiceDate)
	if err != nil {
		cerr.add(ColInvoiceDate, rowNum)
		ok = false
	}
	tx.InvoiceDate = ts

	qty, err := parseQuantity(raw.Quantity)
	if err != nil || qty <= 0 {
		cerr.add(ColQuantity, rowNum)
		ok = false
	}
	tx.Quantity = qty

	price, err := decimal.NewFromString(strings.TrimSpace(raw.Price))
	if err != nil || !price.IsPositive() {
		cerr.add(ColUnitPrice, rowNum)
		ok = false
	}
	tx.UnitPrice = price

	if !ok {
		return tx, false
	}

	tx.DeriveCalendar()
	// 업스트림 파생 컬럼이 있으면 그대로 사용
	if v, err := strconv.Atoi(strings.TrimSpace(raw.Year)); err == nil {
		tx.Year = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(raw.Month)); err == nil {
		tx.Month = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(raw.DayOfWeek)); err == nil && v >= 0 && v <= 6 {
		tx.DayOfWeek = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(raw.Hour)); err == nil && v >= 0 && v <= 23 {
		tx.Hour = v
	}
	return tx, true
}
