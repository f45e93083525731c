package contracts

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one cleaned line item of the retail log
// ⭐ SSOT: S0 → S1 거래 데이터 전달
type Transaction struct {
	InvoiceNo   string          `json:"invoice_no"`
	CustomerID  string          `json:"customer_id"`
	StockCode   string          `json:"stock_code"`
	Quantity    int64           `json:"quantity"`   // > 0 (정제 후)
	UnitPrice   decimal.Decimal `json:"unit_price"` // > 0 (정제 후)
	InvoiceDate time.Time       `json:"invoice_date"`
	Country     string          `json:"country"`

	// 정제 단계에서 부착된 캘린더 필드
	Year      int `json:"year"`
	Month     int `json:"month"`
	DayOfWeek int `json:"day_of_week"` // Monday=0 ... Sunday=6
	Hour      int `json:"hour"`
}

// LineTotal returns Quantity × UnitPrice
func (t Transaction) LineTotal() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// PriceFloat returns the unit price as float64 for statistics
func (t Transaction) PriceFloat() float64 {
	f, _ := t.UnitPrice.Float64()
	return f
}

// DeriveCalendar fills Year/Month/DayOfWeek/Hour from InvoiceDate
func (t *Transaction) DeriveCalendar() {
	t.Year = t.InvoiceDate.Year()
	t.Month = int(t.InvoiceDate.Month())
	t.DayOfWeek = MondayFirstWeekday(t.InvoiceDate)
	t.Hour = t.InvoiceDate.Hour()
}

// MondayFirstWeekday maps time.Weekday (Sunday=0) to Monday=0 ... Sunday=6
func MondayFirstWeekday(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}

// TransactionTable is an ordered set of transactions (row order = source order)
type TransactionTable struct {
	Rows []Transaction
}

// NewTransactionTable wraps rows into a table
func NewTransactionTable(rows []Transaction) *TransactionTable {
	return &TransactionTable{Rows: rows}
}

// Len returns the number of rows
func (t *TransactionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// MinDate returns the earliest InvoiceDate (zero time for an empty table)
func (t *TransactionTable) MinDate() time.Time {
	var min time.Time
	for i, row := range t.Rows {
		if i == 0 || row.InvoiceDate.Before(min) {
			min = row.InvoiceDate
		}
	}
	return min
}

// MaxDate returns the latest InvoiceDate (zero time for an empty table)
func (t *TransactionTable) MaxDate() time.Time {
	var max time.Time
	for i, row := range t.Rows {
		if i == 0 || row.InvoiceDate.After(max) {
			max = row.InvoiceDate
		}
	}
	return max
}

// CustomerSet returns the distinct customer IDs of the table
func (t *TransactionTable) CustomerSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, row := range t.Rows {
		set[row.CustomerID] = struct{}{}
	}
	return set
}

// GroupByCustomer returns each customer's rows, keeping source order inside a group
func (t *TransactionTable) GroupByCustomer() map[string][]Transaction {
	groups := make(map[string][]Transaction)
	for _, row := range t.Rows {
		groups[row.CustomerID] = append(groups[row.CustomerID], row)
	}
	return groups
}

// CompareCustomerIDs orders customer IDs numerically when both are integers,
// lexically otherwise. Equal numbers ("7", "07") are ordered lexically too,
// so the order is total. 고객 순서를 고정해서 출력이 항상 같게 만듦
func CompareCustomerIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
