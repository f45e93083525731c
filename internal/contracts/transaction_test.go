package contracts

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransaction_LineTotal(t *testing.T) {
	tx := Transaction{Quantity: 3, UnitPrice: decimal.RequireFromString("2.55")}

	if got := tx.LineTotal().String(); got != "7.65" {
		t.Errorf("LineTotal() = %s, want 7.65", got)
	}
}

func TestMondayFirstWeekday(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2011-09-05", 0}, // Monday
		{"2011-09-07", 2}, // Wednesday
		{"2011-09-11", 6}, // Sunday
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			ts, _ := time.Parse("2006-01-02", tt.date)
			if got := MondayFirstWeekday(ts); got != tt.want {
				t.Errorf("MondayFirstWeekday(%s) = %d, want %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestTransaction_DeriveCalendar(t *testing.T) {
	tx := Transaction{InvoiceDate: time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)}
	tx.DeriveCalendar()

	if tx.Year != 2010 || tx.Month != 12 || tx.DayOfWeek != 2 || tx.Hour != 8 {
		t.Errorf("DeriveCalendar() = %d/%d dow=%d hour=%d", tx.Year, tx.Month, tx.DayOfWeek, tx.Hour)
	}
}

func TestCompareCustomerIDs(t *testing.T) {
	ids := []string{"9999", "12346", "A-01", "100", "B-02", "12346"}
	sort.Slice(ids, func(i, j int) bool { return CompareCustomerIDs(ids[i], ids[j]) < 0 })

	want := []string{"100", "9999", "12346", "12346", "A-01", "B-02"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("sorted ids = %v, want %v", ids, want)
		}
	}
}

func TestCompareCustomerIDs_EqualNumbersStable(t *testing.T) {
	want := []string{"6", "07", "7", "8", "C-1"}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		ids := append([]string(nil), want...)
		rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
		sort.Slice(ids, func(a, b int) bool { return CompareCustomerIDs(ids[a], ids[b]) < 0 })

		for j := range want {
			if ids[j] != want[j] {
				t.Fatalf("run %d: sorted ids = %v, want %v", i, ids, want)
			}
		}
	}

	if got := CompareCustomerIDs("7", "07"); got != 1 {
		t.Errorf(`CompareCustomerIDs("7", "07") = %d, want 1`, got)
	}
	if got := CompareCustomerIDs("12", "12"); got != 0 {
		t.Errorf(`CompareCustomerIDs("12", "12") = %d, want 0`, got)
	}
}

func TestTransactionTable_Dates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC) }
	table := NewTransactionTable([]Transaction{
		{CustomerID: "1", InvoiceDate: day(10)},
		{CustomerID: "2", InvoiceDate: day(3)},
		{CustomerID: "1", InvoiceDate: day(20)},
	})

	if !table.MinDate().Equal(day(3)) {
		t.Errorf("MinDate() = %v", table.MinDate())
	}
	if !table.MaxDate().Equal(day(20)) {
		t.Errorf("MaxDate() = %v", table.MaxDate())
	}
	if got := len(table.CustomerSet()); got != 2 {
		t.Errorf("CustomerSet() size = %d, want 2", got)
	}
	if got := table.GroupByCustomer()["1"]; len(got) != 2 || !got[0].InvoiceDate.Equal(day(10)) {
		t.Errorf("GroupByCustomer()[1] = %v", got)
	}
	var empty *TransactionTable
	if empty.Len() != 0 {
		t.Error("nil table should have zero length")
	}
}
