package quality

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/s0_data"
)

func tx(invoice, customer, stock string, qty int64, price string, ts time.Time) contracts.Transaction {
	t := contracts.Transaction{
		InvoiceNo:   invoice,
		CustomerID:  customer,
		StockCode:   stock,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
		InvoiceDate: ts,
		Country:     "United Kingdom",
	}
	t.DeriveCalendar()
	return t
}

func TestQualityGate_Check(t *testing.T) {
	day := time.Date(2011, 1, 3, 10, 0, 0, 0, time.UTC)
	table := contracts.NewTransactionTable([]contracts.Transaction{
		tx("1", "100", "A", 2, "5", day),
		tx("1", "100", "B", 1, "10", day),
		tx("2", "200", "A", 4, "2.5", day.AddDate(0, 0, 5)),
	})

	gate := NewQualityGate(DefaultConfig())
	report := gate.Check(table)

	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 2, report.UniqueCustomers)
	assert.Equal(t, 2, report.UniqueProducts)
	assert.Equal(t, 1, report.UniqueCountries)
	assert.InDelta(t, 30.0, report.TotalRevenue, 1e-9)
	assert.InDelta(t, 15.0, report.AverageOrderValue, 1e-9) // invoice 1 = 20, invoice 2 = 10
	assert.Equal(t, "2011-01-03 10:00:00", report.DateRange.Start)
	assert.Equal(t, "2011-01-08 10:00:00", report.DateRange.End)
	assert.True(t, report.ValidationPassed)
	assert.InDelta(t, 1.0, report.QualityScore, 1e-9)

	for name, ok := range report.Checks {
		assert.True(t, ok, name)
	}
}

func TestQualityGate_NonIntegerCustomer(t *testing.T) {
	day := time.Date(2011, 1, 3, 10, 0, 0, 0, time.UTC)
	table := contracts.NewTransactionTable([]contracts.Transaction{
		tx("1", "C1", "A", 1, "1", day),
	})

	report := NewQualityGate(DefaultConfig()).Check(table)
	assert.False(t, report.Checks[CheckCustomerIDInteger])
	assert.False(t, report.ValidationPassed)

	relaxed := DefaultConfig()
	relaxed.RequireIntegerCustomerID = false
	report = NewQualityGate(relaxed).Check(table)
	assert.True(t, report.ValidationPassed)
}

func TestQualityGate_Coverage(t *testing.T) {
	day := time.Date(2011, 1, 3, 10, 0, 0, 0, time.UTC)
	good := tx("1", "1", "A", 1, "1", day)
	bad := tx("2", "1", "A", 1, "1", day)
	bad.DayOfWeek = 5 // 업스트림 값이 InvoiceDate와 불일치
	bad.Hour = 3

	report := NewQualityGate(DefaultConfig()).Check(contracts.NewTransactionTable([]contracts.Transaction{good, bad}))
	assert.InDelta(t, 0.5, report.Coverage["day_of_week"], 1e-9)
	assert.InDelta(t, 0.5, report.Coverage["hour"], 1e-9)
	assert.InDelta(t, 1.0, report.Coverage["year"], 1e-9)
	assert.False(t, report.ValidationPassed)
}

func TestQualityGate_calculateScore(t *testing.T) {
	gate := &QualityGate{
		config: Config{},
	}

	tests := []struct {
		name     string
		coverage map[string]float64
		wantMin  float64
		wantMax  float64
	}{
		{
			name:     "perfect coverage",
			coverage: map[string]float64{"year": 1.0, "month": 1.0, "day_of_week": 1.0, "hour": 1.0},
			wantMin:  0.99,
			wantMax:  1.01,
		},
		{
			name:     "hour missing",
			coverage: map[string]float64{"year": 1.0, "month": 1.0, "day_of_week": 1.0, "hour": 0.0},
			wantMin:  0.64,
			wantMax:  0.66,
		},
		{
			name:     "empty",
			coverage: map[string]float64{},
			wantMin:  0.0,
			wantMax:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := gate.calculateScore(tt.coverage)
			assert.GreaterOrEqual(t, score, tt.wantMin)
			assert.LessOrEqual(t, score, tt.wantMax)
		})
	}
}

func TestQualityGate_FromError(t *testing.T) {
	gate := NewQualityGate(DefaultConfig())

	cerr := &s0_data.ContractError{Violations: map[string]int{s0_data.ColQuantity: 3}}
	report := gate.FromError(cerr)
	assert.False(t, report.ValidationPassed)
	assert.False(t, report.Checks[CheckQuantitiesPositive])
	assert.True(t, report.Checks[CheckPricesPositive])
	assert.Equal(t, 3, report.Violations[s0_data.ColQuantity])

	report = gate.FromError(errors.New("boom"))
	assert.Equal(t, "boom", report.Error)
	assert.Nil(t, report.Violations)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "validation_report.json")
	report := NewQualityGate(DefaultConfig()).Check(contracts.NewTransactionTable(nil))

	require.NoError(t, WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "total_rows")
	assert.Contains(t, decoded, "checks")
}
