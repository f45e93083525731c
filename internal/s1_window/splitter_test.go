package s1_window

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

var day0 = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)

func at(day int) time.Time {
	return day0.AddDate(0, 0, day)
}

func row(invoice, customer string, day int) contracts.Transaction {
	return contracts.Transaction{
		InvoiceNo:   invoice,
		CustomerID:  customer,
		StockCode:   "S",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(1),
		InvoiceDate: at(day),
		Country:     "UK",
	}
}

func table(rows ...contracts.Transaction) *contracts.TransactionTable {
	return contracts.NewTransactionTable(rows)
}

func TestSplit_FixedCutoff(t *testing.T) {
	s := NewTemporalSplitter(logger.Nop())
	cutoff := at(50)

	in := table(
		row("1", "C1", 1),
		row("2", "C1", 50), // cutoff 당일 → 학습
		row("3", "C2", 51),
		row("4", "C2", 80),
	)

	split, err := s.Split(context.Background(), in, contracts.WindowSpec{Cutoff: &cutoff})
	require.NoError(t, err)

	assert.Equal(t, 2, split.Training.Len())
	assert.Equal(t, 2, split.Observation.Len())
	assert.Equal(t, cutoff, split.Window.Cutoff)
	assert.Equal(t, at(80), split.Window.ObservationEnd)

	for _, tx := range split.Training.Rows {
		assert.False(t, tx.InvoiceDate.After(cutoff))
	}
	for _, tx := range split.Observation.Rows {
		assert.True(t, tx.InvoiceDate.After(cutoff))
	}
}

func TestSplit_Horizon(t *testing.T) {
	s := NewTemporalSplitter(logger.Nop())

	in := table(row("1", "A", 0), row("2", "A", 10), row("3", "B", 100))
	split, err := s.Split(context.Background(), in, contracts.WindowSpec{HorizonDays: 90})
	require.NoError(t, err)

	assert.Equal(t, at(10), split.Window.Cutoff)
	assert.Equal(t, 90, split.Window.HorizonDays)
	// union = input
	assert.Equal(t, in.Len(), split.Training.Len()+split.Observation.Len())
	assert.Equal(t, 2, split.Window.TrainingRows)
	assert.Equal(t, 1, split.Window.ObservationRows)
}

func TestSplit_Preconditions(t *testing.T) {
	s := NewTemporalSplitter(logger.Nop())
	late := at(500)
	early := at(-10)

	tests := []struct {
		name string
		in   *contracts.TransactionTable
		spec contracts.WindowSpec
	}{
		{"empty input", table(), contracts.WindowSpec{HorizonDays: 90}},
		{"horizon exceeds span", table(row("1", "A", 0), row("2", "A", 30)), contracts.WindowSpec{HorizonDays: 90}},
		{"cutoff before first row", table(row("1", "A", 0), row("2", "A", 30)), contracts.WindowSpec{Cutoff: &early}},
		{"cutoff after observation end", table(row("1", "A", 0)), contracts.WindowSpec{Cutoff: &late}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Split(context.Background(), tt.in, tt.spec)
			require.Error(t, err)

			var perr *PreconditionError
			assert.True(t, errors.As(err, &perr), "got %v", err)
		})
	}
}

func TestSplit_InvalidWindow(t *testing.T) {
	s := NewTemporalSplitter(logger.Nop())
	cutoff := at(1)

	_, err := s.Split(context.Background(), table(row("1", "A", 0)), contracts.WindowSpec{Cutoff: &cutoff, HorizonDays: 90})
	assert.Error(t, err)
}

func TestResolveCutoff(t *testing.T) {
	end := time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)
	got := ResolveCutoff(contracts.WindowSpec{HorizonDays: 90}, end)
	assert.Equal(t, time.Date(2011, 9, 10, 12, 50, 0, 0, time.UTC), got)
}
