package s0_data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// ctxCheckEvery rows between context checks
const ctxCheckEvery = 10000

// CSVLoader reads the cleaned transaction CSV
// ⭐ SSOT: 파일 입력은 여기서만 파싱
type CSVLoader struct {
	path   string
	logger *logger.Logger
}

// NewCSVLoader creates a loader for path
func NewCSVLoader(path string, log *logger.Logger) *CSVLoader {
	return &CSVLoader{
		path:   path,
		logger: log.WithStage("s0_data"),
	}
}

// Path returns the input file
func (l *CSVLoader) Path() string {
	return l.path
}

// Load implements contracts.TransactionSource
func (l *CSVLoader) Load(ctx context.Context) (*contracts.TransactionTable, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open transactions: %w", err)
	}
	defer f.Close()

	table, err := ReadCSV(ctx, f)
	if err != nil {
		var cerr *ContractError
		if errors.As(err, &cerr) {
			l.logger.WithField("path", l.path).WithError(err).Error("Input contract violated")
		}
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"path":      l.path,
		"rows":      table.Len(),
		"customers": len(table.CustomerSet()),
		"from":      table.MinDate().Format("2006-01-02"),
		"to":        table.MaxDate().Format("2006-01-02"),
	}).Info("Transactions loaded")

	return table, nil
}

// ReadCSV parses a transaction CSV from r and enforces the input contract
func ReadCSV(ctx context.Context, r io.Reader) (*contracts.TransactionTable, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			missing := append([]string{}, RequiredColumns...)
			return nil, &ContractError{MissingColumns: append(missing, ColPrice+"|"+ColUnitPrice)}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	cerr := &ContractError{}
	var rows []contracts.Transaction
	rowNum := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNum+1, err)
		}
		rowNum++

		if rowNum%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := rawRow{
			InvoiceNo:   field(record, idx[ColInvoiceNo]),
			StockCode:   field(record, idx[ColStockCode]),
			Quantity:    field(record, idx[ColQuantity]),
			InvoiceDate: field(record, idx[ColInvoiceDate]),
			Price:       field(record, idx[ColPrice]),
			CustomerID:  field(record, idx[ColCustomerID]),
			Country:     field(record, idx[ColCountry]),
			Year:        field(record, idx[ColYear]),
			Month:       field(record, idx[ColMonth]),
			DayOfWeek:   field(record, idx[ColDayOfWeek]),
			Hour:        field(record, idx[ColHour]),
		}

		tx, ok := checkRow(raw, rowNum, cerr)
		if ok {
			rows = append(rows, tx)
		}
	}

	if cerr.HasViolations() {
		return nil, cerr
	}

	return contracts.NewTransactionTable(rows), nil
}

// indexHeader maps column name → position; missing optional columns map to -1
func indexHeader(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	idx := make(map[string]int)
	var missing []string
	for _, col := range RequiredColumns {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}

	// Price / UnitPrice 둘 다 허용 (Price 우선)
	if i, ok := pos[ColPrice]; ok {
		idx[ColPrice] = i
	} else if i, ok := pos[ColUnitPrice]; ok {
		idx[ColPrice] = i
	} else {
		missing = append(missing, ColPrice+"|"+ColUnitPrice)
	}

	if len(missing) > 0 {
		return nil, &ContractError{MissingColumns: missing}
	}

	for _, col := range []string{ColYear, ColMonth, ColDayOfWeek, ColHour} {
		if i, ok := pos[col]; ok {
			idx[col] = i
		} else {
			idx[col] = -1
		}
	}
	return idx, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
