package s0_data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/logger"
)

// TransactionRepository reads and writes retail.transactions
// ⭐ SSOT: 거래 테이블 접근은 여기서만
type TransactionRepository struct {
	db     *pgxpool.Pool
	from   *time.Time
	to     *time.Time
	logger *logger.Logger
}

// NewTransactionRepository creates a new repository instance
func NewTransactionRepository(db *pgxpool.Pool, log *logger.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: log.WithStage("s0_data"),
	}
}

// WithRange restricts Load to invoice_date in [from, to]; nil bounds are open
func (r *TransactionRepository) WithRange(from, to *time.Time) *TransactionRepository {
	out := *r
	out.from = from
	out.to = to
	return &out
}

// Load implements contracts.TransactionSource
func (r *TransactionRepository) Load(ctx context.Context) (*contracts.TransactionTable, error) {
	query := `
		SELECT invoice_no, customer_id, stock_code, quantity, unit_price::text, invoice_date, country
		FROM retail.transactions
		WHERE ($1::timestamp IS NULL OR invoice_date >= $1)
		  AND ($2::timestamp IS NULL OR invoice_date <= $2)
		ORDER BY invoice_date ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, r.from, r.to)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	cerr := &ContractError{}
	var out []contracts.Transaction
	rowNum := 0

	for rows.Next() {
		rowNum++
		var (
			invoiceNo, customerID, stockCode string
			price, country                   string
			quantity                         int64
			invoiceDate                      time.Time
		)
		if err := rows.Scan(&invoiceNo, &customerID, &stockCode, &quantity, &price, &invoiceDate, &country); err != nil {
			return nil, fmt.Errorf("scan transaction row %d: %w", rowNum, err)
		}

		// CSV와 동일한 계약 검사 경로
		tx, ok := checkRow(rawRow{
			InvoiceNo:   invoiceNo,
			StockCode:   stockCode,
			Quantity:    strconv.FormatInt(quantity, 10),
			InvoiceDate: invoiceDate.Format(time.RFC3339Nano),
			Price:       price,
			CustomerID:  customerID,
			Country:     country,
		}, rowNum, cerr)
		if ok {
			out = append(out, tx)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	if cerr.HasViolations() {
		return nil, cerr
	}

	table := contracts.NewTransactionTable(out)
	r.logger.WithFields(map[string]interface{}{
		"rows":      table.Len(),
		"customers": len(table.CustomerSet()),
	}).Info("Transactions loaded from postgres")

	return table, nil
}

// Import bulk-copies a table into retail.transactions (used to seed the DB from CSV)
func (r *TransactionRepository) Import(ctx context.Context, table *contracts.TransactionTable) (int64, error) {
	columns := []string{"invoice_no", "customer_id", "stock_code", "quantity", "unit_price", "invoice_date", "country"}

	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"retail", "transactions"},
		columns,
		pgx.CopyFromSlice(table.Len(), func(i int) ([]any, error) {
			tx := table.Rows[i]
			return []any{
				tx.InvoiceNo,
				tx.CustomerID,
				tx.StockCode,
				tx.Quantity,
				tx.UnitPrice.String(),
				tx.InvoiceDate,
				tx.Country,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy transactions: %w", err)
	}

	r.logger.WithField("rows", n).Info("Transactions imported")
	return n, nil
}
