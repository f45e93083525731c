package s2_features

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/churnlab/internal/contracts"
)

// RFMAggregator computes recency / frequency / monetary summaries
type RFMAggregator struct{}

// Name returns the aggregator name
func (a *RFMAggregator) Name() string { return "rfm" }

// Compute returns one RFMFeatures per customer group
// ⭐ SSOT: Recency 낮을수록 최근 (S3에서 역순 점수)
func (a *RFMAggregator) Compute(groups map[string][]contracts.Transaction, cutoff time.Time) map[string]contracts.RFMFeatures {
	out := make(map[string]contracts.RFMFeatures, len(groups))

	for id, rows := range groups {
		invoices := make(map[string]struct{})
		products := make(map[string]struct{})
		spent := decimal.Zero
		var items int64
		last := rows[0].InvoiceDate

		for _, tx := range rows {
			invoices[tx.InvoiceNo] = struct{}{}
			products[tx.StockCode] = struct{}{}
			spent = spent.Add(tx.LineTotal())
			items += tx.Quantity
			if tx.InvoiceDate.After(last) {
				last = tx.InvoiceDate
			}
		}

		frequency := len(invoices)
		total := spent.InexactFloat64()

		out[id] = contracts.RFMFeatures{
			Recency:        floorDays(cutoff.Sub(last)),
			Frequency:      frequency,
			TotalSpent:     total,
			AvgOrderValue:  total / float64(frequency),
			UniqueProducts: len(products),
			TotalItems:     items,
		}
	}

	return out
}
