package s2_features

import (
	"fmt"
	"time"

	"github.com/wonny/churnlab/internal/contracts"
)

// DefaultLookbacks are the recent-activity horizons in days
var DefaultLookbacks = []int{30, 60, 90}

// RecentPurchasesColumn names the count column of one lookback
func RecentPurchasesColumn(days int) string {
	return fmt.Sprintf("Purchases_Last%dD", days)
}

// TemporalAggregator computes lifetime, velocity and rolling recent activity
type TemporalAggregator struct {
	lookbacks []int
}

// NewTemporalAggregator creates an aggregator for the given lookbacks (days)
func NewTemporalAggregator(lookbacks []int) *TemporalAggregator {
	if len(lookbacks) == 0 {
		lookbacks = DefaultLookbacks
	}
	return &TemporalAggregator{lookbacks: append([]int(nil), lookbacks...)}
}

// Name returns the aggregator name
func (a *TemporalAggregator) Name() string { return "temporal" }

// Lookbacks returns the configured horizons
func (a *TemporalAggregator) Lookbacks() []int {
	return append([]int(nil), a.lookbacks...)
}

// Compute returns one TemporalFeatures per customer group
func (a *TemporalAggregator) Compute(groups map[string][]contracts.Transaction, cutoff time.Time) map[string]contracts.TemporalFeatures {
	out := make(map[string]contracts.TemporalFeatures, len(groups))

	starts := make([]time.Time, len(a.lookbacks))
	for i, days := range a.lookbacks {
		starts[i] = cutoff.Add(-time.Duration(days) * day)
	}

	for id, rows := range groups {
		first, last := rows[0].InvoiceDate, rows[0].InvoiceDate
		invoices := make(map[string]struct{})
		recent := make([]map[string]struct{}, len(a.lookbacks))
		for i := range recent {
			recent[i] = make(map[string]struct{})
		}

		for _, tx := range rows {
			if tx.InvoiceDate.Before(first) {
				first = tx.InvoiceDate
			}
			if tx.InvoiceDate.After(last) {
				last = tx.InvoiceDate
			}
			invoices[tx.InvoiceNo] = struct{}{}
			for i, start := range starts {
				// cutoff - N일 "이후" (strictly after)
				if tx.InvoiceDate.After(start) {
					recent[i][tx.InvoiceNo] = struct{}{}
				}
			}
		}

		lifetime := floorDays(last.Sub(first))
		counts := make([]int, len(a.lookbacks))
		for i := range recent {
			counts[i] = len(recent[i])
		}

		out[id] = contracts.TemporalFeatures{
			CustomerLifetimeDays: lifetime,
			PurchaseVelocity:     float64(len(invoices)) / float64(lifetime+1),
			RecentPurchases:      counts,
		}
	}

	return out
}
