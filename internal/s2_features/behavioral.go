package s2_features

import (
	"sort"

	"github.com/wonny/churnlab/internal/contracts"
)

// BehavioralAggregator computes purchase gaps, basket sizes, time preference and geography
type BehavioralAggregator struct{}

// Name returns the aggregator name
func (a *BehavioralAggregator) Name() string { return "behavioral" }

// Compute returns one BehavioralFeatures per customer group.
// 단일 거래 고객의 gap / std 통계는 0
func (a *BehavioralAggregator) Compute(groups map[string][]contracts.Transaction) map[string]contracts.BehavioralFeatures {
	out := make(map[string]contracts.BehavioralFeatures, len(groups))

	for id, rows := range groups {
		gaps := purchaseGaps(rows)
		baskets := basketSizes(rows)

		days := make([]int, len(rows))
		hours := make([]int, len(rows))
		countries := make(map[string]struct{})
		for i, tx := range rows {
			days[i] = tx.DayOfWeek
			hours[i] = tx.Hour
			countries[tx.Country] = struct{}{}
		}

		out[id] = contracts.BehavioralFeatures{
			AvgDaysBetweenPurchases: mean(gaps),
			StdDaysBetweenPurchases: sampleStd(gaps),
			AvgBasketSize:           mean(baskets),
			StdBasketSize:           sampleStd(baskets),
			MaxBasketSize:           maxOf(baskets),
			PreferredDayOfWeek:      modeFirst(days),
			PreferredHour:           modeFirst(hours),
			UniqueCountries:         len(countries),
		}
	}

	return out
}

// purchaseGaps returns day differences between successive rows sorted by time.
// 같은 invoice의 여러 행은 0일 gap으로 집계됨
func purchaseGaps(rows []contracts.Transaction) []float64 {
	if len(rows) < 2 {
		return nil
	}
	sorted := make([]contracts.Transaction, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InvoiceDate.Before(sorted[j].InvoiceDate)
	})

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, float64(floorDays(sorted[i].InvoiceDate.Sub(sorted[i-1].InvoiceDate))))
	}
	return gaps
}

// basketSizes sums quantity per invoice, in first-seen invoice order
func basketSizes(rows []contracts.Transaction) []float64 {
	index := make(map[string]int)
	var baskets []float64
	for _, tx := range rows {
		i, ok := index[tx.InvoiceNo]
		if !ok {
			i = len(baskets)
			index[tx.InvoiceNo] = i
			baskets = append(baskets, 0)
		}
		baskets[i] += float64(tx.Quantity)
	}
	return baskets
}
