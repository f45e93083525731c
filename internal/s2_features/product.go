package s2_features

import (
	"github.com/wonny/churnlab/internal/contracts"
)

// ProductAggregator computes product diversity and unit-price preference
type ProductAggregator struct{}

// Name returns the aggregator name
func (a *ProductAggregator) Name() string { return "product" }

// Compute returns one ProductFeatures per customer group
func (a *ProductAggregator) Compute(groups map[string][]contracts.Transaction) map[string]contracts.ProductFeatures {
	out := make(map[string]contracts.ProductFeatures, len(groups))

	for id, rows := range groups {
		products := make(map[string]struct{})
		prices := make([]float64, len(rows))
		for i, tx := range rows {
			products[tx.StockCode] = struct{}{}
			prices[i] = tx.PriceFloat()
		}

		out[id] = contracts.ProductFeatures{
			ProductDiversityScore: float64(len(products)) / float64(len(rows)),
			AvgUnitPrice:          mean(prices),
			StdUnitPrice:          sampleStd(prices),
			MinUnitPrice:          minOf(prices),
			MaxUnitPrice:          maxOf(prices),
		}
	}

	return out
}
