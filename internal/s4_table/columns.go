package s4_table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/s2_features"
)

// Column names of the feature table, in output order
const (
	ColCustomerID              = "CustomerID"
	ColChurn                   = "Churn"
	ColRecency                 = "Recency"
	ColFrequency               = "Frequency"
	ColTotalSpent              = "TotalSpent"
	ColAvgOrderValue           = "AvgOrderValue"
	ColUniqueProducts          = "UniqueProducts"
	ColTotalItems              = "TotalItems"
	ColAvgDaysBetweenPurchases = "AvgDaysBetweenPurchases"
	ColStdDaysBetweenPurchases = "StdDaysBetweenPurchases"
	ColAvgBasketSize           = "AvgBasketSize"
	ColStdBasketSize           = "StdBasketSize"
	ColMaxBasketSize           = "MaxBasketSize"
	ColPreferredDayOfWeek      = "PreferredDayOfWeek"
	ColPreferredHour           = "PreferredHour"
	ColUniqueCountries         = "UniqueCountries"
	ColCustomerLifetimeDays    = "CustomerLifetimeDays"
	ColPurchaseVelocity        = "PurchaseVelocity"
	ColProductDiversityScore   = "ProductDiversityScore"
	ColAvgUnitPrice            = "AvgUnitPrice"
	ColStdUnitPrice            = "StdUnitPrice"
	ColMinUnitPrice            = "MinUnitPrice"
	ColMaxUnitPrice            = "MaxUnitPrice"
	ColRScore                  = "R_Score"
	ColFScore                  = "F_Score"
	ColMScore                  = "M_Score"
	ColRFMScore                = "RFM_Score"
	ColCustomerSegment         = "CustomerSegment"
)

// Columns returns the fixed column order; product and segment columns only when enabled
func Columns(lookbacks []int, product, categorical bool) []string {
	cols := []string{
		ColCustomerID, ColChurn,
		ColRecency, ColFrequency, ColTotalSpent, ColAvgOrderValue, ColUniqueProducts, ColTotalItems,
		ColAvgDaysBetweenPurchases, ColStdDaysBetweenPurchases,
		ColAvgBasketSize, ColStdBasketSize, ColMaxBasketSize,
		ColPreferredDayOfWeek, ColPreferredHour, ColUniqueCountries,
		ColCustomerLifetimeDays, ColPurchaseVelocity,
	}
	for _, days := range lookbacks {
		cols = append(cols, s2_features.RecentPurchasesColumn(days))
	}
	if product {
		cols = append(cols, ColProductDiversityScore, ColAvgUnitPrice, ColStdUnitPrice, ColMinUnitPrice, ColMaxUnitPrice)
	}
	cols = append(cols, ColRScore, ColFScore, ColMScore, ColRFMScore)
	if categorical {
		cols = append(cols, ColCustomerSegment)
	}
	return cols
}

// parseLookback extracts N from Purchases_Last{N}D
func parseLookback(col string) (int, bool) {
	if !strings.HasPrefix(col, "Purchases_Last") || !strings.HasSuffix(col, "D") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(col, "Purchases_Last"), "D"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Record renders one row in column order
func Record(columns []string, lookbacks []int, row *contracts.CustomerFeatures) ([]string, error) {
	out := make([]string, len(columns))
	for i, col := range columns {
		v, err := cell(col, lookbacks, row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func cell(col string, lookbacks []int, r *contracts.CustomerFeatures) (string, error) {
	itoa := strconv.Itoa
	switch col {
	case ColCustomerID:
		return r.CustomerID, nil
	case ColChurn:
		return itoa(r.Churn), nil
	case ColRecency:
		return itoa(r.Recency), nil
	case ColFrequency:
		return itoa(r.Frequency), nil
	case ColTotalSpent:
		return formatFloat(r.TotalSpent), nil
	case ColAvgOrderValue:
		return formatFloat(r.AvgOrderValue), nil
	case ColUniqueProducts:
		return itoa(r.UniqueProducts), nil
	case ColTotalItems:
		return strconv.FormatInt(r.TotalItems, 10), nil
	case ColAvgDaysBetweenPurchases:
		return formatFloat(r.AvgDaysBetweenPurchases), nil
	case ColStdDaysBetweenPurchases:
		return formatFloat(r.StdDaysBetweenPurchases), nil
	case ColAvgBasketSize:
		return formatFloat(r.AvgBasketSize), nil
	case ColStdBasketSize:
		return formatFloat(r.StdBasketSize), nil
	case ColMaxBasketSize:
		return formatFloat(r.MaxBasketSize), nil
	case ColPreferredDayOfWeek:
		return itoa(r.PreferredDayOfWeek), nil
	case ColPreferredHour:
		return itoa(r.PreferredHour), nil
	case ColUniqueCountries:
		return itoa(r.UniqueCountries), nil
	case ColCustomerLifetimeDays:
		return itoa(r.CustomerLifetimeDays), nil
	case ColPurchaseVelocity:
		return formatFloat(r.PurchaseVelocity), nil
	case ColRScore:
		return itoa(r.RecencyScore), nil
	case ColFScore:
		return itoa(r.FrequencyScore), nil
	case ColMScore:
		return itoa(r.MonetaryScore), nil
	case ColRFMScore:
		return itoa(r.RFMScore), nil
	case ColCustomerSegment:
		return r.Segment, nil
	}

	if days, ok := parseLookback(col); ok {
		for i, lb := range lookbacks {
			if lb == days && i < len(r.RecentPurchases) {
				return itoa(r.RecentPurchases[i]), nil
			}
		}
		return "", fmt.Errorf("column %s: lookback not computed", col)
	}

	if r.Product == nil {
		return "", fmt.Errorf("column %s: product features not computed", col)
	}
	p := r.Product
	switch col {
	case ColProductDiversityScore:
		return formatFloat(p.ProductDiversityScore), nil
	case ColAvgUnitPrice:
		return formatFloat(p.AvgUnitPrice), nil
	case ColStdUnitPrice:
		return formatFloat(p.StdUnitPrice), nil
	case ColMinUnitPrice:
		return formatFloat(p.MinUnitPrice), nil
	case ColMaxUnitPrice:
		return formatFloat(p.MaxUnitPrice), nil
	}
	return "", fmt.Errorf("unknown column %s", col)
}

// setCell is the inverse of cell, used by the reader
func setCell(col, value string, lookbacks []int, r *contracts.CustomerFeatures) error {
	atoi := func(dst *int) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
		*dst = v
		return nil
	}
	atof := func(dst *float64) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
		*dst = v
		return nil
	}
	product := func() *contracts.ProductFeatures {
		if r.Product == nil {
			r.Product = &contracts.ProductFeatures{}
		}
		return r.Product
	}

	switch col {
	case ColCustomerID:
		r.CustomerID = value
		return nil
	case ColChurn:
		return atoi(&r.Churn)
	case ColRecency:
		return atoi(&r.Recency)
	case ColFrequency:
		return atoi(&r.Frequency)
	case ColTotalSpent:
		return atof(&r.TotalSpent)
	case ColAvgOrderValue:
		return atof(&r.AvgOrderValue)
	case ColUniqueProducts:
		return atoi(&r.UniqueProducts)
	case ColTotalItems:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
		r.TotalItems = v
		return nil
	case ColAvgDaysBetweenPurchases:
		return atof(&r.AvgDaysBetweenPurchases)
	case ColStdDaysBetweenPurchases:
		return atof(&r.StdDaysBetweenPurchases)
	case ColAvgBasketSize:
		return atof(&r.AvgBasketSize)
	case ColStdBasketSize:
		return atof(&r.StdBasketSize)
	case ColMaxBasketSize:
		return atof(&r.MaxBasketSize)
	case ColPreferredDayOfWeek:
		return atoi(&r.PreferredDayOfWeek)
	case ColPreferredHour:
		return atoi(&r.PreferredHour)
	case ColUniqueCountries:
		return atoi(&r.UniqueCountries)
	case ColCustomerLifetimeDays:
		return atoi(&r.CustomerLifetimeDays)
	case ColPurchaseVelocity:
		return atof(&r.PurchaseVelocity)
	case ColProductDiversityScore:
		return atof(&product().ProductDiversityScore)
	case ColAvgUnitPrice:
		return atof(&product().AvgUnitPrice)
	case ColStdUnitPrice:
		return atof(&product().StdUnitPrice)
	case ColMinUnitPrice:
		return atof(&product().MinUnitPrice)
	case ColMaxUnitPrice:
		return atof(&product().MaxUnitPrice)
	case ColRScore:
		return atoi(&r.RecencyScore)
	case ColFScore:
		return atoi(&r.FrequencyScore)
	case ColMScore:
		return atoi(&r.MonetaryScore)
	case ColRFMScore:
		return atoi(&r.RFMScore)
	case ColCustomerSegment:
		r.Segment = value
		return nil
	}

	if days, ok := parseLookback(col); ok {
		if len(r.RecentPurchases) < len(lookbacks) {
			r.RecentPurchases = make([]int, len(lookbacks))
		}
		for i, lb := range lookbacks {
			if lb == days {
				return atoi(&r.RecentPurchases[i])
			}
		}
	}
	return fmt.Errorf("unknown column %s", col)
}
