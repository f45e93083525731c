package contracts

import "time"

// RFMFeatures is the recency/frequency/monetary summary of one customer (S2)
type RFMFeatures struct {
	Recency        int     `json:"recency"`   // cutoff - 마지막 구매 (일)
	Frequency      int     `json:"frequency"` // distinct invoice 수
	TotalSpent     float64 `json:"total_spent"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	UniqueProducts int     `json:"unique_products"`
	TotalItems     int64   `json:"total_items"`
}

// BehavioralFeatures covers purchase gaps, basket sizes, time preference and geography
type BehavioralFeatures struct {
	AvgDaysBetweenPurchases float64 `json:"avg_days_between_purchases"`
	StdDaysBetweenPurchases float64 `json:"std_days_between_purchases"`
	AvgBasketSize           float64 `json:"avg_basket_size"`
	StdBasketSize           float64 `json:"std_basket_size"`
	MaxBasketSize           float64 `json:"max_basket_size"`
	PreferredDayOfWeek      int     `json:"preferred_day_of_week"`
	PreferredHour           int     `json:"preferred_hour"`
	UniqueCountries         int     `json:"unique_countries"`
}

// TemporalFeatures covers lifetime, velocity and rolling recent activity.
// RecentPurchases is aligned with FeatureSet.Lookbacks.
type TemporalFeatures struct {
	CustomerLifetimeDays int     `json:"customer_lifetime_days"`
	PurchaseVelocity     float64 `json:"purchase_velocity"`
	RecentPurchases      []int   `json:"recent_purchases"`
}

// ProductFeatures covers product diversity and unit-price preference
type ProductFeatures struct {
	ProductDiversityScore float64 `json:"product_diversity_score"`
	AvgUnitPrice          float64 `json:"avg_unit_price"`
	StdUnitPrice          float64 `json:"std_unit_price"`
	MinUnitPrice          float64 `json:"min_unit_price"`
	MaxUnitPrice          float64 `json:"max_unit_price"`
}

// SegmentScores are the RFM quartile scores of one customer (S3)
type SegmentScores struct {
	RecencyScore   int    `json:"recency_score"`
	FrequencyScore int    `json:"frequency_score"`
	MonetaryScore  int    `json:"monetary_score"`
	RFMScore       int    `json:"rfm_score"` // 3 ~ 12
	Segment        string `json:"segment,omitempty"`
}

// FeatureSet is the S2 output: one entry per base customer in every enabled map
// ⭐ SSOT: S2 → S3/S4 고객별 집계 결과 전달
type FeatureSet struct {
	Lookbacks  []int                         `json:"lookbacks"`
	RFM        map[string]RFMFeatures        `json:"rfm"`
	Behavioral map[string]BehavioralFeatures `json:"behavioral"`
	Temporal   map[string]TemporalFeatures   `json:"temporal"`
	Product    map[string]ProductFeatures    `json:"product,omitempty"` // 비활성 시 nil
}

// Segmentation is the S3 output
type Segmentation struct {
	Scores      map[string]SegmentScores `json:"scores"`
	Categorical bool                     `json:"categorical"`
	Fallbacks   []string                 `json:"fallbacks"` // rank cut으로 전환된 지표
}

// CustomerFeatures is one assembled row of the final table
type CustomerFeatures struct {
	CustomerID string `json:"customer_id"`
	Churn      int    `json:"churn"`

	RFMFeatures
	BehavioralFeatures
	TemporalFeatures
	Product *ProductFeatures `json:"product,omitempty"`
	SegmentScores
}

// FeatureTable is the final S4 artifact
// ⭐ SSOT: S4 → 학습 단계 피처 테이블 전달
type FeatureTable struct {
	Columns   []string           `json:"columns"`
	Rows      []CustomerFeatures `json:"rows"`
	Lookbacks []int              `json:"lookbacks"`
}

// Count returns the number of customer rows
func (t *FeatureTable) Count() int {
	return len(t.Rows)
}

// ChurnRate returns the label mean over all rows
func (t *FeatureTable) ChurnRate() float64 {
	if len(t.Rows) == 0 {
		return 0.0
	}
	churned := 0
	for _, row := range t.Rows {
		churned += row.Churn
	}
	return float64(churned) / float64(len(t.Rows))
}

// Metadata builds the side record written next to the table
func (t *FeatureTable) Metadata() FeatureMetadata {
	features := make([]string, len(t.Columns))
	copy(features, t.Columns)
	return FeatureMetadata{
		TotalCustomers: len(t.Rows),
		TotalFeatures:  len(t.Columns),
		ChurnRate:      t.ChurnRate(),
		Features:       features,
	}
}

// FeatureMetadata is feature_info.json
type FeatureMetadata struct {
	TotalCustomers int      `json:"total_customers"`
	TotalFeatures  int      `json:"total_features"`
	ChurnRate      float64  `json:"churn_rate"`
	Features       []string `json:"features"`
}

// RunManifest records how a feature table was produced (audit/재현성용)
type RunManifest struct {
	RunID           string    `json:"run_id"`
	ConfigHash      string    `json:"config_hash"`
	InputPath       string    `json:"input_path"`
	Window          Window    `json:"window"`
	Customers       int       `json:"customers"`
	ChurnRate       float64   `json:"churn_rate"`
	CompletedStages []string  `json:"completed_stages"`
	Fallbacks       []string  `json:"quartile_fallbacks"`
	Warnings        []string  `json:"warnings,omitempty"`
	Outputs         []string  `json:"outputs"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
