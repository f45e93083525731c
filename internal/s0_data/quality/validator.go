package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/s0_data"
)

// Check names of the validation report
const (
	CheckNoMissingValues    = "no_missing_values"
	CheckQuantitiesPositive = "all_quantities_positive"
	CheckPricesPositive     = "all_prices_positive"
	CheckCustomerIDInteger  = "customer_id_is_integer"
)

// QualityGate builds the input validation report
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinQualityScore          float64 `yaml:"min_quality_score"` // 0.95
	RequireIntegerCustomerID bool    `yaml:"require_integer_customer_id"`
}

// DefaultConfig returns the thresholds used by `churn validate`
func DefaultConfig() Config {
	return Config{
		MinQualityScore:          0.95,
		RequireIntegerCustomerID: true,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// DateRange first/last InvoiceDate
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ValidationReport is validation_report.json
type ValidationReport struct {
	TotalRows         int                `json:"total_rows"`
	TotalColumns      int                `json:"total_columns"`
	DateRange         DateRange          `json:"date_range"`
	UniqueCustomers   int                `json:"unique_customers"`
	UniqueProducts    int                `json:"unique_products"`
	UniqueCountries   int                `json:"unique_countries"`
	TotalRevenue      float64            `json:"total_revenue"`
	AverageOrderValue float64            `json:"average_order_value"`
	ValidationPassed  bool               `json:"validation_passed"`
	Checks            map[string]bool    `json:"checks"`
	Coverage          map[string]float64 `json:"calendar_coverage,omitempty"`
	QualityScore      float64            `json:"quality_score"`
	Violations        map[string]int     `json:"violations,omitempty"`
	Error             string             `json:"error,omitempty"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// transactionColumns is the column count of contracts.Transaction as exported
const transactionColumns = 11

// Check validates a loaded table
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(table *contracts.TransactionTable) *ValidationReport {
	report := &ValidationReport{
		TotalRows:    table.Len(),
		TotalColumns: transactionColumns,
		Checks: map[string]bool{
			CheckNoMissingValues:    true,
			CheckQuantitiesPositive: true,
			CheckPricesPositive:     true,
			CheckCustomerIDInteger:  true,
		},
		GeneratedAt: time.Now().UTC(),
	}

	if table.Len() > 0 {
		report.DateRange = DateRange{
			Start: table.MinDate().Format("2006-01-02 15:04:05"),
			End:   table.MaxDate().Format("2006-01-02 15:04:05"),
		}
	}

	products := make(map[string]struct{})
	countries := make(map[string]struct{})
	invoices := make(map[string]decimal.Decimal)
	revenue := decimal.Zero

	for _, tx := range table.Rows {
		products[tx.StockCode] = struct{}{}
		countries[tx.Country] = struct{}{}

		line := tx.LineTotal()
		revenue = revenue.Add(line)
		invoices[tx.InvoiceNo] = invoices[tx.InvoiceNo].Add(line)

		if tx.Quantity <= 0 {
			report.Checks[CheckQuantitiesPositive] = false
		}
		if !tx.UnitPrice.IsPositive() {
			report.Checks[CheckPricesPositive] = false
		}
		if tx.CustomerID == "" || tx.Country == "" {
			report.Checks[CheckNoMissingValues] = false
		}
		if _, err := strconv.ParseInt(tx.CustomerID, 10, 64); err != nil {
			report.Checks[CheckCustomerIDInteger] = false
		}
	}

	report.UniqueCustomers = len(table.CustomerSet())
	report.UniqueProducts = len(products)
	report.UniqueCountries = len(countries)
	report.TotalRevenue = revenue.InexactFloat64()
	if len(invoices) > 0 {
		report.AverageOrderValue = revenue.Div(decimal.NewFromInt(int64(len(invoices)))).InexactFloat64()
	}

	report.Coverage = g.checkCoverage(table)
	report.QualityScore = g.calculateScore(report.Coverage)
	report.ValidationPassed = g.passed(report)

	return report
}

// FromError builds a failed report for a table that could not be loaded
func (g *QualityGate) FromError(err error) *ValidationReport {
	report := &ValidationReport{
		Checks: map[string]bool{
			CheckNoMissingValues:    true,
			CheckQuantitiesPositive: true,
			CheckPricesPositive:     true,
			CheckCustomerIDInteger:  true,
		},
		Error:       err.Error(),
		GeneratedAt: time.Now().UTC(),
	}

	var cerr *s0_data.ContractError
	if !errors.As(err, &cerr) {
		return report
	}

	if len(cerr.MissingColumns) > 0 {
		report.Checks[CheckNoMissingValues] = false
	}
	report.Violations = cerr.Violations
	for col := range cerr.Violations {
		switch col {
		case s0_data.ColQuantity:
			report.Checks[CheckQuantitiesPositive] = false
		case s0_data.ColUnitPrice:
			report.Checks[CheckPricesPositive] = false
		default:
			report.Checks[CheckNoMissingValues] = false
		}
	}
	return report
}

// checkCoverage returns, per upstream calendar column, the share of rows
// that agree with InvoiceDate
func (g *QualityGate) checkCoverage(table *contracts.TransactionTable) map[string]float64 {
	coverage := map[string]float64{
		"year":        1.0,
		"month":       1.0,
		"day_of_week": 1.0,
		"hour":        1.0,
	}
	n := table.Len()
	if n == 0 {
		return coverage
	}

	var year, month, dow, hour int
	for _, tx := range table.Rows {
		ts := tx.InvoiceDate
		if tx.Year == ts.Year() {
			year++
		}
		if tx.Month == int(ts.Month()) {
			month++
		}
		if tx.DayOfWeek == contracts.MondayFirstWeekday(ts) {
			dow++
		}
		if tx.Hour == ts.Hour() {
			hour++
		}
	}

	coverage["year"] = float64(year) / float64(n)
	coverage["month"] = float64(month) / float64(n)
	coverage["day_of_week"] = float64(dow) / float64(n)
	coverage["hour"] = float64(hour) / float64(n)
	return coverage
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0): PreferredDayOfWeek / PreferredHour 입력
	weights := map[string]float64{
		"day_of_week": 0.35,
		"hour":        0.35,
		"month":       0.15,
		"year":        0.15,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}

func (g *QualityGate) passed(report *ValidationReport) bool {
	for name, ok := range report.Checks {
		if name == CheckCustomerIDInteger && !g.config.RequireIntegerCustomerID {
			continue
		}
		if !ok {
			return false
		}
	}
	return report.QualityScore >= g.config.MinQualityScore
}

// WriteReport writes the report as indented JSON, creating the directory
func WriteReport(path string, report *ValidationReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
