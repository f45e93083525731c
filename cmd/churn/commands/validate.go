package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/s0_data"
	"github.com/wonny/churnlab/internal/s0_data/quality"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "입력 거래 로그 검증",
	Long: `입력 CSV의 계약(필수 컬럼, 값 범위)과 품질을 검사하고
validation_report.json을 작성합니다.

검사 항목:
- 필수 컬럼 존재
- CustomerID 결측, Quantity/UnitPrice 양수
- 캘린더 필드(Year/Month/DayOfWeek/Hour)와 InvoiceDate 일치율

Example:
  go run ./cmd/churn validate
  go run ./cmd/churn validate --input data/processed/cleaned_transactions.csv`,
	RunE: runValidate,
}

var (
	validateInput  string
	validateReport string
	validateMin    float64
)

func init() {
	rootCmd.AddCommand(validateCmd)

	// Flags
	validateCmd.Flags().StringVar(&validateInput, "input", "", "입력 CSV (기본: CHURN_INPUT_PATH)")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "리포트 경로 (기본: CHURN_OUTPUT_DIR/validation_report.json)")
	validateCmd.Flags().Float64Var(&validateMin, "min-score", quality.DefaultConfig().MinQualityScore, "최소 품질 점수")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Println("=== churnlab Input Validation ===")

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if validateInput != "" {
		cfg.Pipeline.InputPath = validateInput
	}
	reportPath := validateReport
	if reportPath == "" {
		reportPath = filepath.Join(cfg.Pipeline.OutputDir, "validation_report.json")
	}

	gateCfg := quality.DefaultConfig()
	gateCfg.MinQualityScore = validateMin
	gate := quality.NewQualityGate(gateCfg)

	table, loadErr := s0_data.NewCSVLoader(cfg.Pipeline.InputPath, log).Load(context.Background())

	var report *quality.ValidationReport
	if loadErr != nil {
		report = gate.FromError(loadErr)
	} else {
		report = gate.Check(table)
	}

	if err := quality.WriteReport(reportPath, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Input       : %s\n", cfg.Pipeline.InputPath)
	fmt.Printf("  Rows        : %d\n", report.TotalRows)
	fmt.Printf("  Customers   : %d\n", report.UniqueCustomers)
	fmt.Printf("  Quality     : %.4f (min %.2f)\n", report.QualityScore, gateCfg.MinQualityScore)
	PrintSeparator()
	fmt.Printf("  → %s\n", reportPath)
	PrintDoubleSeparator()

	if loadErr != nil {
		PrintError(loadErr.Error())
		return loadErr
	}
	if !report.ValidationPassed {
		PrintWarning("quality gate not passed")
		return fmt.Errorf("quality score %.4f below %.2f", report.QualityScore, gateCfg.MinQualityScore)
	}
	PrintSuccess("validation passed")
	return nil
}
