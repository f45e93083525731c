package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/brain"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "피처 테이블 생성",
	Long: `정제된 거래 로그로부터 고객별 피처 테이블을 생성합니다.

출력 (CHURN_OUTPUT_DIR):
- customer_features.csv  고객별 피처 + Churn 라벨
- feature_info.json      고객 수, 피처 수, 이탈률, 피처 목록
- run_manifest.json      run_id, 설정 해시, window, 경고

Flags:
  --source         csv | postgres (기본: csv)
  --sink           csv | postgres | both (기본: csv)
  --horizon-days   관측 구간 일수 (YAML window 대체)
  --cutoff         고정 cutoff 날짜 YYYY-MM-DD (YAML window 대체)

Example:
  go run ./cmd/churn build
  go run ./cmd/churn build --horizon-days 120
  go run ./cmd/churn build --cutoff 2011-09-09 --sink both
  go run ./cmd/churn build --config config/pipeline/churn_120d.yaml`,
	RunE: runBuild,
}

var (
	buildSource      string
	buildSink        string
	buildInput       string
	buildOutput      string
	buildHorizonDays int
	buildCutoff      string
	buildRunID       string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	// Flags
	buildCmd.Flags().StringVar(&buildSource, "source", kindCSV, "거래 데이터 소스 (csv|postgres)")
	buildCmd.Flags().StringVar(&buildSink, "sink", kindCSV, "피처 테이블 저장소 (csv|postgres|both)")
	buildCmd.Flags().StringVar(&buildInput, "input", "", "입력 CSV (기본: CHURN_INPUT_PATH)")
	buildCmd.Flags().StringVar(&buildOutput, "output", "", "출력 디렉터리 (기본: CHURN_OUTPUT_DIR)")
	buildCmd.Flags().IntVar(&buildHorizonDays, "horizon-days", 0, "관측 구간 일수")
	buildCmd.Flags().StringVar(&buildCutoff, "cutoff", "", "고정 cutoff 날짜 (YYYY-MM-DD)")
	buildCmd.Flags().StringVar(&buildRunID, "run-id", "", "run id (기본: uuid 생성)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	fmt.Println("=== churnlab Feature Build ===")

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if buildInput != "" {
		cfg.Pipeline.InputPath = buildInput
	}
	if buildOutput != "" {
		cfg.Pipeline.OutputDir = buildOutput
	}

	pcfg, err := loadPipeline(cfg, log)
	if err != nil {
		return err
	}
	pcfg, err = pcfg.WithOverrides(buildHorizonDays, buildCutoff)
	if err != nil {
		return fmt.Errorf("window override: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, pcfg, buildSource, buildSink, log)
	if err != nil {
		return err
	}
	defer p.Close()

	inputPath := cfg.Pipeline.InputPath
	if buildSource == kindPostgres {
		inputPath = "postgres:retail.transactions"
	}
	runCfg, err := brain.RunConfigFor(pcfg, inputPath)
	if err != nil {
		return err
	}
	runCfg.RunID = buildRunID

	result, err := p.orchestrator.Run(ctx, runCfg)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintRunSummary(result)
	return nil
}
