package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/pipelineconfig"
	"github.com/wonny/churnlab/pkg/config"
	"github.com/wonny/churnlab/pkg/logger"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "churn",
	Short: "churnlab - 고객 이탈 피처 파이프라인",
	Long: `churnlab Unified CLI

정제된 거래 로그에서 고객별 이탈 라벨과 피처 테이블을 만듭니다.
S0 입력 계약 → S1 시간 분할/라벨 → S2 피처 집계 → S3 RFM 세분화 → S4 테이블 출력.

Usage:
  go run ./cmd/churn [command]

Examples:
  go run ./cmd/churn build
  go run ./cmd/churn build --horizon-days 120
  go run ./cmd/churn validate
  go run ./cmd/churn api
  go run ./cmd/churn test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "pipeline YAML (default: CHURN_PIPELINE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production|test)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// bootstrap loads env config and creates the logger, applying global flags
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if configFile != "" {
		cfg.Pipeline.ConfigPath = configFile
	}
	return cfg, logger.New(cfg), nil
}

// loadPipeline reads the pipeline YAML and logs soft warnings
func loadPipeline(cfg *config.Config, log *logger.Logger) (*pipelineconfig.Config, error) {
	pcfg, data, err := pipelineconfig.Load(cfg.Pipeline.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load pipeline config %s: %w", cfg.Pipeline.ConfigPath, err)
	}

	log.WithFields(map[string]interface{}{
		"path":        cfg.Pipeline.ConfigPath,
		"pipeline_id": pcfg.Meta.PipelineID,
		"bytes":       len(data),
	}).Debug("Pipeline config loaded")

	for _, w := range pipelineconfig.Warn(pcfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	return pcfg, nil
}
