package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/pkg/httputil"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "실행 중인 API의 최신 run 조회",
	Long: `실행 중인 API 서버에서 최신 run manifest와 피처 메타데이터를 조회합니다.

Example:
  go run ./cmd/churn status
  go run ./cmd/churn status --url http://localhost:8089`,
	RunE: runStatus,
}

var (
	statusURL     string
	statusTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusURL, "url", "", "API 주소 (기본: http://localhost:PORT)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "요청 타임아웃")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	baseURL := statusURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Port
	}

	client := httputil.New(baseURL, log).WithTimeout(statusTimeout).WithRetry(2, 500*time.Millisecond)
	ctx := context.Background()

	var manifest contracts.RunManifest
	if err := client.GetJSON(ctx, "/api/runs/latest", &manifest); err != nil {
		return fmt.Errorf("latest run: %w", err)
	}
	var meta contracts.FeatureMetadata
	if err := client.GetJSON(ctx, "/api/features/metadata", &meta); err != nil {
		return fmt.Errorf("feature metadata: %w", err)
	}

	fmt.Println("=== churnlab Status ===")
	PrintDoubleSeparator()
	fmt.Printf("  API         : %s\n", baseURL)
	fmt.Printf("  Run ID      : %s\n", manifest.RunID)
	fmt.Printf("  Finished    : %s\n", manifest.FinishedAt.Format(time.RFC3339))
	fmt.Printf("  Config hash : %s\n", manifest.ConfigHash)
	PrintSeparator()
	printWindow(manifest.Window)
	fmt.Printf("  Customers   : %d\n", meta.TotalCustomers)
	fmt.Printf("  Features    : %d\n", meta.TotalFeatures)
	fmt.Printf("  Churn rate  : %.2f%%\n", meta.ChurnRate*100)
	PrintDoubleSeparator()
	return nil
}
