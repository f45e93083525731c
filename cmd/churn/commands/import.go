package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/s0_data"
	"github.com/wonny/churnlab/pkg/database"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "CSV 거래 로그를 Postgres로 적재",
	Long: `계약 검사를 통과한 CSV 거래 로그를 retail.transactions에 COPY로 적재합니다.
이후 build --source postgres 로 같은 데이터를 읽을 수 있습니다.

Example:
  go run ./cmd/churn import
  go run ./cmd/churn import --input data/processed/cleaned_transactions.csv`,
	RunE: runImport,
}

var importInput string

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importInput, "input", "", "입력 CSV (기본: CHURN_INPUT_PATH)")
}

func runImport(cmd *cobra.Command, args []string) error {
	fmt.Println("=== churnlab Transaction Import ===")

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if importInput != "" {
		cfg.Pipeline.InputPath = importInput
	}

	ctx := context.Background()
	table, err := s0_data.NewCSVLoader(cfg.Pipeline.InputPath, log).Load(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	n, err := s0_data.NewTransactionRepository(db.Pool, log).Import(ctx, table)
	if err != nil {
		return fmt.Errorf("import transactions: %w", err)
	}

	PrintSuccess(fmt.Sprintf("%d rows imported from %s", n, cfg.Pipeline.InputPath))
	return nil
}
