package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/churnlab/internal/brain"
	"github.com/wonny/churnlab/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintRunSummary prints the outcome of one pipeline run
func PrintRunSummary(result *brain.RunResult) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Run ID      : %s\n", result.RunID)
	fmt.Printf("  Stages      : %s\n", strings.Join(result.CompletedStages, " → "))
	PrintSeparator()
	printWindow(result.Window)
	if result.Table != nil {
		fmt.Printf("  Customers   : %d\n", result.Table.Count())
		fmt.Printf("  Features    : %d\n", len(result.Table.Columns))
		fmt.Printf("  Churn rate  : %.2f%%\n", result.Table.ChurnRate()*100)
	}
	if result.Manifest != nil {
		for _, w := range result.Manifest.Warnings {
			PrintWarning(w)
		}
		for _, metric := range result.Manifest.Fallbacks {
			PrintWarning("rank-based quartiles used for " + metric)
		}
	}
	PrintSeparator()
	for _, out := range result.Outputs {
		fmt.Printf("  → %s\n", out)
	}
	fmt.Printf("  Duration    : %s\n", result.Duration.Round(time.Millisecond))
	PrintDoubleSeparator()
}

func printWindow(w contracts.Window) {
	const layout = "2006-01-02 15:04:05"
	fmt.Printf("  Cutoff      : %s\n", w.Cutoff.Format(layout))
	fmt.Printf("  Obs. end    : %s\n", w.ObservationEnd.Format(layout))
	fmt.Printf("  Rows        : training=%d observation=%d\n", w.TrainingRows, w.ObservationRows)
}
