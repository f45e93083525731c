package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/brain"
	"github.com/wonny/churnlab/internal/scheduler"
	"github.com/wonny/churnlab/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `피처 테이블 재생성을 cron 스케줄로 실행합니다.

Subcommands:
  start   - 스케줄러 시작 (CHURN_SCHEDULE, 초 단위 cron)
  run     - 작업 즉시 실행 (재시도 포함)

Example:
  go run ./cmd/churn scheduler start
  go run ./cmd/churn scheduler run feature_build`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runSchedulerStart,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerSink string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerSink, "sink", kindCSV, "피처 테이블 저장소 (csv|postgres|both)")
}

// initScheduler wires the feature pipeline into a scheduler with its jobs
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *pipeline, error) {
	cfg, log, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	pcfg, err := loadPipeline(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	p, err := newPipeline(ctx, cfg, pcfg, kindCSV, schedulerSink, log)
	if err != nil {
		return nil, nil, err
	}

	runCfg, err := brain.RunConfigFor(pcfg, cfg.Pipeline.InputPath)
	if err != nil {
		p.Close()
		return nil, nil, err
	}

	sched := scheduler.New(log, scheduler.DefaultOptions())
	if err := sched.AddJob(jobs.NewFeatureBuildJob(p.orchestrator, runCfg, cfg.Pipeline.Schedule, log)); err != nil {
		p.Close()
		return nil, nil, err
	}
	return sched, p, nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== churnlab Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, p, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer p.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for name, stats := range sched.GetJobStats() {
		next := "-"
		if stats.NextRun != nil {
			next = stats.NextRun.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  - %s (%s, next %s)\n", name, stats.Schedule, next)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	sched, p, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer p.Close()

	result, err := sched.RunJob(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Job %s: attempts=%d duration=%s\n", result.JobName, result.Attempts, result.Duration)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", result.JobName)
	}
	PrintSuccess("job completed")
	return nil
}
