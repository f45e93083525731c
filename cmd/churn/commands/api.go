package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/churnlab/internal/api"
	"github.com/wonny/churnlab/internal/api/handlers"
	"github.com/wonny/churnlab/internal/brain"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/internal/scheduler"
	"github.com/wonny/churnlab/internal/scheduler/jobs"
	"github.com/wonny/churnlab/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `최신 피처 테이블을 제공하는 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/features/metadata           - feature_info.json
  GET  /api/features/customers/{id}     - 고객 피처 레코드 (Redis 캐시)
  GET  /api/runs/latest                 - 최신 run manifest
  POST /api/pipeline/run                - 피처 테이블 재생성
  GET  /api/scheduler/jobs              - 스케줄 작업 통계 (--with-scheduler)

Example:
  go run ./cmd/churn api
  go run ./cmd/churn api --port 8080 --store postgres
  go run ./cmd/churn api --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiStore         string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().StringVar(&apiStore, "store", kindCSV, "피처 조회 저장소 (csv|postgres)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스케줄 재생성 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== churnlab API Server ===")

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}
	if err := checkKind("store", apiStore, kindCSV, kindPostgres); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pcfg, err := loadPipeline(cfg, log)
	if err != nil {
		return err
	}

	// 조회 저장소와 같은 곳에 재생성 결과를 씀
	p, err := newPipeline(ctx, cfg, pcfg, kindCSV, apiStore, log)
	if err != nil {
		return err
	}
	defer p.Close()

	var store s4_table.Store
	if apiStore == kindPostgres {
		store = s4_table.NewFeatureRepository(p.db.Pool, log)
	} else {
		store = s4_table.NewFileStore(cfg.Pipeline.OutputDir, brain.FileNames(pcfg))
	}

	redisClient, err := redis.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "churnlab")

	h := api.Handlers{
		Features: handlers.NewFeatureHandler(store, cache, log),
		Pipeline: handlers.NewPipelineHandler(p.orchestrator, pcfg, cfg.Pipeline.InputPath, store, cache, log),
	}

	if apiWithScheduler {
		runCfg, err := brain.RunConfigFor(pcfg, cfg.Pipeline.InputPath)
		if err != nil {
			return err
		}
		sched := scheduler.New(log, scheduler.DefaultOptions())
		if err := sched.AddJob(jobs.NewFeatureBuildJob(p.orchestrator, runCfg, cfg.Pipeline.Schedule, log)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		h.Scheduler = handlers.NewSchedulerHandler(sched)
	}

	router := api.NewRouter(h, api.NewLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst), log)
	server := api.New(cfg, log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s (store=%s, redis=%v)\n", cfg.Port, apiStore, redisClient.Enabled())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
