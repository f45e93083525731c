package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/wonny/churnlab/internal/brain"
	"github.com/wonny/churnlab/internal/s0_data"
	"github.com/wonny/churnlab/internal/s1_window"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/internal/scheduler"
	"github.com/wonny/churnlab/pkg/logger"
)

// Runner is the part of brain.Orchestrator the job needs
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// FeatureBuildJob rebuilds the churn feature table on a schedule
// ⭐ SSOT: 피처 테이블 재생성 스케줄은 이 Job에서만
type FeatureBuildJob struct {
	runner   Runner
	config   brain.RunConfig
	schedule string
	logger   *logger.Logger

	mu   sync.RWMutex
	last *brain.RunResult // 마지막 성공 결과
}

// NewFeatureBuildJob creates a new feature build job
func NewFeatureBuildJob(runner Runner, config brain.RunConfig, schedule string, log *logger.Logger) *FeatureBuildJob {
	return &FeatureBuildJob{
		runner:   runner,
		config:   config,
		schedule: schedule,
		logger:   log.WithField("job", "feature_build"),
	}
}

// Name returns the job name
func (j *FeatureBuildJob) Name() string {
	return "feature_build"
}

// Schedule returns the cron schedule (with seconds)
func (j *FeatureBuildJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run with a fresh run id
func (j *FeatureBuildJob) Run(ctx context.Context) error {
	cfg := j.config
	cfg.RunID = ""

	result, err := j.runner.Run(ctx, cfg)
	if err != nil {
		if isDeterministic(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	j.mu.Lock()
	j.last = result
	j.mu.Unlock()

	j.logger.WithFields(map[string]interface{}{
		"run_id":     result.RunID,
		"customers":  result.Table.Count(),
		"churn_rate": result.Table.ChurnRate(),
	}).Info("Scheduled feature build finished")

	return nil
}

// Last returns the most recent successful result (nil before the first run)
func (j *FeatureBuildJob) Last() *brain.RunResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}

// isDeterministic reports failures that an identical retry would repeat
func isDeterministic(err error) bool {
	var (
		contractErr     *s0_data.ContractError
		preconditionErr *s1_window.PreconditionError
		joinErr         *s4_table.JoinError
	)
	return errors.As(err, &contractErr) ||
		errors.As(err, &preconditionErr) ||
		errors.As(err, &joinErr) ||
		errors.Is(err, brain.ErrRunInProgress)
}
