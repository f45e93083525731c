package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/s0_data/quality"
	"github.com/wonny/churnlab/pkg/logger"
)

// Stage names recorded in CompletedStages
const (
	StageLoad     = "S0:Load"
	StageQuality  = "S0:Quality"
	StageSplit    = "S1:Split"
	StageLabel    = "S1:Label"
	StageFeatures = "S2:Features"
	StageSegment  = "S3:Segment"
	StageAssemble = "S4:Assemble"
	StageSink     = "S4:Sink"
)

// ErrRunInProgress is returned when another run holds the orchestrator
var ErrRunInProgress = errors.New("pipeline run already in progress")

// ManifestWriter persists the run manifest after every sink succeeded
type ManifestWriter interface {
	WriteManifest(manifest *contracts.RunManifest) (string, error)
}

// Stages bundles the pipeline components
type Stages struct {
	Source    contracts.TransactionSource
	Quality   *quality.QualityGate // nil = 품질 리포트 생략
	Splitter  contracts.Splitter
	Labeler   contracts.Labeler
	Features  contracts.FeatureBuilder
	Segmenter contracts.Segmenter
	Assembler contracts.Assembler
	Sinks     []contracts.FeatureSink
	Manifest  ManifestWriter // nil = manifest 파일 없음
}

// Orchestrator coordinates the staged feature pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	stages Stages
	mu     sync.Mutex
	logger *logger.Logger
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	RunID      string // 비어 있으면 uuid 생성
	Window     contracts.WindowSpec
	ConfigHash string
	InputPath  string
	Warnings   []string // 설정 경고 (manifest 기록용)
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string
	Success         bool
	Error           error
	CompletedStages []string
	Quality         *quality.ValidationReport
	Window          contracts.Window
	Table           *contracts.FeatureTable
	Manifest        *contracts.RunManifest
	Outputs         []string
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(stages Stages, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		stages: stages,
		logger: log.WithField("module", "brain"),
	}
}

// Run executes S0 → S1 → S2 → S3 → S4.
// 어느 단계든 실패하면 sink 이전에 중단, sink/manifest 실패 시 앞선 sink 기록을 되돌림
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.mu.Unlock()

	startTime := time.Now()
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}

	result := &RunResult{
		RunID:           config.RunID,
		CompletedStages: make([]string, 0, 8),
	}
	log := o.logger.WithRun(config.RunID)

	fail := func(stage string, err error) (*RunResult, error) {
		result.Error = fmt.Errorf("%s failed: %w", stage, err)
		result.Duration = time.Since(startTime)
		log.WithError(err).WithField("stage", stage).Error("Pipeline run failed")
		return result, result.Error
	}

	log.WithFields(map[string]interface{}{
		"input":       config.InputPath,
		"horizon":     config.Window.HorizonDays,
		"config_hash": config.ConfigHash,
	}).Info("Starting pipeline run")

	// S0: 입력 로드 + 계약 검사
	table, err := o.stages.Source.Load(ctx)
	if err != nil {
		return fail(StageLoad, err)
	}
	result.CompletedStages = append(result.CompletedStages, StageLoad)

	warnings := append([]string(nil), config.Warnings...)
	if o.stages.Quality != nil {
		report := o.stages.Quality.Check(table)
		result.Quality = report
		if !report.ValidationPassed {
			warnings = append(warnings, fmt.Sprintf("input quality below threshold: score=%.4f", report.QualityScore))
			log.WithField("quality_score", report.QualityScore).Warn("Input quality gate not passed")
		}
		result.CompletedStages = append(result.CompletedStages, StageQuality)
	}

	// S1: 분할 + 라벨
	split, err := o.stages.Splitter.Split(ctx, table, config.Window)
	if err != nil {
		return fail(StageSplit, err)
	}
	result.Window = split.Window
	result.CompletedStages = append(result.CompletedStages, StageSplit)

	base, err := o.stages.Labeler.Label(ctx, split)
	if err != nil {
		return fail(StageLabel, err)
	}
	result.CompletedStages = append(result.CompletedStages, StageLabel)

	// S2: 피처 집계
	features, err := o.stages.Features.Build(ctx, split, base)
	if err != nil {
		return fail(StageFeatures, err)
	}
	result.CompletedStages = append(result.CompletedStages, StageFeatures)

	// S3: RFM 세분화
	segments, err := o.stages.Segmenter.Segment(ctx, base, features.RFM)
	if err != nil {
		return fail(StageSegment, err)
	}
	result.CompletedStages = append(result.CompletedStages, StageSegment)

	// S4: 조립
	featureTable, err := o.stages.Assembler.Assemble(ctx, base, features, segments)
	if err != nil {
		return fail(StageAssemble, err)
	}
	result.Table = featureTable
	result.CompletedStages = append(result.CompletedStages, StageAssemble)

	manifest := &contracts.RunManifest{
		RunID:      config.RunID,
		ConfigHash: config.ConfigHash,
		InputPath:  config.InputPath,
		Window:     split.Window,
		Customers:  featureTable.Count(),
		ChurnRate:  featureTable.ChurnRate(),
		Fallbacks:  segments.Fallbacks,
		Warnings:   warnings,
		StartedAt:  startTime.UTC(),
	}

	for i, sink := range o.stages.Sinks {
		outputs, err := sink.Write(ctx, featureTable, manifest)
		if err != nil {
			o.discard(ctx, log, o.stages.Sinks[:i], manifest)
			return fail(fmt.Sprintf("%s(%s)", StageSink, sink.Name()), err)
		}
		result.Outputs = append(result.Outputs, outputs...)
	}
	if len(o.stages.Sinks) > 0 {
		result.CompletedStages = append(result.CompletedStages, StageSink)
	}

	manifest.CompletedStages = append([]string(nil), result.CompletedStages...)
	manifest.FinishedAt = time.Now().UTC()
	manifest.Outputs = append([]string(nil), result.Outputs...)

	if o.stages.Manifest != nil {
		path, err := o.stages.Manifest.WriteManifest(manifest)
		if err != nil {
			o.discard(ctx, log, o.stages.Sinks, manifest)
			return fail("manifest", err)
		}
		result.Outputs = append(result.Outputs, path)
	}

	result.Manifest = manifest
	result.Success = true
	result.Duration = time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"customers":  featureTable.Count(),
		"columns":    len(featureTable.Columns),
		"churn_rate": featureTable.ChurnRate(),
		"duration":   result.Duration.String(),
	}).Info("Pipeline run completed")

	return result, nil
}

// discard undoes the writes of sinks that already succeeded, newest first.
// 실패한 실행은 이전 실행의 산출물을 그대로 남겨야 함
func (o *Orchestrator) discard(ctx context.Context, log *logger.Logger, sinks []contracts.FeatureSink, manifest *contracts.RunManifest) {
	ctx = context.WithoutCancel(ctx)
	for i := len(sinks) - 1; i >= 0; i-- {
		d, ok := sinks[i].(contracts.DiscardableSink)
		if !ok {
			continue
		}
		if err := d.Discard(ctx, manifest); err != nil {
			log.WithError(err).WithField("sink", sinks[i].Name()).Warn("Failed to discard sink output")
		}
	}
}
