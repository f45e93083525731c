package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wonny/churnlab/internal/brain"
	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/pipelineconfig"
	"github.com/wonny/churnlab/internal/s0_data"
	"github.com/wonny/churnlab/internal/s1_window"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/pkg/logger"
	"github.com/wonny/churnlab/pkg/redis"
)

// PipelineRunner is the part of brain.Orchestrator the handler needs
type PipelineRunner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// PipelineHandler triggers feature rebuilds
type PipelineHandler struct {
	runner    PipelineRunner
	config    *pipelineconfig.Config
	inputPath string
	store     s4_table.Store
	cache     *redis.Cache
	logger    *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(
	runner PipelineRunner,
	cfg *pipelineconfig.Config,
	inputPath string,
	store s4_table.Store,
	cache *redis.Cache,
	log *logger.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		runner:    runner,
		config:    cfg,
		inputPath: inputPath,
		store:     store,
		cache:     cache,
		logger:    log,
	}
}

// RunRequest optionally overrides the configured window
type RunRequest struct {
	HorizonDays int    `json:"horizon_days,omitempty"`
	Cutoff      string `json:"cutoff,omitempty"` // YYYY-MM-DD
}

// RunResponse summarizes a finished run
type RunResponse struct {
	RunID           string           `json:"run_id"`
	Customers       int              `json:"customers"`
	ChurnRate       float64          `json:"churn_rate"`
	Window          contracts.Window `json:"window"`
	CompletedStages []string         `json:"completed_stages"`
	Outputs         []string         `json:"outputs"`
	DurationMs      int64            `json:"duration_ms"`
}

// Run executes the pipeline synchronously
// POST /api/pipeline/run
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := h.config.WithOverrides(req.HorizonDays, req.Cutoff)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	runCfg, err := brain.RunConfigFor(cfg, h.inputPath)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 이전 run의 캐시 키 정리 대상
	previous, prevErr := h.store.LatestManifest(ctx)

	h.logger.WithFields(map[string]interface{}{
		"horizon": runCfg.Window.HorizonDays,
		"cutoff":  req.Cutoff,
	}).Info("Pipeline run triggered")

	result, err := h.runner.Run(ctx, runCfg)
	if err != nil {
		h.runError(w, err)
		return
	}

	if prevErr == nil && previous.RunID != result.RunID {
		if err := h.cache.DeletePrefix(ctx, redis.RunKeyPrefix(previous.RunID)); err != nil {
			h.logger.WithError(err).Warn("Failed to evict previous run cache")
		}
	}

	respondJSON(w, http.StatusOK, RunResponse{
		RunID:           result.RunID,
		Customers:       result.Table.Count(),
		ChurnRate:       result.Table.ChurnRate(),
		Window:          result.Window,
		CompletedStages: result.CompletedStages,
		Outputs:         result.Outputs,
		DurationMs:      result.Duration.Round(time.Millisecond).Milliseconds(),
	})
}

func (h *PipelineHandler) runError(w http.ResponseWriter, err error) {
	var (
		contractErr     *s0_data.ContractError
		preconditionErr *s1_window.PreconditionError
	)
	switch {
	case errors.Is(err, brain.ErrRunInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &contractErr), errors.As(err, &preconditionErr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).Error("Pipeline run failed")
		respondError(w, http.StatusInternalServerError, "Pipeline run failed")
	}
}
