package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/pkg/logger"
	"github.com/wonny/churnlab/pkg/redis"
)

// FeatureHandler serves the latest finished feature table
// ⭐ SSOT: 피처 조회 API 핸들러는 여기서만
type FeatureHandler struct {
	store  s4_table.Store
	cache  *redis.Cache
	logger *logger.Logger
}

// NewFeatureHandler creates a new feature handler
func NewFeatureHandler(store s4_table.Store, cache *redis.Cache, log *logger.Logger) *FeatureHandler {
	return &FeatureHandler{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// GetMetadata returns feature_info.json of the latest run
// GET /api/features/metadata
func (h *FeatureHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Metadata(r.Context())
	if err != nil {
		h.storeError(w, err, "feature metadata")
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// GetLatestRun returns the manifest of the latest run
// GET /api/runs/latest
func (h *FeatureHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	manifest, err := h.store.LatestManifest(r.Context())
	if err != nil {
		h.storeError(w, err, "run manifest")
		return
	}
	respondJSON(w, http.StatusOK, manifest)
}

// GetCustomer returns one customer's feature record.
// GET /api/features/customers/{id}
// 캐시 키는 run_id 기준 (재실행 시 자동으로 새 키)
func (h *FeatureHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		respondError(w, http.StatusBadRequest, "customer id is required")
		return
	}

	manifest, err := h.store.LatestManifest(ctx)
	if err != nil {
		h.storeError(w, err, "run manifest")
		return
	}

	var record contracts.CustomerFeatures
	err = h.cache.GetOrSet(ctx, redis.CustomerFeaturesKey(manifest.RunID, id), &record, redis.TTLFeatures,
		func() (interface{}, error) {
			return h.store.Customer(ctx, id)
		})
	if err != nil {
		h.storeError(w, err, "customer "+id)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

func (h *FeatureHandler) storeError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, s4_table.ErrNotFound) {
		respondError(w, http.StatusNotFound, what+" not found")
		return
	}
	h.logger.WithError(err).Error("Failed to read " + what)
	respondError(w, http.StatusInternalServerError, "Failed to read "+what)
}
