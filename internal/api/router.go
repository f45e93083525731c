package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/churnlab/internal/api/handlers"
	"github.com/wonny/churnlab/pkg/logger"
)

// Handlers bundles the endpoint handlers. Pipeline and Scheduler are optional.
type Handlers struct {
	Features  *handlers.FeatureHandler
	Pipeline  *handlers.PipelineHandler
	Scheduler *handlers.SchedulerHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limiter *rate.Limiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(rateLimitMiddleware(limiter, log))
	}

	// Feature endpoints
	api.HandleFunc("/features/metadata", h.Features.GetMetadata).Methods("GET")
	api.HandleFunc("/features/customers/{id}", h.Features.GetCustomer).Methods("GET")
	api.HandleFunc("/runs/latest", h.Features.GetLatestRun).Methods("GET")

	if h.Pipeline != nil {
		api.HandleFunc("/pipeline/run", h.Pipeline.Run).Methods("POST")
	}
	if h.Scheduler != nil {
		api.HandleFunc("/scheduler/jobs", h.Scheduler.GetJobs).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "churnlab-api",
	})
}
