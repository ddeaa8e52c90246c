// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/promptmatch/internal/app"
	"github.com/okian/promptmatch/internal/domain/model"
	"github.com/okian/promptmatch/internal/domain/types"
	"github.com/okian/promptmatch/pkg/logger"
)

// maxBodyBytes bounds request bodies. Two base64 images near the decoded
// limit fit comfortably.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Score(ctx context.Context, req model.ScoreRequest) (types.ScoreResult, error)
	Seal(ctx context.Context, text string) (string, error)
	Reveal(ctx context.Context, tokens []string) []*string
	ClearCache(ctx context.Context) error
	Health(ctx context.Context) service.Health
	GetStats(ctx context.Context) service.Stats
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	scoreHandler  *ScoreHandler
	sealHandler   *SealHandler
	cacheHandler  *CacheHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		scoreHandler:  NewScoreHandler(deps),
		sealHandler:   NewSealHandler(deps),
		cacheHandler:  NewCacheHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))
	mux.HandleFunc("/seal", MetricsMiddleware(s.sealHandler.HandleSeal, "seal"))
	mux.HandleFunc("/reveal", MetricsMiddleware(s.sealHandler.HandleReveal, "reveal"))
	mux.HandleFunc("/cache", MetricsMiddleware(s.cacheHandler.HandleClear, "cache"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_error",
			Message: verr.Reason,
			Field:   verr.Field,
		})
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		logger.Get().Named("api").Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeBody reads a bounded JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return ErrBodyTooLarge
		}
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}
