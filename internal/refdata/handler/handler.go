// Package handler exposes reference-data lookups for pick-list rendering.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodyprofile/internal/platform/metrics"
	"custodyprofile/internal/platform/middleware"
	"custodyprofile/internal/refdata"
	"custodyprofile/pkg/platform/httputil"
)

// Service answers domain code lookups.
type Service interface {
	CodesForDomain(ctx context.Context, domain string) ([]refdata.Code, error)
}

type Handler struct {
	logger       *slog.Logger
	codes        Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(codes Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		codes:        codes,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(10 * time.Second))
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Get("/reference-data/domains/{domain}/codes", h.handleListCodes)

	r.Mount("/", router)
}

func (h *Handler) handleListCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	codes, err := h.codes.CodesForDomain(ctx, domain)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list reference codes",
			"domain", domain,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, codes)
}
