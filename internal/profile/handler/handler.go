// Package handler exposes the custody profile REST surface.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodyprofile/internal/platform/metrics"
	"custodyprofile/internal/platform/middleware"
	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/service"
	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/platform/httputil"
	"custodyprofile/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service is the profile engine surface this transport needs.
type Service interface {
	GetProfile(ctx context.Context, personID string) (*models.PersonRecord, []models.FieldMetadata, error)
	GetFieldHistory(ctx context.Context, personID string, field models.Field) ([]models.HistoryEntry, error)
	Update(ctx context.Context, personID string, updates []service.FieldUpdate) (*models.PersonRecord, error)
	Sync(ctx context.Context, personID string, req service.SyncRequest) ([]int64, error)
	Migrate(ctx context.Context, personID string, req service.MigrationRequest) ([]int64, error)
}

// Handler wires the profile routes.
type Handler struct {
	logger       *slog.Logger
	profile      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(profile Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		profile:      profile,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the profile routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Get("/persons/{personId}", h.handleGetProfile)
	router.Get("/persons/{personId}/field-history/{field}", h.handleGetFieldHistory)
	router.Patch("/persons/{personId}/physical-attributes", h.handleUpdatePhysicalAttributes)
	router.Patch("/persons/{personId}/health", h.handleUpdateHealth)
	router.Put("/sync/persons/{personId}", h.handleSync)
	router.Post("/migration/persons/{personId}", h.handleMigrate)

	r.Mount("/", router)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID := chi.URLParam(r, "personId")

	rec, meta, err := h.profile.GetProfile(ctx, personID)
	if err != nil {
		h.writeServiceError(ctx, w, "get profile", personID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(rec, meta))
}

func (h *Handler) handleGetFieldHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID := chi.URLParam(r, "personId")

	field, err := models.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	entries, err := h.profile.GetFieldHistory(ctx, personID, field)
	if err != nil {
		h.writeServiceError(ctx, w, "get field history", personID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(entries))
}

func (h *Handler) handleUpdatePhysicalAttributes(w http.ResponseWriter, r *http.Request) {
	var req PhysicalAttributesRequest
	h.handleUpdate(w, r, &req, func() ([]service.FieldUpdate, error) { return req.toUpdates() })
}

func (h *Handler) handleUpdateHealth(w http.ResponseWriter, r *http.Request) {
	var req HealthRequest
	h.handleUpdate(w, r, &req, func() ([]service.FieldUpdate, error) { return req.toUpdates() })
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, req any, toUpdates func() ([]service.FieldUpdate, error)) {
	ctx := r.Context()
	personID := chi.URLParam(r, "personId")

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.logger.WarnContext(ctx, "invalid update request",
			"person_id", personID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updates, err := toUpdates()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.profile.Update(ctx, personID, updates)
	if err != nil {
		h.writeServiceError(ctx, w, "update profile", personID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(rec, nil))
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID := chi.URLParam(r, "personId")

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	svcReq, err := req.toServiceRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ids, err := h.profile.Sync(ctx, personID, svcReq)
	if err != nil {
		h.writeServiceError(ctx, w, "sync profile", personID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, createdIDsResponse{EntryIDs: ids})
}

func (h *Handler) handleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID := chi.URLParam(r, "personId")

	var req MigrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	svcReq, err := req.toServiceRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ids, err := h.profile.Migrate(ctx, personID, svcReq)
	if err != nil {
		h.writeServiceError(ctx, w, "migrate profile", personID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createdIDsResponse{EntryIDs: ids})
}

// writeServiceError logs infrastructure failures and renders coded errors
// as-is; anything uncoded becomes an opaque internal error.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op, personID string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed",
			"operation", op,
			"person_id", personID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, op+" failed"))
		return
	}
	h.logger.WarnContext(ctx, "request rejected",
		"operation", op,
		"person_id", personID,
		"code", string(code),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}
