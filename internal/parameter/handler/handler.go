package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"refunds/internal/parameter/models"
	"refunds/internal/parameter/service"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/platform/httputil"
	"refunds/pkg/requestcontext"
)

// Service resolves parameters for a merchant.
type Service interface {
	ResolveForMerchant(ctx context.Context, name, merchantID string) (*models.Resolution, error)
}

// Handler exposes parameter resolution for operators and downstream services.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts parameter endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/parameters/{name}", h.HandleResolve)
}

// HandleResolve handles GET /parameters/{name}?merchant_id=...[&as_of=RFC3339].
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	merchantID := strings.TrimSpace(r.URL.Query().Get("merchant_id"))

	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "as_of must be RFC3339"))
			return
		}
		ctx = requestcontext.WithTime(ctx, asOf)
	}

	res, err := h.service.ResolveForMerchant(ctx, name, merchantID)
	if errors.Is(err, service.ErrParameterNotFound) {
		err = dErrors.Wrap(err, dErrors.CodeNotFound, "parameter "+name+" is not defined for this merchant")
	}
	if err != nil {
		h.logger.WarnContext(ctx, "parameter resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"name", name,
			"merchant_id", merchantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResolution(res))
}
