package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	cmodels "refunds/internal/compliance/models"
	"refunds/internal/refund/models"
	"refunds/pkg/platform/httputil"
	"refunds/pkg/requestcontext"
)

// Service defines the refund operations exposed over HTTP.
type Service interface {
	ValidateMethod(ctx context.Context, req models.ValidationRequest) (*models.ValidationOutcome, error)
	SelectRefundMethod(ctx context.Context, req models.ValidationRequest) (*models.Selection, error)
	EvaluateCompliance(ctx context.Context, c *cmodels.Context) (*cmodels.Result, error)
}

// Handler wires refund and compliance endpoints to the validator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts refund endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/compliance/evaluate", h.HandleEvaluate)
	r.Post("/refunds/validate-method", h.HandleValidateMethod)
	r.Post("/refunds/select-method", h.HandleSelectMethod)
}

// HandleEvaluate handles POST /compliance/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, err := httputil.DecodeJSON[EvaluateRequest](r)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.EvaluateCompliance(ctx, req.toContext())
	if err != nil {
		h.fail(ctx, w, "compliance evaluation failed", req.MerchantID, err)
		return
	}

	h.logger.InfoContext(ctx, "compliance evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"merchant_id", req.MerchantID,
		"compliant", result.Compliant,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleValidateMethod handles POST /refunds/validate-method. Every decision,
// including REJECT, is a 200.
func (h *Handler) HandleValidateMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[RefundRequest](r)
	if err == nil {
		err = req.Validate(true)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.ValidateMethod(ctx, req.toModel())
	if err != nil {
		h.fail(ctx, w, "refund method validation failed", req.MerchantID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOutcome(outcome))
}

// HandleSelectMethod handles POST /refunds/select-method.
func (h *Handler) HandleSelectMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[RefundRequest](r)
	if err == nil {
		err = req.Validate(false)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	selection, err := h.service.SelectRefundMethod(ctx, req.toModel())
	if err != nil {
		h.fail(ctx, w, "refund method selection failed", req.MerchantID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSelection(selection))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, merchantID string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"merchant_id", merchantID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
