package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/auth"
	"github.com/axoncore/axoncore/internal/ledger"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

type VerifyRequest struct {
	PaymentID      string `json:"payment_id" validate:"required,max=255"`
	SubscriptionID string `json:"subscription_id" validate:"required,max=255"`
	Signature      string `json:"signature" validate:"max=512"`
}

// Outcome is the body of a successful verify or cancel.
type Outcome struct {
	Success bool        `json:"success"`
	Account ledger.View `json:"account"`
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrActiveSubscription), errors.Is(err, ErrNoSubscription):
		api.HandleError(w, api.NewBadRequestError(err.Error()))
	case errors.Is(err, ErrVerification):
		api.HandleError(w, &api.AppError{Code: http.StatusBadRequest, Message: ErrVerification.Error(), Reason: "verification_failed"})
	case errors.Is(err, ErrActionInProgress):
		api.HandleError(w, api.NewConflictError(err.Error()))
	case errors.Is(err, ErrProviderUnavailable):
		slog.Error("billing provider call failed", "error", err)
		api.HandleError(w, api.NewUpstreamError("payment provider unavailable"))
	case errors.Is(err, ErrMisconfigured):
		api.HandleError(w, api.NewInternalError(err.Error()))
	default:
		ledger.HandleError(w, err)
	}
}

// Create serves POST /subscriptions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	res, err := h.svc.CreateSubscription(r.Context(), accountID)
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, res)
}

// Verify serves POST /subscriptions/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	acc, err := h.svc.VerifyPayment(r.Context(), accountID, req.PaymentID, req.SubscriptionID, req.Signature)
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, Outcome{Success: true, Account: acc.View()})
}

// Cancel serves POST /subscriptions/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	acc, err := h.svc.CancelSubscription(r.Context(), accountID)
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, Outcome{Success: true, Account: acc.View()})
}

// Status serves GET /subscriptions/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	st, err := h.svc.Status(r.Context(), accountID)
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, st)
}
