package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/auth"
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

type CreateAccountRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"max=255"`
	Avatar string `json:"avatar" validate:"omitempty,max=2048"`
}

type DebitRequest struct {
	TokensUsed     int64   `json:"tokens_used" validate:"gte=0"`
	SubscriptionID *string `json:"subscription_id,omitempty" validate:"omitempty,min=1,max=255"`
}

// HandleError maps ledger errors onto HTTP errors.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.NewNotFoundError("account not found"))
	case errors.Is(err, ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, ErrQuotaExceeded):
		api.HandleError(w, api.ErrQuotaExceeded)
	default:
		slog.Error("ledger request failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

// Lookup serves GET /internal/accounts?email=.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		api.HandleError(w, api.NewValidationError("email query parameter is required"))
		return
	}

	acc, err := h.svc.GetByEmail(r.Context(), email)
	if err != nil {
		HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, acc.View())
}

// Get serves GET /internal/accounts/{accountID}. The parameter may also be
// an email address.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Get(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, acc.View())
}

// Create serves POST /internal/accounts. Repeating the call returns the
// existing account.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	acc, err := h.svc.GetOrCreate(r.Context(), req.Email, req.Name, req.Avatar)
	if err != nil {
		HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, acc.View())
}

// Debit serves PATCH /internal/accounts/{accountID}/tokens.
func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid account ID"))
		return
	}

	var req DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	acc, err := h.svc.Debit(r.Context(), id, req.TokensUsed, req.SubscriptionID)
	if err != nil {
		HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, acc.View())
}

// Cancel serves PATCH /internal/accounts/{accountID}/cancel-subscription.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid account ID"))
		return
	}

	acc, err := h.svc.CancelSubscription(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, acc.View())
}

// Me returns the signed-in caller's account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	acc, err := h.svc.Current(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, acc.View())
}
