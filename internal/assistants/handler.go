package assistants

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/auth"
	"github.com/axoncore/axoncore/internal/pricing"
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

func handleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.NewNotFoundError("assistant not found"))
	case errors.Is(err, ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

// Create serves POST /assistants with a batch of personas.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req BulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	created, err := h.svc.CreateMany(r.Context(), accountID, req.Assistants)
	if err != nil {
		handleError(w, "creating assistants", err)
		return
	}
	api.JSON(w, http.StatusCreated, created)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	list, total, err := h.svc.List(r.Context(), accountID, params)
	if err != nil {
		handleError(w, "listing assistants", err)
		return
	}
	api.JSONPaginated(w, http.StatusOK, list, total, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a := FromContext(r.Context())
	if a == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	api.JSON(w, http.StatusOK, a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	a := FromContext(r.Context())
	if a == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	updated, err := h.svc.Update(r.Context(), a, &req)
	if err != nil {
		handleError(w, "updating assistant", err)
		return
	}
	api.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	a := FromContext(r.Context())
	if a == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), a.ID); err != nil {
		handleError(w, "deleting assistant", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "assistant deleted successfully")
}

// Models serves GET /models, the selectable model catalog.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, pricing.Models())
}

// OwnershipMiddleware loads {assistantID} and rejects callers who do not
// own it.
func (h *Handler) OwnershipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := auth.AccountID(r.Context())
		if !ok {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "assistantID"))
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid assistant ID"))
			return
		}

		a, err := h.svc.GetByID(r.Context(), id)
		if err != nil {
			handleError(w, "fetching assistant for ownership check", err)
			return
		}

		if a.AccountID != accountID {
			slog.Warn("ownership violation attempt",
				"assistant_id", id,
				"owner", a.AccountID,
				"requester", accountID,
				"path", r.URL.Path,
				"method", r.Method,
			)
			api.HandleError(w, api.ErrOwnershipViolation)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAssistant(r.Context(), a)))
	})
}
