package conversation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/assistants"
	"github.com/axoncore/axoncore/internal/auth"
	"github.com/axoncore/axoncore/internal/ledger"
)

const (
	defaultHistoryLimit = 50
	defaultRecentLimit  = 20
	maxListLimit        = 200
)

type Handler struct {
	relay    *Relay
	validate *validator.Validate
}

func NewHandler(relay *Relay) *Handler {
	return &Handler{
		relay:    relay,
		validate: validator.New(),
	}
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=32000"`
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, ErrTimeout):
		api.HandleError(w, api.ErrUpstreamTimeout)
	case errors.Is(err, ErrUpstream):
		slog.Error("chat completion failed", "error", err)
		api.HandleError(w, api.NewUpstreamError("failed to get a response from the language model"))
	default:
		ledger.HandleError(w, err)
	}
}

// Chat serves POST /assistants/{assistantID}/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	a := assistants.FromContext(r.Context())
	accountID, ok := auth.AccountID(r.Context())
	if a == nil || !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	reply, err := h.relay.Send(r.Context(), accountID, a, req.Message)
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, reply)
}

// Messages serves GET /assistants/{assistantID}/messages?limit=.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	a := assistants.FromContext(r.Context())
	if a == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	msgs, err := h.relay.Messages(r.Context(), a.AccountID, a.ID, limitParam(r, defaultHistoryLimit))
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, msgs)
}

// ClearMessages serves DELETE /assistants/{assistantID}/messages.
func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	a := assistants.FromContext(r.Context())
	if a == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	n, err := h.relay.ClearMessages(r.Context(), a.AccountID, a.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Recent serves GET /messages/recent?limit=.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	msgs, err := h.relay.RecentMessages(r.Context(), accountID, limitParam(r, defaultRecentLimit))
	if err != nil {
		handleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, msgs)
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxListLimit {
			return n
		}
	}
	return def
}
