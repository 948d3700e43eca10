package usagelog

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/axoncore/axoncore/internal/api"
	"github.com/axoncore/axoncore/internal/auth"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// List serves GET /usage/events?page=&page_size=&from=&to=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	records, total, err := h.store.ListByAccount(r.Context(), accountID, params)
	if err != nil {
		slog.Error("listing usage events failed", "account_id", accountID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if records == nil {
		records = []Record{}
	}

	api.JSONPaginated(w, http.StatusOK, records, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) (ListParams, error) {
	params := DefaultListParams()
	q := r.URL.Query()

	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if size, err := strconv.Atoi(ps); err == nil && size > 0 && size <= 100 {
			params.PageSize = size
		}
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return params, errInvalidTime("from")
		}
		params.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return params, errInvalidTime("to")
		}
		params.To = &t
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return params, errRange
	}
	return params, nil
}
