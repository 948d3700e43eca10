package assistants

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncore/axoncore/internal/auth"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Get("/models", h.Models)
	r.Post("/assistants", h.Create)
	r.Get("/assistants", h.List)
	r.Route("/assistants/{assistantID}", func(r chi.Router) {
		r.Use(h.OwnershipMiddleware)
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path string, accountID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(auth.WithUserClaims(req.Context(), &auth.AccessClaims{UserID: accountID.String()}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateListGet(t *testing.T) {
	h, _ := newTestRouter(t)
	owner := uuid.New()

	rec := do(t, h, http.MethodPost, "/assistants", owner, BulkCreateRequest{Assistants: []CreateRequest{
		{Name: "Coder", Instruction: "You write Go."},
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data []Assistant `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created.Data, 1)
	id := created.Data[0].ID

	rec = do(t, h, http.MethodGet, "/assistants", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []Assistant `json:"data"`
		TotalCount int64       `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, int64(1), page.TotalCount)

	rec = do(t, h, http.MethodGet, "/assistants/"+id.String()+"/", owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Validation(t *testing.T) {
	h, _ := newTestRouter(t)
	owner := uuid.New()

	rec := do(t, h, http.MethodPost, "/assistants", owner, BulkCreateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/assistants", owner, BulkCreateRequest{Assistants: []CreateRequest{{Name: ""}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/assistants", owner, BulkCreateRequest{Assistants: []CreateRequest{{Name: "x", ModelID: "who/knows"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Ownership(t *testing.T) {
	h, svc := newTestRouter(t)
	owner := uuid.New()
	created, err := svc.CreateMany(t.Context(), owner, []CreateRequest{{Name: "mine"}})
	require.NoError(t, err)
	path := "/assistants/" + created[0].ID.String() + "/"

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, path, uuid.New(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/assistants/"+uuid.NewString()+"/", owner, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/assistants/not-a-uuid/", owner, nil).Code)
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	h, svc := newTestRouter(t)
	owner := uuid.New()
	created, err := svc.CreateMany(t.Context(), owner, []CreateRequest{{Name: "mine"}})
	require.NoError(t, err)
	path := "/assistants/" + created[0].ID.String() + "/"

	note := "be concise"
	rec := do(t, h, http.MethodPatch, path, owner, UpdateRequest{UserInstruction: &note})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "be concise")

	rec = do(t, h, http.MethodDelete, path, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, owner, nil).Code)
}

func TestHandler_Models(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/models", uuid.New(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openai/gpt-3.5-turbo")
}
