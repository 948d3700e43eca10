package usage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncore/axoncore/internal/pricing"
)

func postEstimate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/usage/estimate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	EstimateHandler(rec, req)
	return rec
}

func TestEstimateHandler(t *testing.T) {
	rec := postEstimate(t, `{"input":"one two three","output":"one two three four","model":"`+string(pricing.ModelGPT35Turbo)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data EstimateResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(10), resp.Data.TotalTokens)
	assert.False(t, resp.Data.DefaultRate)
}

func TestEstimateHandler_UnknownModelUsesDefaultRate(t *testing.T) {
	rec := postEstimate(t, `{"input":"hello","model":"acme/unknown"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data EstimateResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Data.DefaultRate)
	assert.Equal(t, int64(2), resp.Data.InputTokens)
}

func TestEstimateHandler_Invalid(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, postEstimate(t, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, postEstimate(t, `{"input":"x"}`).Code)
}
