package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, query, key string
	body                     map[string]any
}

func fakeLedger(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, key: r.Header.Get("X-API-Key")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &rec.body))
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

const accountReply = `{"data":{"id":"7f3c","email":"a@x.com","credits":4958,"monthly_credits":5000,"monthly_usage":42,"total_usage":42,"tier":"FREE","remaining":4958,"last_reset_date":"2026-03-01T00:00:00Z"}}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAccounts_Commands(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		method string
		path   string
		query  string
		body   map[string]any
	}{
		{"get by id", []string{"accounts", "get", "7f3c"}, http.MethodGet, "/internal/accounts/7f3c", "", nil},
		{"get by email", []string{"accounts", "get", "a@x.com"}, http.MethodGet, "/internal/accounts", "email=a%40x.com", nil},
		{"create", []string{"accounts", "create", "a@x.com", "--name", "A"}, http.MethodPost, "/internal/accounts", "",
			map[string]any{"email": "a@x.com", "name": "A", "avatar": ""}},
		{"debit", []string{"accounts", "debit", "7f3c", "42"}, http.MethodPatch, "/internal/accounts/7f3c/tokens", "",
			map[string]any{"tokens_used": float64(42)}},
		{"debit with upgrade", []string{"accounts", "debit", "7f3c", "0", "--subscription", "sub_1"}, http.MethodPatch, "/internal/accounts/7f3c/tokens", "",
			map[string]any{"tokens_used": float64(0), "subscription_id": "sub_1"}},
		{"cancel", []string{"accounts", "cancel", "7f3c"}, http.MethodPatch, "/internal/accounts/7f3c/cancel-subscription", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeLedger(t, http.StatusOK, accountReply)

			out, err := run(t, append(tt.args, "--url", srv.URL, "--api-key", "k")...)
			require.NoError(t, err)
			assert.Contains(t, out, "a@x.com")
			assert.Contains(t, out, "4958")

			require.Len(t, *calls, 1)
			got := (*calls)[0]
			assert.Equal(t, tt.method, got.method)
			assert.Equal(t, tt.path, got.path)
			assert.Equal(t, tt.query, got.query)
			assert.Equal(t, "k", got.key)
			assert.Equal(t, tt.body, got.body)
		})
	}
}

func TestAccounts_JSONOutput(t *testing.T) {
	srv, _ := fakeLedger(t, http.StatusOK, accountReply)

	out, err := run(t, "accounts", "get", "7f3c", "--json", "--url", srv.URL, "--api-key", "k")
	require.NoError(t, err)

	var acc account
	require.NoError(t, json.Unmarshal([]byte(out), &acc))
	assert.Equal(t, int64(42), acc.MonthlyUsage)
	assert.Equal(t, "FREE", acc.Tier)
}

func TestAccounts_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv, _ := fakeLedger(t, http.StatusNotFound, `{"error":"account not found"}`)
		_, err := run(t, "accounts", "get", "nope", "--url", srv.URL, "--api-key", "k")
		var apiErr *apiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "account not found", apiErr.Message)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("INTERNAL_API_KEY", "")
		_, err := run(t, "accounts", "get", "7f3c")
		assert.ErrorIs(t, err, errMissingAPIKey)
	})

	t.Run("negative tokens", func(t *testing.T) {
		_, err := run(t, "accounts", "debit", "7f3c", "-5", "--api-key", "k")
		assert.Error(t, err)
	})
}

func TestEstimate(t *testing.T) {
	out, err := run(t, "estimate", "--model", "openai/gpt-3.5-turbo", "--input", "one two three", "--output", "one two three four")
	require.NoError(t, err)
	assert.Contains(t, out, "Total tokens    10")

	out, err = run(t, "estimate", "--json", "--input", "hello")
	require.NoError(t, err)
	var resp struct {
		TotalTokens int64 `json:"total_tokens"`
		DefaultRate bool  `json:"default_rate"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(2), resp.TotalTokens)
	assert.False(t, resp.DefaultRate)
}
