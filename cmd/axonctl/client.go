package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errMissingAPIKey = errors.New("internal API key is required (--api-key or INTERNAL_API_KEY)")

// account mirrors the ledger's account view.
type account struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Credits        int64     `json:"credits"`
	MonthlyCredits int64     `json:"monthly_credits"`
	MonthlyUsage   int64     `json:"monthly_usage"`
	TotalUsage     int64     `json:"total_usage"`
	LastResetDate  time.Time `json:"last_reset_date"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
	Tier           string    `json:"tier"`
	Remaining      int64     `json:"remaining"`
}

// apiError is a non-2xx answer from the internal surface.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

type ledgerClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newLedgerClient(opts *options) (*ledgerClient, error) {
	if opts.apiKey == "" {
		return nil, errMissingAPIKey
	}
	return &ledgerClient{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		apiKey:  opts.apiKey,
		http:    &http.Client{Timeout: opts.timeout},
	}, nil
}

// Get accepts an account id or an email address.
func (c *ledgerClient) Get(ctx context.Context, identifier string) (*account, error) {
	if strings.Contains(identifier, "@") {
		return c.do(ctx, http.MethodGet, "/internal/accounts?email="+url.QueryEscape(identifier), nil)
	}
	return c.do(ctx, http.MethodGet, "/internal/accounts/"+url.PathEscape(identifier), nil)
}

func (c *ledgerClient) Create(ctx context.Context, email, name, avatar string) (*account, error) {
	return c.do(ctx, http.MethodPost, "/internal/accounts", map[string]string{
		"email": email, "name": name, "avatar": avatar,
	})
}

func (c *ledgerClient) Debit(ctx context.Context, id string, tokens int64, subscriptionID string) (*account, error) {
	body := map[string]any{"tokens_used": tokens}
	if subscriptionID != "" {
		body["subscription_id"] = subscriptionID
	}
	return c.do(ctx, http.MethodPatch, "/internal/accounts/"+url.PathEscape(id)+"/tokens", body)
}

func (c *ledgerClient) Cancel(ctx context.Context, id string) (*account, error) {
	return c.do(ctx, http.MethodPatch, "/internal/accounts/"+url.PathEscape(id)+"/cancel-subscription", nil)
}

func (c *ledgerClient) do(ctx context.Context, method, path string, body any) (*account, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data  *account `json:"data"`
		Error string   `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &apiError{Status: resp.StatusCode, Message: msg}
	}
	if envelope.Data == nil {
		return nil, errors.New("empty response")
	}
	return envelope.Data, nil
}
