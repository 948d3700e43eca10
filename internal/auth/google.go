package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrIdentityRejected = errors.New("identity provider rejected the token")

// Identity is the verified profile of a signed-in user.
type Identity struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleVerifier exchanges a Google OAuth access token for the user's
// profile via the userinfo endpoint.
type GoogleVerifier struct {
	userInfoURL string
	client      *http.Client
}

func NewGoogleVerifier(userInfoURL string) *GoogleVerifier {
	return &GoogleVerifier{
		userInfoURL: userInfoURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrIdentityRejected
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if id.Email == "" || !id.EmailVerified {
		return nil, fmt.Errorf("%w: email missing or unverified", ErrIdentityRejected)
	}
	return &id, nil
}
