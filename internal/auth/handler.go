package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/axoncore/axoncore/internal/api"
)

// IdentityVerifier turns a third-party sign-in token into a verified profile.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Provisioner returns the account id for a verified identity, creating the
// account on first sign-in.
type Provisioner interface {
	Provision(ctx context.Context, id *Identity) (string, error)
}

type ProvisionerFunc func(ctx context.Context, id *Identity) (string, error)

func (f ProvisionerFunc) Provision(ctx context.Context, id *Identity) (string, error) {
	return f(ctx, id)
}

type Handler struct {
	authSvc     *Service
	verifier    IdentityVerifier
	provisioner Provisioner
	validate    *validator.Validate
}

func NewHandler(authSvc *Service, verifier IdentityVerifier, provisioner Provisioner) *Handler {
	return &Handler{
		authSvc:     authSvc,
		verifier:    verifier,
		provisioner: provisioner,
		validate:    validator.New(),
	}
}

type GoogleSignInRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// GoogleSignIn serves POST /auth/google.
func (h *Handler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := h.verifier.Verify(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, ErrIdentityRejected) {
			api.HandleError(w, api.ErrInvalidToken)
			return
		}
		slog.Error("verifying google identity", "error", err)
		api.HandleError(w, api.NewUpstreamError("identity provider unavailable"))
		return
	}

	accountID, err := h.provisioner.Provision(r.Context(), id)
	if err != nil {
		slog.Error("provisioning account", "email", id.Email, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	tokens, err := h.authSvc.GenerateTokens(r.Context(), accountID, id.Email)
	if err != nil {
		slog.Error("generating tokens", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	slog.Info("user signed in", "account_id", accountID)
	api.JSON(w, http.StatusOK, tokens)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	tokens, err := h.authSvc.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		slog.Warn("refreshing tokens", "error", err)
		api.HandleError(w, api.ErrInvalidToken)
		return
	}
	api.JSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.authSvc.Logout(r.Context(), claims.UserID); err != nil {
		slog.Error("logging out", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONMessage(w, http.StatusOK, "logged out successfully")
}
