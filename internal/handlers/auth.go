package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/keystone/internal/auth"
	"github.com/BradenHooton/keystone/internal/models"
	pkghttp "github.com/BradenHooton/keystone/pkg/http"
)

const (
	invalidCredentialsMessage = "Invalid email or password."
	accountLockedMessage      = "Your account is temporarily locked. Try again in %d minutes."
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, attempt models.LoginAttempt) (*models.Outcome, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=1"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse is the data of a successful login
type LoginResponse struct {
	Token string             `json:"token"`
	User  models.UserPayload `json:"user"`
}

// Login handles POST /external/security/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, []FieldError{{Field: "body", Message: "must be a valid JSON object"}})
		return
	}

	if details := ValidateRequest(req); details != nil {
		pkghttp.WriteValidationError(w, details)
		return
	}

	// The email is passed as submitted; the store matches it case-insensitively
	// and failure rows keep the literal value.
	attempt := models.LoginAttempt{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  pkghttp.ExtractUserAgent(r),
	}

	outcome, err := h.service.Authenticate(r.Context(), attempt)
	if err != nil {
		h.logger.Error("login failed with internal error", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
		return
	}

	switch outcome.Kind {
	case models.OutcomeSuccess:
		pkghttp.WriteSuccess(w, http.StatusOK, LoginResponse{
			Token: outcome.Token,
			User:  *outcome.User,
		})
	case models.OutcomeAccountLocked:
		pkghttp.WriteForbidden(w, fmt.Sprintf(accountLockedMessage, outcome.LockedMinutes))
	case models.OutcomeInvalidCredentials:
		pkghttp.WriteUnauthorized(w, invalidCredentialsMessage)
	default:
		h.logger.Error("unhandled login outcome", slog.String("outcome", outcome.Kind.String()))
		pkghttp.WriteInternalError(w)
	}
}

// Session handles GET /internal/security/session and echoes the caller's token identity
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required.")
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, claims.UserPayload)
}
