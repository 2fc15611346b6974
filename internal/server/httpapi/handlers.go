// Package httpapi exposes the identity server's JSON endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vposukhov/stockpilot/internal/common"
	"github.com/vposukhov/stockpilot/internal/logging"
	"github.com/vposukhov/stockpilot/internal/metrics"
	"github.com/vposukhov/stockpilot/internal/server/models"
	"github.com/vposukhov/stockpilot/internal/server/services"
)

type Handler struct {
	users   *services.UserService
	log     logging.Logger
	metrics *metrics.Metrics
}

func NewHandler(users *services.UserService, log logging.Logger, m *metrics.Metrics) *Handler {
	return &Handler{users: users, log: log, metrics: m}
}

// ---- wire types ----

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

type userPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *userPayload `json:"user"`
}

func toUserPayload(u *models.User) *userPayload {
	return &userPayload{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---- handlers ----

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidEmailFormat):
			h.metrics.SignUps.WithLabelValues("invalid_email").Inc()
			writeError(w, http.StatusBadRequest, "invalid email format")
		case errors.Is(err, common.ErrInvalidCredentials):
			h.metrics.SignUps.WithLabelValues("weak_password").Inc()
			writeError(w, http.StatusBadRequest, "password too short")
		case errors.Is(err, common.ErrDuplicateAccount):
			h.metrics.SignUps.WithLabelValues("duplicate").Inc()
			writeError(w, http.StatusConflict, "account already exists")
		default:
			h.metrics.SignUps.WithLabelValues("error").Inc()
			h.log.Error(r.Context(), "signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.metrics.SignUps.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserPayload(user)})
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		user *models.User
		pair *services.TokenPair
		err  error
	)

	switch req.GrantType {
	case "password":
		user, pair, err = h.users.Login(r.Context(), req.Email, req.Password)
	case "refresh_token":
		user, pair, err = h.users.Refresh(r.Context(), req.RefreshToken)
	default:
		h.metrics.TokenGrants.WithLabelValues(req.GrantType, "unsupported").Inc()
		writeError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			h.metrics.TokenGrants.WithLabelValues(req.GrantType, "invalid_credentials").Inc()
			writeError(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
			h.metrics.TokenGrants.WithLabelValues(req.GrantType, "invalid_token").Inc()
			writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		default:
			h.metrics.TokenGrants.WithLabelValues(req.GrantType, "error").Inc()
			h.log.Error(r.Context(), "token grant failed", "grant_type", req.GrantType, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.metrics.TokenGrants.WithLabelValues(req.GrantType, "ok").Inc()
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.ExpiresAt).Seconds()),
		User:         toUserPayload(user),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := h.users.Logout(r.Context(), user.ID); err != nil {
		h.log.Error(r.Context(), "logout failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserPayload(user)})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the Bearer token to an account, writing the error
// response itself when the token is missing or invalid.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return nil, false
	}

	user, err := h.users.Authenticate(r.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid token")
		} else {
			h.log.Error(r.Context(), "token authentication failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return nil, false
	}
	return user, true
}
