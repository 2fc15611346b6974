package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vposukhov/stockpilot/internal/logging"
	"github.com/vposukhov/stockpilot/internal/metrics"
	"github.com/vposukhov/stockpilot/internal/server/config"
	"github.com/vposukhov/stockpilot/internal/server/repositories/refreshtokens"
	"github.com/vposukhov/stockpilot/internal/server/repositories/users"
	"github.com/vposukhov/stockpilot/internal/server/services"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	if mutate != nil {
		mutate(cfg)
	}

	svc := services.NewUserService(users.NewInMemoryRepository(), refreshtokens.NewInMemoryRepository(), cfg)
	log := logging.NewTextLogger(io.Discard, slog.LevelError)
	m := metrics.New()
	handler := NewHandler(svc, log, m)

	srv := httptest.NewServer(NewRouter(handler, m, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any, bearer string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeToken(t *testing.T, resp *http.Response) tokenResponse {
	t.Helper()
	var tr tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	return tr
}

func signup(t *testing.T, srv *httptest.Server, email, password string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/auth/v1/signup", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func passwordGrant(t *testing.T, srv *httptest.Server, email, password string) tokenResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "password", "email": email, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeToken(t, resp)
}

func TestSignUp(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/auth/v1/signup", map[string]string{"email": "a@b.com", "password": "password1"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		User userPayload `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "a@b.com", body.User.Email)
	require.NotEmpty(t, body.User.ID)
}

func TestSignUp_Duplicate(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "a@b.com", "password1")

	resp := postJSON(t, srv.URL+"/auth/v1/signup", map[string]string{"email": "a@b.com", "password": "password2"}, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSignUp_InvalidEmail(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/auth/v1/signup", map[string]string{"email": "nope", "password": "password1"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToken_PasswordGrant(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "a@b.com", "password1")

	tr := passwordGrant(t, srv, "a@b.com", "password1")
	require.NotEmpty(t, tr.AccessToken)
	require.NotEmpty(t, tr.RefreshToken)
	require.Equal(t, "Bearer", tr.TokenType)
	require.Greater(t, tr.ExpiresIn, int64(0))
	require.NotNil(t, tr.User)
	require.Equal(t, "a@b.com", tr.User.Email)
}

func TestToken_WrongPassword(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "a@b.com", "password1")

	resp := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "password", "email": "a@b.com", "password": "wrong",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestToken_UnsupportedGrant(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{"grant_type": "authorization_code"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToken_RefreshGrant(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "a@b.com", "password1")
	tr := passwordGrant(t, srv, "a@b.com", "password1")

	resp := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "refresh_token", "refresh_token": tr.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeToken(t, resp)
	require.NotEqual(t, tr.RefreshToken, rotated.RefreshToken)

	// rotated tokens are single-use
	resp = postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "refresh_token", "refresh_token": tr.RefreshToken,
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCurrentUserAndLogout(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "a@b.com", "password1")
	tr := passwordGrant(t, srv, "a@b.com", "password1")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/v1/user", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tr.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	logoutResp := postJSON(t, srv.URL+"/auth/v1/logout", nil, tr.AccessToken)
	require.Equal(t, http.StatusNoContent, logoutResp.StatusCode)

	// refresh tokens are revoked by logout
	refreshResp := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "refresh_token", "refresh_token": tr.RefreshToken,
	}, "")
	require.Equal(t, http.StatusUnauthorized, refreshResp.StatusCode)
}

func TestCurrentUser_NoToken(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/auth/v1/user")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	signup(t, srv, "a@b.com", "password1")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "identityd_signups_total")
}

func TestTokenEndpoint_RateLimited(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.TokenRateLimit = 0.001
		cfg.TokenRateBurst = 2
	})
	signup(t, srv, "a@b.com", "password1")

	// burst of 2 covers the signup plus one grant; the next must be rejected
	resp := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "password", "email": "a@b.com", "password": "password1",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	io.Copy(io.Discard, resp.Body)

	limited := postJSON(t, srv.URL+"/auth/v1/token", map[string]string{
		"grant_type": "password", "email": "a@b.com", "password": "password1",
	}, "")
	require.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
}

func TestToken_ExpiresInMatchesConfig(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.AccessTokenValidityDuration = time.Hour
	})
	signup(t, srv, "a@b.com", "password1")

	tr := passwordGrant(t, srv, "a@b.com", "password1")
	require.InDelta(t, time.Hour.Seconds(), float64(tr.ExpiresIn), 5)
}
