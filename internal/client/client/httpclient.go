package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/client/repositories/metadata"
	"github.com/vposukhov/stockpilot/internal/common"
)

// HTTPClient is the concrete Client speaking JSON over HTTP to the identity
// backend. The token pair is cached in the metadata repository so the
// remote session survives restarts.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	meta    metadata.Repository

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	loaded       bool

	subMu   sync.Mutex
	subs    map[int]chan *models.RemoteSession
	nextSub int
}

func NewHTTPClient(baseURL string, meta metadata.Repository) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		meta:    meta,
		subs:    make(map[int]chan *models.RemoteSession),
	}
}

func (c *HTTPClient) Close() error {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	return nil
}

// Watch registers a subscriber. Events are delivered best-effort: a
// subscriber that stops draining its channel misses notifications instead
// of blocking the auth path.
func (c *HTTPClient) Watch() (<-chan *models.RemoteSession, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan *models.RemoteSession, 8)
	c.subs[id] = ch

	unsubscribe := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if ch, ok := c.subs[id]; ok {
			close(ch)
			delete(c.subs, id)
		}
	}
	return ch, unsubscribe
}

func (c *HTTPClient) notify(s *models.RemoteSession) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// ---- wire types ----

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

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string) error {
	resp, err := c.postJSON(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return c.mapError(resp)
	}
	return nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*models.RemoteSession, error) {
	resp, err := c.postJSON(ctx, "/auth/v1/token", map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	}, "")
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	session := sessionFromTokenResponse(&tr)
	if err := c.saveTokens(ctx, tr.AccessToken, tr.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to cache remote session: %w", err)
	}

	c.notify(session)
	return session, nil
}

// SignOut tells the backend to revoke the session, then drops the cached
// token pair regardless of the outcome so the device cannot stay stuck in
// an authenticated state.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	var reqErr error
	if token != "" {
		resp, err := c.postJSON(ctx, "/auth/v1/logout", nil, token)
		if err != nil {
			reqErr = err
		} else {
			if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized {
				reqErr = c.mapError(resp)
			}
			drain(resp)
		}
	}

	if err := c.clearTokens(ctx); err != nil && reqErr == nil {
		reqErr = err
	}

	c.notify(nil)
	return reqErr
}

// CurrentSession restores the cached token pair and rebuilds the session
// from the access token's claims. No network call is made: an unexpired
// token is trusted until an operation against the backend says otherwise.
func (c *HTTPClient) CurrentSession(ctx context.Context) (*models.RemoteSession, error) {
	if err := c.loadTokens(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	access, refresh := c.accessToken, c.refreshToken
	c.mu.Unlock()

	if access == "" {
		return nil, nil
	}

	user, expiresAt, err := parseAccessToken(access)
	if err != nil || !expiresAt.After(time.Now()) {
		// stale or unreadable token: treat as no session
		_ = c.clearTokens(ctx)
		return nil, nil
	}

	return &models.RemoteSession{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// ---- helpers ----

func (c *HTTPClient) postJSON(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *HTTPClient) mapError(resp *http.Response) error {
	var er errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&er)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, er.Error)
	case http.StatusConflict:
		return common.ErrDuplicateAccount
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("identity backend rejected request: status %d: %s", resp.StatusCode, er.Error)
	}
}

func (c *HTTPClient) saveTokens(ctx context.Context, access, refresh string) error {
	if err := c.meta.Set(ctx, common.MetaKeyAccessToken, []byte(access)); err != nil {
		return err
	}
	if err := c.meta.Set(ctx, common.MetaKeyRefreshToken, []byte(refresh)); err != nil {
		return err
	}
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) clearTokens(ctx context.Context) error {
	err := c.meta.Delete(ctx, common.MetaKeyAccessToken)
	if err2 := c.meta.Delete(ctx, common.MetaKeyRefreshToken); err == nil {
		err = err2
	}
	c.mu.Lock()
	c.accessToken, c.refreshToken = "", ""
	c.loaded = true
	c.mu.Unlock()
	return err
}

func (c *HTTPClient) loadTokens(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if loaded {
		return nil
	}

	access, err := c.meta.Get(ctx, common.MetaKeyAccessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalDataNotAvailable, err)
	}
	refresh, err := c.meta.Get(ctx, common.MetaKeyRefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalDataNotAvailable, err)
	}

	c.mu.Lock()
	c.accessToken, c.refreshToken = string(access), string(refresh)
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func sessionFromTokenResponse(tr *tokenResponse) *models.RemoteSession {
	s := &models.RemoteSession{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if _, exp, err := parseAccessToken(tr.AccessToken); err == nil {
		s.ExpiresAt = exp
	}
	if tr.User != nil {
		s.User = &models.User{
			ID:        tr.User.ID,
			Email:     tr.User.Email,
			CreatedAt: tr.User.CreatedAt,
		}
	} else if u, _, err := parseAccessToken(tr.AccessToken); err == nil {
		s.User = u
	}
	return s
}

// parseAccessToken extracts identity and expiry from the access token's
// claims without verifying the signature; verification is the backend's
// job, the client only needs the payload.
func parseAccessToken(token string) (*models.User, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, time.Time{}, err
	}

	sub, _ := claims.GetSubject()
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, time.Time{}, common.ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	return &models.User{ID: sub, Email: email}, exp.Time, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
