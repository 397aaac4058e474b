package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the bearer token attached to every backend request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticTokenSource struct {
	token string
}

func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token(context.Context) (string, error) {
	return s.token, nil
}

// RefreshFunc exchanges a refresh token for a new access/refresh pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (access, refresh string, err error)

// RefreshingTokenSource keeps a short-lived access token fresh by re-fetching
// it before the exp claim runs out. The signature is not verified here, the
// backend owns the key; only the expiry is read.
type RefreshingTokenSource struct {
	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
	fn      RefreshFunc
	leeway  time.Duration
	now     func() time.Time
}

type RefreshingTokenSourceOption func(*RefreshingTokenSource)

func WithLeeway(d time.Duration) RefreshingTokenSourceOption {
	return func(s *RefreshingTokenSource) { s.leeway = d }
}

func WithNowFunc(now func() time.Time) RefreshingTokenSourceOption {
	return func(s *RefreshingTokenSource) { s.now = now }
}

func NewRefreshingTokenSource(refreshToken string, fn RefreshFunc, opts ...RefreshingTokenSourceOption) *RefreshingTokenSource {
	s := &RefreshingTokenSource{
		refresh: refreshToken,
		fn:      fn,
		leeway:  30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RefreshingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access != "" && s.now().Add(s.leeway).Before(s.expiry) {
		return s.access, nil
	}

	access, refresh, err := s.fn(ctx, s.refresh)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	s.expiry = expiryOf(access)
	return s.access, nil
}

func expiryOf(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// HTTPRefresher builds a RefreshFunc against the marketplace auth endpoint.
func HTTPRefresher(baseURL, path string, client *http.Client) RefreshFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, refreshToken string) (string, string, error) {
		payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
		if err != nil {
			return "", "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return "", "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", "", fmt.Errorf("refresh endpoint returned %d", resp.StatusCode)
		}

		var body struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", "", err
		}
		if body.AccessToken == "" {
			return "", "", fmt.Errorf("refresh endpoint returned no access token")
		}
		return body.AccessToken, body.RefreshToken, nil
	}
}
