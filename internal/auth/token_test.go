package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "worker-42",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return signed
}

func TestStaticTokenSource(t *testing.T) {
	src := NewStaticTokenSource("abc")
	token, err := src.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestRefreshingTokenSource_ReusesUnexpiredToken(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	access := signedToken(t, now.Add(time.Hour))

	calls := 0
	fn := func(ctx context.Context, refresh string) (string, string, error) {
		calls++
		return access, "rotated", nil
	}

	src := NewRefreshingTokenSource("initial", fn, WithNowFunc(func() time.Time { return now }))

	ctx := context.Background()
	first, err := src.Token(ctx)
	assert.NoError(t, err)
	second, err := src.Token(ctx)
	assert.NoError(t, err)

	assert.Equal(t, access, first)
	assert.Equal(t, access, second)
	assert.Equal(t, 1, calls)
}

func TestRefreshingTokenSource_RefreshesNearExpiry(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	soon := signedToken(t, now.Add(10*time.Second))
	later := signedToken(t, now.Add(time.Hour))

	tokens := []string{soon, later}
	var seenRefresh []string
	fn := func(ctx context.Context, refresh string) (string, string, error) {
		seenRefresh = append(seenRefresh, refresh)
		next := tokens[0]
		tokens = tokens[1:]
		return next, "refresh-" + next[:8], nil
	}

	src := NewRefreshingTokenSource("initial", fn,
		WithNowFunc(func() time.Time { return now }),
		WithLeeway(30*time.Second),
	)

	ctx := context.Background()
	first, err := src.Token(ctx)
	assert.NoError(t, err)
	assert.Equal(t, soon, first)

	// Expires inside the leeway window, so the next call refreshes again with
	// the rotated refresh token.
	second, err := src.Token(ctx)
	assert.NoError(t, err)
	assert.Equal(t, later, second)
	assert.Equal(t, []string{"initial", "refresh-" + soon[:8]}, seenRefresh)
}

func TestRefreshingTokenSource_RefreshError(t *testing.T) {
	fn := func(ctx context.Context, refresh string) (string, string, error) {
		return "", "", assert.AnError
	}
	src := NewRefreshingTokenSource("initial", fn)

	_, err := src.Token(context.Background())
	assert.Error(t, err)
}
