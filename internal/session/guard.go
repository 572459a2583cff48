package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// Guard gates access to the protected views. Its verdict is binary: a user
// to render for, or ErrNotAuthenticated and a trip back to the entry screen.
// The protected UI must not paint until Authorize returns.
type Guard struct {
	session *Session
}

// NewGuard wraps a session.
func NewGuard(s *Session) *Guard {
	return &Guard{session: s}
}

// Authorize decides whether the persisted credential still grants access.
// Without a credential it denies immediately, no network call. With one, it
// verifies against the backend; any failure — transport, protocol, or an
// explicit rejection — clears the persisted credential and denies.
func (g *Guard) Authorize() (domain.User, error) {
	if !g.session.Active() {
		return domain.User{}, ErrNotAuthenticated
	}
	token := g.session.Token()

	// Tokens issued by this backend are JWTs. When the expiry is locally
	// readable and already past, skip the round trip. An unparseable token
	// is treated as opaque and still sent for verification.
	if expiry, err := tokenExpiry(token); err == nil && !expiry.IsZero() && time.Now().After(expiry) {
		_ = g.session.Invalidate()
		return domain.User{}, fmt.Errorf("token expired: %w", ErrNotAuthenticated)
	}

	authenticated, user, err := g.session.api.CheckAuth(token)
	if err != nil {
		slog.Warn("auth check failed", "err", err)
		if clearErr := g.session.Invalidate(); clearErr != nil {
			slog.Warn("clear credentials failed", "err", clearErr)
		}
		return domain.User{}, errors.Join(ErrNotAuthenticated, err)
	}
	if !authenticated {
		if clearErr := g.session.Invalidate(); clearErr != nil {
			slog.Warn("clear credentials failed", "err", clearErr)
		}
		return domain.User{}, ErrNotAuthenticated
	}
	if user.ID != 0 {
		g.session.SetUser(user)
	}
	return g.session.User(), nil
}

// tokenExpiry extracts the exp claim without verifying the signature. The
// signature is the server's business; this is only a fast-fail.
func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, err
	}
	return expiry.Time, nil
}
