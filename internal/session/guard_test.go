package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/internal/store"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 3,
		"exp":     expiresAt.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestGuardDeniesWithoutTokenAndWithoutNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	sess := New(api.NewClient(srv.URL), store.NewMemoryStore())
	guard := NewGuard(sess)
	if _, err := guard.Authorize(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("guard must not issue a request without a persisted token")
	}
}

func TestGuardClearsRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"isAuthenticated": false})
	}))
	defer srv.Close()

	credStore := store.NewMemoryStore()
	credStore.Save(store.Credentials{Token: signedToken(t, time.Now().Add(time.Hour))})
	sess := New(api.NewClient(srv.URL), credStore)
	sess.Restore()

	if _, err := NewGuard(sess).Authorize(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, ok, _ := credStore.Load(); ok {
		t.Fatalf("rejected token must be cleared from the store")
	}
	if sess.Active() {
		t.Fatalf("session should be inactive after rejection")
	}
}

func TestGuardTreatsNetworkFailureAsDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	credStore := store.NewMemoryStore()
	credStore.Save(store.Credentials{Token: signedToken(t, time.Now().Add(time.Hour))})
	sess := New(api.NewClient(srv.URL), credStore)
	sess.Restore()

	if _, err := NewGuard(sess).Authorize(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, ok, _ := credStore.Load(); ok {
		t.Fatalf("credential must be cleared on transport failure")
	}
}

func TestGuardSkipsNetworkForExpiredJWT(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	credStore := store.NewMemoryStore()
	credStore.Save(store.Credentials{Token: signedToken(t, time.Now().Add(-time.Hour))})
	sess := New(api.NewClient(srv.URL), credStore)
	sess.Restore()

	if _, err := NewGuard(sess).Authorize(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("locally expired token should not reach the network")
	}
	if _, ok, _ := credStore.Load(); ok {
		t.Fatalf("expired token must be cleared")
	}
}

func TestGuardAcceptsAndRefreshesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got == "" {
			t.Errorf("auth check must carry the bearer token")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"isAuthenticated": true,
			"user":            domain.User{ID: 3, Name: "Alice Renamed", Status: domain.StatusOnline},
		})
	}))
	defer srv.Close()

	credStore := store.NewMemoryStore()
	credStore.Save(store.Credentials{Token: signedToken(t, time.Now().Add(time.Hour)), User: domain.User{ID: 3, Name: "Alice"}})
	sess := New(api.NewClient(srv.URL), credStore)
	sess.Restore()

	user, err := NewGuard(sess).Authorize()
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if user.Name != "Alice Renamed" {
		t.Fatalf("snapshot not refreshed from auth check: %+v", user)
	}
	creds, ok, _ := credStore.Load()
	if !ok || creds.User.Name != "Alice Renamed" {
		t.Fatalf("refreshed snapshot should be persisted: %+v", creds)
	}
}

func TestGuardTreatsOpaqueTokenAsVerifiable(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"isAuthenticated": true, "user": domain.User{ID: 9}})
	}))
	defer srv.Close()

	credStore := store.NewMemoryStore()
	credStore.Save(store.Credentials{Token: "opaque-not-a-jwt"})
	sess := New(api.NewClient(srv.URL), credStore)
	sess.Restore()

	if _, err := NewGuard(sess).Authorize(); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("opaque token should be verified over the network, calls=%d", calls.Load())
	}
}
