package session

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/internal/store"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// Session owns the signed-in identity and credential token. It is the only
// component that touches the credential store; everything else reads the
// token and user snapshot through it.
type Session struct {
	api   *api.Client
	store store.CredentialStore

	mu     sync.RWMutex
	creds  store.Credentials
	active bool
}

// New constructs a session bound to a backend client and credential store.
func New(apiClient *api.Client, credStore store.CredentialStore) *Session {
	return &Session{api: apiClient, store: credStore}
}

// Restore reads the persisted credential once at startup. It does not talk
// to the backend; Guard decides whether the restored token is still good.
func (s *Session) Restore() (bool, error) {
	creds, ok, err := s.store.Load()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	s.creds = creds
	s.active = true
	s.mu.Unlock()
	return true, nil
}

// Login authenticates and persists the resulting credential. On failure the
// stored credential state is left untouched.
func (s *Session) Login(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrEmailAndPasswordRequired
	}
	token, user, err := s.api.Login(email, password)
	if err != nil {
		return err
	}
	return s.adopt(token, user)
}

// Register creates an account and persists the credential the backend
// returns. Client-side checks fail fast before any request; they mirror the
// server's own validation and are advisory, not a security boundary.
func (s *Session) Register(form api.RegisterForm) error {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if form.Name == "" || form.Email == "" || form.Password == "" {
		return ErrAllFieldsRequired
	}
	if len(form.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	token, user, err := s.api.Register(form)
	if err != nil {
		return err
	}
	return s.adopt(token, user)
}

// Logout notifies the backend, then clears local state unconditionally. A
// failed request never keeps the client signed in.
func (s *Session) Logout() error {
	token := s.Token()
	if token != "" {
		if err := s.api.Logout(token); err != nil {
			slog.Warn("logout request failed", "err", err)
		}
	}
	return s.Invalidate()
}

// Invalidate drops the session locally: cleared from the store and from
// memory. Called on logout and on any 401-class rejection.
func (s *Session) Invalidate() error {
	s.mu.Lock()
	s.creds = store.Credentials{}
	s.active = false
	s.mu.Unlock()
	return s.store.Clear()
}

// Active reports whether a credential is currently held.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// User returns the cached snapshot of the signed-in user.
func (s *Session) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.User
}

// DeviceID returns the per-install device id, generated on first sign-in
// and kept across sessions on the same store.
func (s *Session) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.DeviceID
}

// SetUser refreshes the cached user snapshot, persisting it alongside the
// token so the next startup renders current data immediately.
func (s *Session) SetUser(user domain.User) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.creds.User = user
	creds := s.creds
	s.mu.Unlock()
	if err := s.store.Save(creds); err != nil {
		slog.Warn("persist user snapshot failed", "err", err)
	}
}

func (s *Session) adopt(token string, user domain.User) error {
	s.mu.Lock()
	deviceID := s.creds.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	s.creds = store.Credentials{Token: token, User: user, DeviceID: deviceID}
	s.active = true
	creds := s.creds
	s.mu.Unlock()
	return s.store.Save(creds)
}
