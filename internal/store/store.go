package store

import (
	"errors"

	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// ErrNoCredentials indicates no session has been persisted.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the client state that survives restarts: the bearer token,
// the last-known snapshot of the signed-in user, and the per-install device
// id announced at channel connect time.
type Credentials struct {
	Token    string      `json:"token"`
	User     domain.User `json:"user"`
	DeviceID string      `json:"deviceId"`
}

// CredentialStore persists session credentials under fixed keys, readable
// across restarts. Implementations must treat Clear on an empty store as a
// no-op: it is called unconditionally on every credential rejection.
type CredentialStore interface {
	Save(Credentials) error
	Load() (Credentials, bool, error)
	Clear() error
}
