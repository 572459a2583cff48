package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const credentialsFilename = "credentials.json"

// FileStore saves credentials as a JSON file under a base directory. This is
// the default backend, the terminal analogue of the browser's local storage.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("store base path is required")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Save writes the credentials file, replacing any previous session.
func (f *FileStore) Save(c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	target := filepath.Join(f.basePath, credentialsFilename)
	// Write-then-rename so a crash never leaves a truncated file behind.
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// Load reads the credentials file. A missing or unreadable file means no
// session: a corrupt credential is indistinguishable from none at all.
func (f *FileStore) Load() (Credentials, bool, error) {
	data, err := os.ReadFile(filepath.Join(f.basePath, credentialsFilename))
	if os.IsNotExist(err) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, false, nil
	}
	if c.Token == "" {
		return Credentials{}, false, nil
	}
	return c, true, nil
}

// Clear deletes the credentials file.
func (f *FileStore) Clear() error {
	err := os.Remove(filepath.Join(f.basePath, credentialsFilename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
