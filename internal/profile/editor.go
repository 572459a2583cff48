// Package profile drives the profile screen: it holds the server's canonical
// record, the fields being edited, and the pending avatar selection.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// MaxAvatarBytes caps avatar uploads. The backend enforces its own limit;
// checking here saves the round trip.
const MaxAvatarBytes = 15 << 20

var (
	// ErrAvatarNotImage rejects files whose extension does not map to an
	// image MIME type.
	ErrAvatarNotImage = errors.New("avatar must be an image file")
	// ErrAvatarTooLarge rejects files above MaxAvatarBytes.
	ErrAvatarTooLarge = errors.New("avatar exceeds the 15 MB limit")
	// ErrNameRequired rejects a submission with a blank name.
	ErrNameRequired = errors.New("name is required")
)

// Editor manages one editing session over the signed-in user's profile.
type Editor struct {
	api   *api.Client
	token string

	mu      sync.Mutex
	current domain.User
	draft   api.ProfileUpdate

	// avatarPath is the file picked for upload; previewPath is a private
	// temp copy the UI renders from, removed on replace and on Close.
	avatarPath  string
	previewPath string
}

// NewEditor builds an editor. Call Load before reading state.
func NewEditor(apiClient *api.Client, token string) *Editor {
	return &Editor{api: apiClient, token: token}
}

// Load fetches the canonical profile and resets the editable fields to it.
// Any pending avatar selection is discarded.
func (e *Editor) Load() error {
	user, err := e.api.Profile(e.token)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adoptLocked(user)
	return nil
}

// Current returns the last canonical record received from the server.
func (e *Editor) Current() domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Draft returns the fields as currently edited.
func (e *Editor) Draft() api.ProfileUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// SetDraft replaces the editable fields.
func (e *Editor) SetDraft(draft api.ProfileUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = draft
}

// ChooseAvatar validates the picked file and stages it for the next Submit.
// A failed check leaves the previous selection in place. The preview copy of
// any earlier selection is released.
func (e *Editor) ChooseAvatar(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("read avatar: %w", err)
	}
	if !strings.HasPrefix(api.ContentTypeByPath(path), "image/") {
		return ErrAvatarNotImage
	}
	if info.Size() > MaxAvatarBytes {
		return ErrAvatarTooLarge
	}
	preview, err := copyToTemp(path)
	if err != nil {
		return fmt.Errorf("stage avatar preview: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.releasePreviewLocked()
	e.avatarPath = path
	e.previewPath = preview
	return nil
}

// ClearAvatar drops the pending avatar selection and its preview copy.
func (e *Editor) ClearAvatar() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releasePreviewLocked()
	e.avatarPath = ""
}

// PreviewPath returns the temp copy of the pending avatar, or the empty
// string when none is selected.
func (e *Editor) PreviewPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previewPath
}

// Submit sends the edited fields, and the staged avatar if any, then adopts
// the server's canonical record as both the current profile and the new
// draft. On failure the edits and selection stay untouched.
func (e *Editor) Submit() (domain.User, error) {
	e.mu.Lock()
	draft := e.draft
	avatarPath := e.avatarPath
	e.mu.Unlock()

	if strings.TrimSpace(draft.Name) == "" {
		return domain.User{}, ErrNameRequired
	}
	user, err := e.api.UpdateProfile(e.token, draft, avatarPath)
	if err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.adoptLocked(user)
	return user, nil
}

// Close releases the preview copy. Call it when leaving the profile screen.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releasePreviewLocked()
	e.avatarPath = ""
}

func (e *Editor) adoptLocked(user domain.User) {
	e.current = user
	e.draft = api.ProfileUpdate{
		Name:     user.Name,
		Bio:      user.Bio,
		Phone:    user.Phone,
		Location: user.Location,
	}
	e.releasePreviewLocked()
	e.avatarPath = ""
}

func (e *Editor) releasePreviewLocked() {
	if e.previewPath != "" {
		_ = os.Remove(e.previewPath)
		e.previewPath = ""
	}
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	dst, err := os.CreateTemp("", "avatar-preview-*"+filepath.Ext(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
