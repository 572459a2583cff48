package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// Client calls the messagerie backend over HTTP. All authenticated calls
// attach the bearer token passed by the caller; the client itself holds no
// session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a server-rejected request: a global message and, for
// form submissions, per-field validation errors keyed by field name.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAuthError reports whether the response was a 401-class rejection, which
// callers must treat as a destroyed session.
func (e *APIError) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NewClient constructs a backend client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RegisterForm carries the registration fields. AvatarPath may be empty.
type RegisterForm struct {
	Name       string
	Email      string
	Password   string
	AvatarPath string
}

// Register creates an account. On success the backend signs the user in
// directly and returns a token with the user snapshot.
func (c *Client) Register(form RegisterForm) (string, domain.User, error) {
	fields := map[string]string{
		"name":     form.Name,
		"email":    form.Email,
		"password": form.Password,
	}
	var resp authResponse
	if err := c.doMultipart(http.MethodPost, "/api/register", "", fields, "avatar", form.AvatarPath, &resp); err != nil {
		return "", domain.User{}, err
	}
	if resp.Token == "" {
		return "", domain.User{}, &APIError{Status: http.StatusOK, Message: "registration succeeded but no token was returned"}
	}
	return resp.Token, resp.User, nil
}

// Login exchanges credentials for a token and user snapshot.
func (c *Client) Login(email, password string) (string, domain.User, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(http.MethodPost, "/api/login", "", payload, &resp); err != nil {
		return "", domain.User{}, err
	}
	if resp.Token == "" {
		return "", domain.User{}, &APIError{Status: http.StatusOK, Message: "login succeeded but no token was returned"}
	}
	return resp.Token, resp.User, nil
}

// CheckAuth asks the backend whether the token is still accepted. The user
// snapshot is only meaningful when authenticated is true.
func (c *Client) CheckAuth(token string) (bool, domain.User, error) {
	var resp struct {
		IsAuthenticated bool        `json:"isAuthenticated"`
		User            domain.User `json:"user"`
	}
	if err := c.doJSON(http.MethodGet, "/api/check-auth", token, nil, &resp); err != nil {
		return false, domain.User{}, err
	}
	return resp.IsAuthenticated, resp.User, nil
}

// Users lists every known user.
func (c *Client) Users(token string) ([]domain.User, error) {
	var resp struct {
		Users []domain.User `json:"users"`
	}
	if err := c.doJSON(http.MethodGet, "/api/users", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Conversations lists the signed-in user's conversations with previews and
// unread counts.
func (c *Client) Conversations(token string) ([]domain.Conversation, error) {
	var resp struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	if err := c.doJSON(http.MethodGet, "/api/conversations", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// Messages returns a conversation's history in creation order.
func (c *Client) Messages(token string, conversationID int64) ([]domain.Message, error) {
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	path := fmt.Sprintf("/api/messages/%d", conversationID)
	if err := c.doJSON(http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Profile fetches the signed-in user's full profile.
func (c *Client) Profile(token string) (domain.User, error) {
	var resp profileResponse
	if err := c.doJSON(http.MethodGet, "/api/profile", token, nil, &resp); err != nil {
		return domain.User{}, err
	}
	if !resp.Success {
		return domain.User{}, &APIError{Status: http.StatusOK, Message: orDefault(resp.Message, "profile fetch failed")}
	}
	return resp.User, nil
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Name     string
	Bio      string
	Phone    string
	Location string
}

// UpdateProfile submits the edited profile, optionally replacing the avatar,
// and returns the server's canonical record.
func (c *Client) UpdateProfile(token string, update ProfileUpdate, avatarPath string) (domain.User, error) {
	fields := map[string]string{
		"name":     update.Name,
		"bio":      update.Bio,
		"phone":    update.Phone,
		"location": update.Location,
	}
	var resp profileResponse
	if err := c.doMultipart(http.MethodPut, "/api/profile", token, fields, "avatar", avatarPath, &resp); err != nil {
		return domain.User{}, err
	}
	if !resp.Success {
		return domain.User{}, &APIError{Status: http.StatusOK, Message: orDefault(resp.Message, "profile update failed")}
	}
	return resp.User, nil
}

// Logout tells the backend to end the session. Best-effort: callers clear
// local state regardless of the result.
func (c *Client) Logout(token string) error {
	return c.doJSON(http.MethodPost, "/api/logout", token, struct{}{}, nil)
}

func (c *Client) doJSON(method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, token, out)
}

func (c *Client) doMultipart(method, path, token string, fields map[string]string, fileField, filePath string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}
	if filePath != "" {
		if err := attachFile(writer, fileField, filePath); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Fields: errResp.Errors}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func attachFile(writer *multipart.Writer, fieldName, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", fieldName, err)
	}
	defer file.Close()
	part, err := writer.CreateFormFile(fieldName, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read %s: %w", fieldName, err)
	}
	return nil
}

// ContentTypeByPath guesses the MIME type of a local file from its
// extension. Used for the advisory image checks before uploads.
func ContentTypeByPath(path string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

type authResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    domain.User `json:"user"`
}

type profileResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}
