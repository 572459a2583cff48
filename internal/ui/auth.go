package ui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/internal/ratelimit"
	"github.com/Marcemmanuel1/messagerie-app/internal/session"
)

type authMode int

const (
	modeLogin authMode = iota
	modeRegister
)

// authModel is the sign-in / sign-up screen. Field-level validation errors
// from the backend render under the matching input.
type authModel struct {
	mode    authMode
	focused int

	name     textinput.Model
	email    textinput.Model
	password textinput.Model
	avatar   textinput.Model

	notice     string
	fieldErrs  map[string]string
	submitting bool

	// attempts throttles submissions locally so a stuck key or script
	// cannot hammer the backend.
	attempts *ratelimit.FixedWindowLimiter
}

func newAuthModel() authModel {
	name := textinput.New()
	name.Placeholder = "Nom"
	name.CharLimit = 64
	name.Width = 36

	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 128
	email.Width = 36
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Mot de passe"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 128
	password.Width = 36

	avatar := textinput.New()
	avatar.Placeholder = "Avatar (chemin local, optionnel)"
	avatar.CharLimit = 256
	avatar.Width = 36

	attempts, _ := ratelimit.NewFixedWindowLimiter(5, time.Minute)

	return authModel{
		mode:      modeLogin,
		focused:   1,
		name:      name,
		email:     email,
		password:  password,
		avatar:    avatar,
		fieldErrs: map[string]string{},
		attempts:  attempts,
	}
}

func (m authModel) Init() tea.Cmd {
	return textinput.Blink
}

// inputs returns the visible fields for the current mode, in focus order.
func (m *authModel) inputs() []*textinput.Model {
	if m.mode == modeRegister {
		return []*textinput.Model{&m.name, &m.email, &m.password, &m.avatar}
	}
	return []*textinput.Model{&m.email, &m.password}
}

func (m *authModel) focusIndex() int {
	// The login mode skips the name field; keep focus on a visible input.
	fields := m.inputs()
	idx := m.focused
	if m.mode == modeLogin {
		idx--
	}
	if idx < 0 || idx >= len(fields) {
		idx = 0
	}
	return idx
}

func (m *authModel) setFocus(delta int) {
	fields := m.inputs()
	idx := (m.focusIndex() + delta + len(fields)) % len(fields)
	for i, f := range fields {
		if i == idx {
			f.Focus()
		} else {
			f.Blur()
		}
	}
	if m.mode == modeLogin {
		m.focused = idx + 1
	} else {
		m.focused = idx
	}
}

func (m *authModel) toggleMode() {
	if m.mode == modeLogin {
		m.mode = modeRegister
	} else {
		m.mode = modeLogin
	}
	m.notice = ""
	m.fieldErrs = map[string]string{}
	m.setFocus(0)
}

// applyError renders a failed submission: field errors go under their
// inputs, everything else becomes the global notice.
func (m *authModel) applyError(err error) {
	m.fieldErrs = map[string]string{}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		m.fieldErrs = apiErr.Fields
		m.notice = apiErr.Message
		return
	}
	m.notice = err.Error()
}

func (m authModel) update(msg tea.Msg, sess *session.Session) (authModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.submitting {
		return m, nil
	}

	switch key.String() {
	case "tab", "down":
		m.setFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.setFocus(-1)
		return m, nil
	case "ctrl+r":
		m.toggleMode()
		return m, nil
	case "enter":
		return m.submit(sess)
	}

	fields := m.inputs()
	idx := m.focusIndex()
	updated, cmd := fields[idx].Update(msg)
	*fields[idx] = updated
	return m, cmd
}

func (m authModel) submit(sess *session.Session) (authModel, tea.Cmd) {
	if !m.attempts.Allow("auth") {
		m.notice = "Trop de tentatives, réessayez dans une minute."
		return m, nil
	}
	m.notice = ""
	m.fieldErrs = map[string]string{}
	m.submitting = true

	if m.mode == modeLogin {
		email, password := m.email.Value(), m.password.Value()
		return m, func() tea.Msg {
			return authDoneMsg{err: sess.Login(email, password)}
		}
	}
	form := api.RegisterForm{
		Name:       m.name.Value(),
		Email:      m.email.Value(),
		Password:   m.password.Value(),
		AvatarPath: strings.TrimSpace(m.avatar.Value()),
	}
	return m, func() tea.Msg {
		return authDoneMsg{err: sess.Register(form)}
	}
}

func (m authModel) view(width, height int) string {
	var s strings.Builder
	if m.mode == modeLogin {
		s.WriteString(titleStyle.Render("Connexion") + mutedStyle.Render("  (Ctrl+R: inscription)") + "\n\n")
	} else {
		s.WriteString(titleStyle.Render("Inscription") + mutedStyle.Render("  (Ctrl+R: connexion)") + "\n\n")
		s.WriteString("Nom:          " + m.name.View() + "\n")
		if msg, ok := m.fieldErrs["name"]; ok {
			s.WriteString(errorStyle.Render("              "+msg) + "\n")
		}
	}

	s.WriteString("Email:        " + m.email.View() + "\n")
	if msg, ok := m.fieldErrs["email"]; ok {
		s.WriteString(errorStyle.Render("              "+msg) + "\n")
	}
	s.WriteString("Mot de passe: " + m.password.View() + "\n")
	if msg, ok := m.fieldErrs["password"]; ok {
		s.WriteString(errorStyle.Render("              "+msg) + "\n")
	}

	if m.mode == modeRegister {
		s.WriteString("              " + strengthMeter(m.password.Value()) + "\n")
		s.WriteString("Avatar:       " + m.avatar.View() + "\n")
		if msg, ok := m.fieldErrs["avatar"]; ok {
			s.WriteString(errorStyle.Render("              "+msg) + "\n")
		}
	}

	s.WriteString("\n")
	if m.notice != "" {
		s.WriteString(errorStyle.Render(m.notice) + "\n")
	}
	if m.submitting {
		s.WriteString(mutedStyle.Render("Envoi…"))
	} else {
		s.WriteString(mutedStyle.Render("Entrée: valider • Tab: champ suivant"))
	}

	box := boxStyle.Render(s.String())
	if width == 0 || height == 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// strengthMeter renders the password strength as a four-segment gauge.
func strengthMeter(password string) string {
	if password == "" {
		return ""
	}
	score := session.Strength(password)
	labels := []string{"trop court", "faible", "moyen", "bon", "fort"}
	filled := strings.Repeat("█", score)
	empty := strings.Repeat("░", 4-score)
	gauge := filled + empty
	switch {
	case score <= 1:
		return errorStyle.Render(gauge) + " " + mutedStyle.Render(labels[score])
	case score <= 2:
		return mutedStyle.Render(gauge) + " " + mutedStyle.Render(labels[score])
	default:
		return onlineStyle.Render(gauge) + " " + mutedStyle.Render(labels[score])
	}
}
