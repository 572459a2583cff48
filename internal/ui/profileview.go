package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/internal/profile"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

type profileLoadedMsg struct{ err error }

type profileSavedMsg struct {
	user domain.User
	err  error
}

// profileModel is the profile editing mode. The editor owns the canonical
// record and the staged avatar; this model only mirrors the draft fields
// into text inputs.
type profileModel struct {
	editor  *profile.Editor
	focused int

	name     textinput.Model
	bio      textinput.Model
	phone    textinput.Model
	location textinput.Model
	avatar   textinput.Model

	notice  string
	loading bool
	saving  bool
}

func newProfileModel(editor *profile.Editor) profileModel {
	name := textinput.New()
	name.CharLimit = 64
	name.Width = 40
	name.Focus()

	bio := textinput.New()
	bio.CharLimit = 280
	bio.Width = 40

	phone := textinput.New()
	phone.CharLimit = 32
	phone.Width = 40

	location := textinput.New()
	location.CharLimit = 64
	location.Width = 40

	avatar := textinput.New()
	avatar.Placeholder = "Chemin d'une image locale (optionnel)"
	avatar.CharLimit = 256
	avatar.Width = 40

	return profileModel{
		editor:   editor,
		name:     name,
		bio:      bio,
		phone:    phone,
		location: location,
		avatar:   avatar,
		loading:  true,
	}
}

func (m *profileModel) inputs() []*textinput.Model {
	return []*textinput.Model{&m.name, &m.bio, &m.phone, &m.location, &m.avatar}
}

func (m *profileModel) setFocus(delta int) {
	fields := m.inputs()
	m.focused = (m.focused + delta + len(fields)) % len(fields)
	for i, f := range fields {
		if i == m.focused {
			f.Focus()
		} else {
			f.Blur()
		}
	}
}

func (m profileModel) load() tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		return profileLoadedMsg{err: editor.Load()}
	}
}

// apply folds an async editor result into the model.
func (m profileModel) apply(msg tea.Msg) (profileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.notice = "Chargement du profil impossible."
			return m, nil
		}
		draft := m.editor.Draft()
		m.name.SetValue(draft.Name)
		m.bio.SetValue(draft.Bio)
		m.phone.SetValue(draft.Phone)
		m.location.SetValue(draft.Location)
		m.avatar.SetValue("")
	case profileSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		// Mirror the canonical record the server returned.
		m.name.SetValue(msg.user.Name)
		m.bio.SetValue(msg.user.Bio)
		m.phone.SetValue(msg.user.Phone)
		m.location.SetValue(msg.user.Location)
		m.avatar.SetValue("")
		m.notice = "Profil enregistré."
	}
	return m, nil
}

func (m profileModel) submit() (profileModel, tea.Cmd) {
	if avatarPath := strings.TrimSpace(m.avatar.Value()); avatarPath != "" {
		if err := m.editor.ChooseAvatar(avatarPath); err != nil {
			m.notice = err.Error()
			return m, nil
		}
	}
	m.editor.SetDraft(api.ProfileUpdate{
		Name:     m.name.Value(),
		Bio:      m.bio.Value(),
		Phone:    m.phone.Value(),
		Location: m.location.Value(),
	})
	m.saving = true
	m.notice = ""
	editor := m.editor
	return m, func() tea.Msg {
		user, err := editor.Submit()
		return profileSavedMsg{user: user, err: err}
	}
}

// handleProfileKey drives the profile mode from the chat screen.
func (m chatModel) handleProfileKey(key tea.KeyMsg) (chatModel, chatAction) {
	if m.prof.saving || m.prof.loading {
		return m, chatAction{}
	}
	switch key.String() {
	case "esc":
		m.editor.Close()
		m.mode = chatModeMessages
		return m, chatAction{}
	case "tab", "down":
		m.prof.setFocus(1)
		return m, chatAction{}
	case "shift+tab", "up":
		m.prof.setFocus(-1)
		return m, chatAction{}
	case "ctrl+s":
		prof, cmd := m.prof.submit()
		m.prof = prof
		if cmd != nil {
			return m, chatAction{kind: chatActionCmd, cmd: cmd}
		}
		return m, chatAction{}
	}
	fields := m.prof.inputs()
	updated, _ := fields[m.prof.focused].Update(key)
	*fields[m.prof.focused] = updated
	return m, chatAction{}
}

func (m profileModel) view(width, height int) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Mon profil") + "\n\n")

	if m.loading {
		s.WriteString(mutedStyle.Render("Chargement…"))
	} else {
		current := m.editor.Current()
		s.WriteString(mutedStyle.Render(current.Email) + "\n\n")
		s.WriteString("Nom:          " + m.name.View() + "\n")
		s.WriteString("Bio:          " + m.bio.View() + "\n")
		s.WriteString("Téléphone:    " + m.phone.View() + "\n")
		s.WriteString("Localisation: " + m.location.View() + "\n")
		s.WriteString("Avatar:       " + m.avatar.View() + "\n")
		if preview := m.editor.PreviewPath(); preview != "" {
			s.WriteString(mutedStyle.Render("              aperçu: "+preview) + "\n")
		}
		s.WriteString("\n")
		if m.notice != "" {
			s.WriteString(errorStyle.Render(m.notice) + "\n")
		}
		if m.saving {
			s.WriteString(mutedStyle.Render("Enregistrement…"))
		} else {
			s.WriteString(mutedStyle.Render("Ctrl+S: enregistrer • Échap: retour"))
		}
	}

	box := boxStyle.Render(s.String())
	if width == 0 || height == 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
