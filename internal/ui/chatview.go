package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	chatpkg "github.com/Marcemmanuel1/messagerie-app/internal/chat"
	"github.com/Marcemmanuel1/messagerie-app/internal/profile"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// chatMode is the screen mode. Exactly one is active; the selected
// conversation is tracked separately and survives mode switches.
type chatMode int

const (
	chatModeMessages chatMode = iota
	chatModeProfile
	chatModeNewConversation
)

type chatActionKind int

const (
	chatActionNone chatActionKind = iota
	chatActionOpen
	chatActionSend
	chatActionClose
	chatActionLogout
	chatActionCmd
)

// chatAction is what a key press asks the app to do. Backend work never
// happens inside the model update.
type chatAction struct {
	kind         chatActionKind
	conversation domain.Conversation
	text         string
	cmd          tea.Cmd
}

// chatModel renders the messaging screen: conversation sidebar, message
// window, user search, and the profile editor mode.
type chatModel struct {
	self   domain.User
	dir    *chatpkg.Directory
	editor *profile.Editor

	mode         chatMode
	focusSidebar bool
	selected     int
	notice       string

	search   textinput.Model
	input    textinput.Model
	viewport viewport.Model

	width        int
	height       int
	sidebarWidth int

	prof profileModel
}

func newChatModel(self domain.User, dir *chatpkg.Directory, editor *profile.Editor) chatModel {
	search := textinput.New()
	search.Placeholder = "Rechercher…"
	search.CharLimit = 64
	search.Width = 24

	input := textinput.New()
	input.Placeholder = "Votre message…"
	input.CharLimit = 1000
	input.Width = 50

	return chatModel{
		self:         self,
		dir:          dir,
		editor:       editor,
		focusSidebar: true,
		search:       search,
		input:        input,
		viewport:     viewport.New(80, 20),
		sidebarWidth: 32,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) resize(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	m.width = width
	m.height = height
	m.sidebarWidth = width / 4
	if m.sidebarWidth < 28 {
		m.sidebarWidth = 28
	}
	chatWidth := width - m.sidebarWidth - 4
	m.viewport = viewport.New(chatWidth-4, height-9)
	m.input.Width = chatWidth - 6
	m.refresh()
}

// refresh re-renders the viewport from the directory. Called after every
// sync notification. A zero model (before sign-in) has nothing to render.
func (m *chatModel) refresh() {
	if m.dir == nil {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// restoreInput puts rejected text back in the compose box when the user has
// not started typing something else.
func (m *chatModel) restoreInput(text string) {
	if m.input.Value() == "" {
		m.input.SetValue(text)
	}
	m.notice = "Échec de l'envoi."
}

func (m *chatModel) clearInput() {
	m.input.SetValue("")
	m.notice = ""
}

func (m chatModel) update(msg tea.Msg) (chatModel, chatAction) {
	switch msg := msg.(type) {
	case profileLoadedMsg, profileSavedMsg:
		prof, cmd := m.prof.apply(msg)
		m.prof = prof
		if cmd != nil {
			return m, chatAction{kind: chatActionCmd, cmd: cmd}
		}
		return m, chatAction{}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	m.viewport, _ = m.viewport.Update(msg)
	return m, chatAction{}
}

func (m chatModel) handleKey(key tea.KeyMsg) (chatModel, chatAction) {
	if m.mode == chatModeProfile {
		return m.handleProfileKey(key)
	}
	if m.focusSidebar {
		return m.handleSidebarKey(key)
	}
	return m.handleComposeKey(key)
}

func (m chatModel) handleSidebarKey(key tea.KeyMsg) (chatModel, chatAction) {
	if m.search.Focused() {
		switch key.String() {
		case "esc":
			m.search.Blur()
			m.search.SetValue("")
		case "enter":
			m.search.Blur()
		default:
			m.search, _ = m.search.Update(key)
		}
		m.selected = 0
		return m, chatAction{}
	}

	switch key.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < m.listLength()-1 {
			m.selected++
		}
	case "/":
		m.search.Focus()
	case "enter", "l", "right":
		return m.selectCurrent()
	case "n":
		m.mode = chatModeNewConversation
		m.selected = 0
		m.search.SetValue("")
	case "p":
		m.mode = chatModeProfile
		m.prof = newProfileModel(m.editor)
		return m, chatAction{kind: chatActionCmd, cmd: m.prof.load()}
	case "esc":
		if m.mode == chatModeNewConversation {
			m.mode = chatModeMessages
			m.selected = 0
			return m, chatAction{}
		}
		if _, open := m.dir.OpenID(); open {
			return m, chatAction{kind: chatActionClose}
		}
	case "L":
		return m, chatAction{kind: chatActionLogout}
	case "q":
		return m, chatAction{kind: chatActionCmd, cmd: tea.Quit}
	}
	return m, chatAction{}
}

func (m chatModel) handleComposeKey(key tea.KeyMsg) (chatModel, chatAction) {
	switch key.String() {
	case "esc":
		m.focusSidebar = true
		m.input.Blur()
		return m, chatAction{}
	case "enter":
		if text := m.input.Value(); strings.TrimSpace(text) != "" {
			return m, chatAction{kind: chatActionSend, text: text}
		}
		return m, chatAction{}
	}
	m.input, _ = m.input.Update(key)
	m.viewport, _ = m.viewport.Update(key)
	return m, chatAction{}
}

func (m chatModel) selectCurrent() (chatModel, chatAction) {
	if m.mode == chatModeNewConversation {
		users := chatpkg.FilterUsers(m.dir.Users(), m.search.Value())
		if m.selected >= len(users) {
			return m, chatAction{}
		}
		peer := users[m.selected]
		for _, conv := range m.dir.Conversations() {
			if conv.OtherUserID == peer.ID {
				m.mode = chatModeMessages
				m.focusSidebar = false
				m.input.Focus()
				m.notice = ""
				return m, chatAction{kind: chatActionOpen, conversation: conv}
			}
		}
		m.notice = "Aucune conversation avec " + peer.Name + " pour l'instant."
		return m, chatAction{}
	}

	conversations := chatpkg.FilterConversations(m.dir.Conversations(), m.search.Value())
	if m.selected >= len(conversations) {
		return m, chatAction{}
	}
	m.focusSidebar = false
	m.input.Focus()
	m.notice = ""
	return m, chatAction{kind: chatActionOpen, conversation: conversations[m.selected]}
}

func (m chatModel) listLength() int {
	if m.mode == chatModeNewConversation {
		return len(chatpkg.FilterUsers(m.dir.Users(), m.search.Value()))
	}
	return len(chatpkg.FilterConversations(m.dir.Conversations(), m.search.Value()))
}

// --- view ---

func (m chatModel) view(disconnected bool) string {
	if m.mode == chatModeProfile {
		return m.prof.view(m.width, m.height)
	}
	sidebar := m.sidebarView()
	window := m.windowView(disconnected)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, window)
}

func (m chatModel) sidebarView() string {
	var s strings.Builder

	badge := ""
	if total := m.dir.UnreadTotal(); total > 0 {
		badge = unreadBadgeStyle.Render(fmt.Sprintf(" (%d)", total))
	}
	s.WriteString(titleStyle.Render(m.self.Name) + badge + "\n")
	s.WriteString(m.search.View() + "\n\n")

	if m.mode == chatModeNewConversation {
		s.WriteString(mutedStyle.Render("Nouvelle conversation") + "\n")
		users := chatpkg.FilterUsers(m.dir.Users(), m.search.Value())
		for i, u := range users {
			line := statusDot(u.Status) + " " + u.Name
			s.WriteString(m.listItem(line, i) + "\n")
		}
		if len(users) == 0 {
			s.WriteString(mutedStyle.Render("Aucun utilisateur.") + "\n")
		}
	} else {
		conversations := chatpkg.FilterConversations(m.dir.Conversations(), m.search.Value())
		for i, conv := range conversations {
			unread := ""
			if conv.UnreadCount > 0 {
				unread = unreadBadgeStyle.Render(fmt.Sprintf(" (%d)", conv.UnreadCount))
			}
			line := statusDot(conv.OtherUserStatus) + " " + conv.OtherUserName + unread
			if conv.LastMessage != "" {
				line += "\n" + mutedStyle.Render(truncate(conv.LastMessage, m.sidebarWidth-6))
			}
			s.WriteString(m.listItem(line, i) + "\n")
		}
		if len(conversations) == 0 {
			s.WriteString(mutedStyle.Render("Aucune conversation.\n'n' pour en démarrer une."))
		}
	}

	s.WriteString("\n" + mutedStyle.Render("n: nouveau  p: profil  L: déconnexion"))

	border := mutedColor
	if m.focusSidebar {
		border = activeBorder
	}
	style := sidebarStyle.BorderForeground(border).Width(m.sidebarWidth - 2)
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(s.String())
}

func (m chatModel) windowView(disconnected bool) string {
	chatWidth := m.width - m.sidebarWidth - 4
	if chatWidth < 20 {
		chatWidth = 60
	}

	peer, open := m.dir.OpenPeer()
	if !open {
		hint := "Sélectionnez une conversation"
		if m.notice != "" {
			hint = m.notice
		}
		return chatWindowStyle.Width(chatWidth).Render(
			lipgloss.Place(chatWidth, max(m.height-4, 5), lipgloss.Center, lipgloss.Center,
				mutedStyle.Render(hint)))
	}

	headerText := peer.Name + "  " + statusLabel(peer.Status)
	if disconnected {
		headerText += "  " + errorStyle.Render("⟳ reconnexion…")
	}
	header := headerStyle.Width(chatWidth - 2).Render(headerText)

	body := m.viewport.View()
	if !m.dir.HistoryLoaded() {
		body = mutedStyle.Render("Chargement des messages…")
	}

	footerContent := m.input.View()
	if m.notice != "" {
		footerContent = errorStyle.Render(m.notice) + "\n" + footerContent
	}
	footer := footerStyle.Width(chatWidth - 2).Render(footerContent)

	border := mutedColor
	if !m.focusSidebar {
		border = activeBorder
	}
	return chatWindowStyle.BorderForeground(border).Width(chatWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))
}

func (m chatModel) renderMessages() string {
	var s strings.Builder
	for _, msg := range m.dir.Messages() {
		style := otherMessageStyle
		if msg.SenderID == m.self.ID {
			style = ownMessageStyle
		}
		body := msg.Content
		if msg.HasAttachment() {
			if body != "" {
				body += " "
			}
			body += mutedStyle.Render("[" + msg.Preview() + ": " + msg.FileURL + "]")
		}
		s.WriteString(fmt.Sprintf("%s %s: %s\n",
			mutedStyle.Render(shortTime(msg.CreatedAt)),
			style.Render(msg.SenderName),
			body))
	}
	return s.String()
}

func (m chatModel) listItem(line string, index int) string {
	if index == m.selected && m.focusSidebar {
		return selectedItemStyle.Render(line)
	}
	return unselectedItemStyle.Render(line)
}

func statusDot(status domain.Status) string {
	if status == domain.StatusOnline {
		return onlineStyle.Render("●")
	}
	return mutedStyle.Render("○")
}

func statusLabel(status domain.Status) string {
	if status == domain.StatusOnline {
		return onlineStyle.Render(string(status))
	}
	return mutedStyle.Render(string(status))
}

// shortTime trims a server timestamp down to the clock part for display.
func shortTime(ts string) string {
	if len(ts) >= 16 && ts[10] == 'T' {
		return ts[11:16]
	}
	return ts
}

func truncate(s string, width int) string {
	if width < 4 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
