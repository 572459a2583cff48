// Package ui renders the terminal client: the sign-in screen, the messaging
// screen with its conversation sidebar, and the profile editor. All backend
// state lives in the session, directory and realtime layers; the models here
// only translate key presses into calls and snapshots into frames.
package ui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	chatpkg "github.com/Marcemmanuel1/messagerie-app/internal/chat"
	"github.com/Marcemmanuel1/messagerie-app/internal/profile"
	"github.com/Marcemmanuel1/messagerie-app/internal/realtime"
	"github.com/Marcemmanuel1/messagerie-app/internal/session"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

type screen int

const (
	screenLoading screen = iota
	screenAuth
	screenChat
)

const maxReconnects = 5

// --- messages ---

type guardResultMsg struct {
	user domain.User
	err  error
}

type authDoneMsg struct{ err error }

type connectedMsg struct {
	channel *realtime.Channel
	err     error
}

type directoryLoadedMsg struct{ err error }

// stateChangedMsg is posted whenever the sync layer mutates the directory.
type stateChangedMsg struct{}

type sendFailedMsg struct{ text string }

type channelDroppedMsg struct{ err error }

type reconnectMsg struct{}

type historyMsg struct {
	conversationID int64
	err            error
}

type loggedOutMsg struct{}

// App is the root model. It owns the connection lifecycle and switches
// between the auth screen and the messaging screen.
type App struct {
	api     *api.Client
	session *session.Session
	guard   *session.Guard

	width  int
	height int
	screen screen

	auth authModel
	chat chatModel

	channel  *realtime.Channel
	dir      *chatpkg.Directory
	sync     *chatpkg.Sync
	composer *chatpkg.Composer

	reconnects     int
	disconnected   bool
	waitersStarted bool

	// changes coalesces sync-layer notifications; failures carries composer
	// rejections back to the input; dropped signals a lost connection.
	changes  chan struct{}
	failures chan string
	dropped  chan error
}

// NewApp wires the root model. The session should already be restored from
// the credential store; the guard verdict decides the first screen.
func NewApp(apiClient *api.Client, sess *session.Session) *App {
	return &App{
		api:      apiClient,
		session:  sess,
		guard:    session.NewGuard(sess),
		screen:   screenLoading,
		auth:     newAuthModel(),
		changes:  make(chan struct{}, 1),
		failures: make(chan string, 4),
		dropped:  make(chan error, 1),
	}
}

// Run starts the program in the alternate screen.
func Run(apiClient *api.Client, sess *session.Session) error {
	p := tea.NewProgram(NewApp(apiClient, sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.authorize(), a.auth.Init())
}

// --- commands ---

func (a *App) authorize() tea.Cmd {
	return func() tea.Msg {
		user, err := a.guard.Authorize()
		return guardResultMsg{user: user, err: err}
	}
}

func (a *App) connect() tea.Cmd {
	serverURL := a.api.BaseURL()
	token := a.session.Token()
	deviceID := a.session.DeviceID()
	return func() tea.Msg {
		ch, err := realtime.Dial(serverURL, token, deviceID)
		return connectedMsg{channel: ch, err: err}
	}
}

func (a *App) loadDirectory() tea.Cmd {
	dir, token := a.dir, a.session.Token()
	return func() tea.Msg {
		return directoryLoadedMsg{err: dir.Load(token)}
	}
}

func (a *App) openConversation(conv domain.Conversation) tea.Cmd {
	s := a.sync
	return func() tea.Msg {
		return historyMsg{conversationID: conv.ID, err: s.Open(conv)}
	}
}

func (a *App) logout() tea.Cmd {
	sess := a.session
	return func() tea.Msg {
		_ = sess.Logout()
		return loggedOutMsg{}
	}
}

func (a *App) waitChange() tea.Cmd {
	return func() tea.Msg {
		<-a.changes
		return stateChangedMsg{}
	}
}

func (a *App) waitFailure() tea.Cmd {
	return func() tea.Msg {
		return sendFailedMsg{text: <-a.failures}
	}
}

func (a *App) waitDrop() tea.Cmd {
	return func() tea.Msg {
		return channelDroppedMsg{err: <-a.dropped}
	}
}

// attach builds the sync machinery around a freshly dialed channel.
func (a *App) attach(channel *realtime.Channel) {
	a.channel = channel
	if a.dir == nil {
		a.dir = chatpkg.NewDirectory(a.api)
	}
	a.sync = chatpkg.NewSync(a.dir, channel, a.session.User().ID, a.session.Token(), func() {
		select {
		case a.changes <- struct{}{}:
		default:
		}
	})
	a.composer = chatpkg.NewComposer(a.dir, channel, func(text string, err error) {
		a.failures <- text
	})
	channel.OnClose(func(err error) {
		if err != nil {
			select {
			case a.dropped <- err:
			default:
			}
		}
	})
}

func (a *App) teardown() {
	if a.channel != nil {
		a.channel.Close()
		a.channel = nil
	}
	a.sync = nil
	a.composer = nil
	a.dir = nil
	a.disconnected = false
	a.reconnects = 0
}

// --- update ---

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.chat.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.teardown()
			return a, tea.Quit
		}

	case guardResultMsg:
		if msg.err != nil {
			a.screen = screenAuth
			if !errors.Is(msg.err, session.ErrNotAuthenticated) {
				a.auth.notice = "Vérification de session impossible, reconnectez-vous."
			}
			return a, nil
		}
		return a, a.connect()

	case authDoneMsg:
		a.auth.submitting = false
		if msg.err != nil {
			a.auth.applyError(msg.err)
			return a, nil
		}
		a.screen = screenLoading
		return a, a.connect()

	case connectedMsg:
		if msg.err != nil {
			if a.screen == screenChat && a.reconnects < maxReconnects {
				a.reconnects++
				delay := time.Second * time.Duration(a.reconnects)
				return a, tea.Tick(delay, func(time.Time) tea.Msg { return reconnectMsg{} })
			}
			a.screen = screenAuth
			a.auth.notice = "Connexion au serveur impossible."
			return a, nil
		}
		a.reconnects = 0
		a.disconnected = false
		a.attach(msg.channel)
		var cmds []tea.Cmd
		if !a.waitersStarted {
			a.waitersStarted = true
			cmds = append(cmds, a.waitChange(), a.waitFailure(), a.waitDrop())
		}
		// A reconnect refetches too: events missed during the outage left
		// the cache stale, and Load is a full refresh.
		cmds = append(cmds, a.loadDirectory())
		return a, tea.Batch(cmds...)

	case directoryLoadedMsg:
		if msg.err != nil {
			// A partial directory is never rendered: back to the entry
			// screen, whatever the failure.
			var apiErr *api.APIError
			if errors.As(msg.err, &apiErr) && apiErr.IsAuthError() {
				_ = a.session.Invalidate()
				a.teardown()
				a.screen = screenAuth
				a.auth.notice = "Session expirée, reconnectez-vous."
				return a, nil
			}
			a.teardown()
			a.screen = screenAuth
			a.auth.notice = "Chargement des conversations impossible, réessayez."
			return a, nil
		}
		if a.screen == screenChat {
			a.chat.refresh()
			return a, nil
		}
		a.chat = newChatModel(a.session.User(), a.dir, profile.NewEditor(a.api, a.session.Token()))
		a.chat.resize(a.width, a.height)
		a.screen = screenChat
		return a, a.chat.Init()

	case stateChangedMsg:
		a.chat.refresh()
		return a, a.waitChange()

	case sendFailedMsg:
		a.chat.restoreInput(msg.text)
		return a, a.waitFailure()

	case channelDroppedMsg:
		a.disconnected = true
		a.reconnects = 0
		return a, tea.Tick(time.Second, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		return a, a.connect()

	case historyMsg:
		if msg.err != nil {
			a.chat.notice = "Chargement des messages impossible."
		}
		a.chat.refresh()
		return a, nil

	case loggedOutMsg:
		a.teardown()
		a.auth = newAuthModel()
		a.screen = screenAuth
		return a, a.auth.Init()

	case profileSavedMsg:
		// Keep the session snapshot aligned with the canonical record.
		if msg.err == nil {
			a.session.SetUser(msg.user)
		}
		return a.updateChat(msg)
	}

	switch a.screen {
	case screenAuth:
		model, cmd := a.auth.update(msg, a.session)
		a.auth = model
		return a, cmd
	case screenChat:
		return a.updateChat(msg)
	}
	return a, nil
}

// updateChat routes a message to the chat model and executes the actions it
// requests. Actions that talk to the backend run as commands.
func (a *App) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, action := a.chat.update(msg)
	a.chat = model
	switch action.kind {
	case chatActionNone:
		return a, nil
	case chatActionOpen:
		return a, a.openConversation(action.conversation)
	case chatActionSend:
		if a.composer != nil && a.composer.Send(action.text) {
			a.chat.clearInput()
		}
		return a, nil
	case chatActionClose:
		if a.sync != nil {
			a.sync.Close()
		}
		a.chat.refresh()
		return a, nil
	case chatActionLogout:
		return a, a.logout()
	case chatActionCmd:
		return a, action.cmd
	}
	return a, nil
}

// --- view ---

func (a *App) View() string {
	switch a.screen {
	case screenLoading:
		return mutedStyle.Render("Connexion…")
	case screenAuth:
		return a.auth.view(a.width, a.height)
	case screenChat:
		return a.chat.view(a.disconnected)
	}
	return ""
}
