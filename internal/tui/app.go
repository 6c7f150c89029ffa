// Package tui implements the terminal interface: auth forms, the contact
// list with previews, and the open message thread.
package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/chat"
	"github.com/pairchat/pairchat/internal/directory"
	"github.com/pairchat/pairchat/internal/session"
	"github.com/pairchat/pairchat/internal/status"
)

// App is the root of the terminal interface. Chat components are built on
// login because they are bound to the logged-in user's id.
type App struct {
	app     *tview.Application
	pages   *tview.Pages
	db      *directory.DB
	provide *session.Provider
	machine *status.Machine
	logger  *zap.Logger
	profile string

	statusBar *StatusBar
	auth      *AuthView
	contacts  *ContactList
	search    *tview.InputField
	thread    *ThreadView
	composer  *Composer

	resolver  *chat.Resolver
	projector *chat.Projector
	sync      *chat.Synchronizer
}

// New creates the application shell and both pages.
func New(db *directory.DB, provider *session.Provider, machine *status.Machine, profileName string, logger *zap.Logger) *App {
	a := &App{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		db:      db,
		provide: provider,
		machine: machine,
		logger:  logger,
		profile: profileName,
	}

	a.statusBar = NewStatusBar()
	a.statusBar.SetProfile(profileName)

	a.auth = NewAuthView(provider)
	a.auth.SetOnNotice(a.flash)
	a.auth.SetOnLoggedIn(func(u *session.User) {
		if err := a.machine.Transition(status.Ready); err != nil {
			a.logger.Error("state transition failed", zap.Error(err))
		}
		a.enterMain(u)
	})

	a.contacts = NewContactList()
	a.search = tview.NewInputField().SetLabel(" Search: ").SetFieldWidth(0)
	a.thread = NewThreadView()
	a.composer = NewComposer()

	a.contacts.SetSelectedFunc(func(row, col int) {
		if c := a.contacts.Selected(); c != nil {
			a.openConversation(c)
		}
	})
	a.search.SetChangedFunc(func(term string) {
		if a.projector == nil {
			return
		}
		filtered, err := a.projector.Filter(term)
		if err != nil {
			a.logger.Error("contact search failed", zap.Error(err))
			a.flash("Search failed")
			return
		}
		a.contacts.Update(filtered)
	})
	a.composer.SetOnSend(func(text string) {
		if a.sync == nil {
			return
		}
		msg, err := a.sync.Send(text)
		if err != nil {
			a.logger.Error("send failed", zap.Error(err))
			a.flash("Message not sent: " + err.Error())
			return
		}
		if msg != nil {
			a.flash("")
		}
	})

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.search, 1, 0, false).
		AddItem(a.contacts, 0, 1, true)
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, false)
	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(left, 0, 1, true).
			AddItem(right, 0, 2, false), 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage("auth", tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.auth, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false), true, false)
	a.pages.AddPage("main", main, true, false)

	a.app.SetInputCapture(a.handleKey)
	a.app.SetRoot(a.pages, true)
	return a
}

// Run blocks until the interface exits.
func (a *App) Run() error {
	if a.provide.LoggedIn() {
		if err := a.machine.Transition(status.Ready); err != nil {
			return err
		}
		a.enterMain(a.provide.CurrentUser())
	} else {
		if err := a.machine.Transition(status.AuthRequired); err != nil {
			return err
		}
		a.pages.SwitchToPage("auth")
	}
	return a.app.Run()
}

// Stop terminates the interface from outside the event loop.
func (a *App) Stop() {
	a.app.Stop()
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlL:
		if a.machine.Current() == status.Ready {
			a.logout()
			return nil
		}
	case tcell.KeyTab:
		if a.machine.Current() == status.Ready {
			a.cycleFocus()
			return nil
		}
	}
	return event
}

// cycleFocus moves search -> contacts -> composer -> search.
func (a *App) cycleFocus() {
	switch {
	case a.search.HasFocus():
		a.app.SetFocus(a.contacts)
	case a.contacts.HasFocus():
		a.app.SetFocus(a.composer)
	default:
		a.app.SetFocus(a.search)
	}
}

// enterMain builds the per-user chat components and shows the main page.
func (a *App) enterMain(u *session.User) {
	a.resolver = chat.NewResolver(a.db, a.logger)
	a.projector = chat.NewProjector(a.db, u.ID, a.logger)
	a.sync = chat.NewSynchronizer(a.db, u.ID, a.logger)

	a.contacts.SetSelfID(u.ID)
	a.statusBar.SetUser(u.Name)
	a.statusBar.SetFlash("")

	a.reloadContacts()
	a.thread.SetThread("Messages", nil)
	a.pages.SwitchToPage("main")
	a.app.SetFocus(a.contacts)
}

func (a *App) reloadContacts() {
	contacts, err := a.projector.Project()
	if err != nil {
		a.logger.Error("contact projection failed", zap.Error(err))
		a.flash("Could not load contacts")
		return
	}
	a.contacts.Update(contacts)
}

func (a *App) openConversation(c *chat.ContactPreview) {
	conv, err := a.resolver.Resolve(a.provide.CurrentUserID(), c.Client.ID)
	if err != nil {
		a.logger.Error("conversation resolution failed",
			zap.String("other_id", c.Client.ID), zap.Error(err))
		a.flash("Could not open conversation")
		return
	}
	// The append callback is bound to this conversation's contact so a
	// delivery queued before a later switch cannot patch the wrong preview.
	contactID := c.Client.ID
	a.sync.SetOnAppend(func(tm chat.ThreadMessage) {
		a.app.QueueUpdateDraw(func() {
			a.applyLiveMessage(contactID, tm)
		})
	})

	if err := a.sync.Open(conv, c.Client.Name); err != nil {
		a.logger.Error("thread load failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		a.flash("Could not load messages")
		return
	}
	a.thread.SetThread(c.Client.Name, a.sync.Messages())
	a.app.SetFocus(a.composer)
}

// applyLiveMessage appends a delivered message to the thread view and
// patches the matching contact's preview. Runs on the UI loop; deliveries
// queued before a conversation switch carry the old conversation id and are
// dropped.
func (a *App) applyLiveMessage(contactID string, tm chat.ThreadMessage) {
	cur := a.sync.Conversation()
	if cur == nil || cur.ID != tm.ConversationID {
		return
	}
	a.thread.Append(tm)
	a.projector.ApplyMessage(contactID, tm.Message)
	a.contacts.Update(a.projector.Contacts())
}

func (a *App) logout() {
	a.sync.Close()
	if err := a.provide.Logout(); err != nil {
		a.logger.Error("logout failed", zap.Error(err))
		a.flash("Logout failed")
		return
	}
	if err := a.machine.Transition(status.AuthRequired); err != nil {
		a.logger.Error("state transition failed", zap.Error(err))
	}
	a.statusBar.SetUser("")
	a.pages.SwitchToPage("auth")
	a.app.SetFocus(a.auth)
}

func (a *App) flash(msg string) {
	a.statusBar.SetFlash(msg)
}
