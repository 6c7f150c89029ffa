package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pairchat/pairchat/internal/chat"
)

// ThreadView renders the open conversation's messages.
type ThreadView struct {
	*tview.TextView
}

// NewThreadView creates the message thread view.
func NewThreadView() *ThreadView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true).SetTitle(" Messages ")
	return &ThreadView{TextView: tv}
}

// SetThread replaces the rendered history.
func (tv *ThreadView) SetThread(title string, msgs []chat.ThreadMessage) {
	tv.SetTitle(fmt.Sprintf(" %s ", title))
	tv.Clear()
	for _, m := range msgs {
		tv.writeMessage(m)
	}
	tv.ScrollToEnd()
}

// Append renders one newly arrived message.
func (tv *ThreadView) Append(m chat.ThreadMessage) {
	tv.writeMessage(m)
	tv.ScrollToEnd()
}

func (tv *ThreadView) writeMessage(m chat.ThreadMessage) {
	color := "blue"
	if m.SenderName == "You" {
		color = "green"
	}
	_, _ = fmt.Fprintf(tv, "[%s]%s[-] [gray]%s[-]\n%s\n\n",
		color, m.SenderName, formatTimestamp(m.Timestamp), tview.Escape(m.Context))
}

// Composer is the text input for sending messages.
type Composer struct {
	*tview.InputField
	onSend func(text string)
}

// NewComposer creates a new message composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &Composer{InputField: input}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			text := c.GetText()
			if text != "" {
				c.onSend(text)
				c.SetText("")
			}
		}
	})

	return c
}

// SetOnSend sets the callback when a message is sent.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}
