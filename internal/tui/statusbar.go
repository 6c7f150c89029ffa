package tui

import (
	"fmt"

	"github.com/rivo/tview"
)

// StatusBar displays profile, identity and transient notices.
type StatusBar struct {
	*tview.TextView
	profile string
	user    string
	flash   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	return &StatusBar{TextView: tv}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetUser updates the logged-in identity display.
func (sb *StatusBar) SetUser(name string) {
	sb.user = name
	sb.render()
}

// SetFlash sets a transient notice (errors surface here).
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	line := fmt.Sprintf(" [::b]%s[-:-:-]", sb.profile)
	if sb.user != "" {
		line += fmt.Sprintf(" | %s", sb.user)
	}
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}
	_, _ = fmt.Fprint(sb, line)
}
