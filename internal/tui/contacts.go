package tui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/pairchat/pairchat/internal/chat"
)

// ContactList is the left-hand contact table with name, preview and time
// columns.
type ContactList struct {
	*tview.Table
	contacts []chat.ContactPreview
	selfID   string
}

// NewContactList creates the contact table.
func NewContactList() *ContactList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Contacts ")
	return &ContactList{Table: table}
}

// SetSelfID sets the local user id used to label previews.
func (cl *ContactList) SetSelfID(id string) {
	cl.selfID = id
}

// Update refreshes the table with new contacts.
func (cl *ContactList) Update(contacts []chat.ContactPreview) {
	cl.contacts = contacts
	cl.Clear()

	cl.SetCell(0, 0, tview.NewTableCell(" Name").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, c := range contacts {
		row := i + 1
		preview := "No messages yet."
		ts := ""
		if c.LastMessage != nil {
			label := c.Client.Name
			if c.LastMessage.SenderID == cl.selfID {
				label = "You"
			}
			preview = fmt.Sprintf("%s: %s", label, c.LastMessage.Context)
			ts = formatTimestamp(c.LastMessage.Timestamp)
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+c.Client.Name).SetMaxWidth(24).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+preview).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+ts).SetMaxWidth(12))
	}
}

// Selected returns the currently selected contact, or nil.
func (cl *ContactList) Selected() *chat.ContactPreview {
	row, _ := cl.GetSelection()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.contacts) {
		return &cl.contacts[idx]
	}
	return nil
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
