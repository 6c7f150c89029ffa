package chat

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/directory"
)

// Projector builds the contact list: every other client in the directory,
// each decorated with the last message of its conversation with the local
// user.
type Projector struct {
	db     *directory.DB
	logger *zap.Logger
	selfID string

	mu       sync.Mutex
	contacts []ContactPreview
}

// NewProjector creates a projector for the given local user.
func NewProjector(db *directory.DB, selfID string, logger *zap.Logger) *Projector {
	return &Projector{db: db, logger: logger, selfID: selfID}
}

// Project computes the full contact list: all clients except the local
// user, each with the preview of their conversation with the local user
// (absent when none). The result is kept as the snapshot that Filter("")
// and ApplyMessage operate on.
func (p *Projector) Project() ([]ContactPreview, error) {
	clients, err := p.db.ListClients(p.selfID)
	if err != nil {
		return nil, fmt.Errorf("project clients: %w", err)
	}

	convs, err := p.db.ListConversationsByUser(p.selfID)
	if err != nil {
		return nil, fmt.Errorf("project conversations: %w", err)
	}

	var lastIDs []string
	for _, c := range convs {
		if c.LastMessageID != "" {
			lastIDs = append(lastIDs, c.LastMessageID)
		}
	}

	lastMsgs, err := p.db.GetMessagesByIDs(lastIDs)
	if err != nil {
		return nil, fmt.Errorf("project last messages: %w", err)
	}
	byID := make(map[string]directory.Message, len(lastMsgs))
	for _, m := range lastMsgs {
		byID[m.ID] = m
	}

	// Other-party identity -> that conversation's last message.
	previewByOther := make(map[string]directory.Message, len(convs))
	for _, c := range convs {
		msg, ok := byID[c.LastMessageID]
		if !ok {
			continue
		}
		other := c.User1ID
		if other == p.selfID {
			other = c.User2ID
		}
		previewByOther[other] = msg
	}

	contacts := make([]ContactPreview, 0, len(clients))
	for _, c := range clients {
		cp := ContactPreview{Client: c}
		if msg, ok := previewByOther[c.ID]; ok {
			m := msg
			cp.LastMessage = &m
		}
		contacts = append(contacts, cp)
	}

	p.mu.Lock()
	p.contacts = contacts
	p.mu.Unlock()

	return p.snapshot(), nil
}

// Filter returns the contacts matching term. An empty term returns the last
// full projection unchanged. A non-empty term queries the directory by name
// substring (case-insensitive); matches carry identity only, no preview,
// until selected.
func (p *Projector) Filter(term string) ([]ContactPreview, error) {
	if term == "" {
		return p.snapshot(), nil
	}

	clients, err := p.db.SearchClients(term, p.selfID)
	if err != nil {
		return nil, fmt.Errorf("filter clients: %w", err)
	}
	contacts := make([]ContactPreview, 0, len(clients))
	for _, c := range clients {
		contacts = append(contacts, ContactPreview{Client: c})
	}
	return contacts, nil
}

// ApplyMessage patches a single contact's preview in place when a new
// message arrives, leaving the rest of the list and its order untouched.
func (p *Projector) ApplyMessage(otherID string, msg directory.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.contacts {
		if p.contacts[i].Client.ID == otherID {
			m := msg
			p.contacts[i].LastMessage = &m
			return
		}
	}
}

// Contacts returns the last full projection.
func (p *Projector) Contacts() []ContactPreview {
	return p.snapshot()
}

func (p *Projector) snapshot() []ContactPreview {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ContactPreview, len(p.contacts))
	copy(out, p.contacts)
	return out
}
