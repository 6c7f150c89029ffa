package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/directory"
)

// Synchronizer owns the in-memory tail of the open conversation: it loads
// history, consumes the live insert stream, and appends new messages in
// arrival order.
//
// At most one live subscription exists at any instant. Open tears down the
// previous subscription before the next one becomes active.
//
// The load-then-subscribe ordering is made safe by subscribing first and
// de-duplicating by message id: an insert delivered while history is still
// loading waits in the subscription buffer and is discarded on drain if the
// history load already returned it.
type Synchronizer struct {
	db     *directory.DB
	logger *zap.Logger
	selfID string

	mu        sync.Mutex
	conv      *directory.Conversation
	otherName string
	thread    []ThreadMessage
	seen      map[string]struct{}
	sub       *directory.Subscription

	onAppend func(ThreadMessage)
}

// NewSynchronizer creates a synchronizer for the given local user.
func NewSynchronizer(db *directory.DB, selfID string, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{db: db, selfID: selfID, logger: logger}
}

// SetOnAppend registers a callback invoked for every message appended from
// the live stream (used by the view to redraw and by the contact list to
// patch its preview). Must be set before Open.
func (s *Synchronizer) SetOnAppend(fn func(ThreadMessage)) {
	s.mu.Lock()
	s.onAppend = fn
	s.mu.Unlock()
}

// Open makes conv the active conversation: closes any previous
// subscription, subscribes to the conversation's inserts, loads the full
// history ordered by timestamp ascending, then starts consuming the live
// stream. otherName is the display name of the other party, used for
// sender annotation.
func (s *Synchronizer) Open(conv *directory.Conversation, otherName string) error {
	s.Close()

	// Subscribe before loading history so no insert can fall between the
	// two; duplicates are filtered by id when the stream is drained.
	sub := s.db.SubscribeMessageInserts(conv.ID, 256)

	history, err := s.db.ListMessages(conv.ID)
	if err != nil {
		sub.Close()
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	s.conv = conv
	s.otherName = otherName
	s.sub = sub
	s.seen = make(map[string]struct{}, len(history))
	s.thread = make([]ThreadMessage, 0, len(history))
	for _, m := range history {
		s.seen[m.ID] = struct{}{}
		s.thread = append(s.thread, s.annotate(m))
	}
	s.mu.Unlock()

	go s.pump(conv.ID, sub)
	return nil
}

// pump consumes the live stream until the subscription is closed.
func (s *Synchronizer) pump(conversationID string, sub *directory.Subscription) {
	for msg := range sub.Events() {
		s.apply(conversationID, sub, msg)
	}
}

func (s *Synchronizer) apply(conversationID string, sub *directory.Subscription, msg directory.Message) {
	s.mu.Lock()
	// A late delivery for an abandoned conversation is discarded.
	if s.sub != sub || s.conv == nil || s.conv.ID != conversationID {
		s.mu.Unlock()
		return
	}
	if msg.ConversationID != conversationID {
		s.mu.Unlock()
		return
	}
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[msg.ID] = struct{}{}
	tm := s.annotate(msg)
	s.thread = append(s.thread, tm)
	cb := s.onAppend
	s.mu.Unlock()

	if cb != nil {
		cb(tm)
	}
}

func (s *Synchronizer) annotate(m directory.Message) ThreadMessage {
	name := s.otherName
	if m.SenderID == s.selfID {
		name = "You"
	}
	return ThreadMessage{Message: m, SenderName: name}
}

// Messages returns a copy of the open conversation's in-memory thread.
func (s *Synchronizer) Messages() []ThreadMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ThreadMessage, len(s.thread))
	copy(out, s.thread)
	return out
}

// Conversation returns the active conversation, or nil when none is open.
func (s *Synchronizer) Conversation() *directory.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

// Send inserts a message into the open conversation and points the
// conversation's preview metadata at it. Empty or whitespace-only bodies
// and sends with no open conversation are rejected silently: no store call
// is made and no message is returned.
//
// The message insert and the conversation update are two writes. If the
// second fails the message is still sent; the preview stays stale until the
// next full reload.
func (s *Synchronizer) Send(body string) (*directory.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	s.mu.Lock()
	conv := s.conv
	s.mu.Unlock()
	if conv == nil {
		return nil, nil
	}

	msg := &directory.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       s.selfID,
		Context:        body,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := s.db.InsertMessage(msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if err := s.db.UpdateConversationLastMessage(conv.ID, msg.ID, msg.Timestamp); err != nil {
		s.logger.Warn("conversation preview not updated, stale until next reload",
			zap.String("conversation_id", conv.ID),
			zap.Error(err))
	}
	return msg, nil
}

// Close tears down the live subscription. Idempotent; safe to call with no
// open conversation.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.conv = nil
	s.thread = nil
	s.seen = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}
