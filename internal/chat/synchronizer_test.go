package chat

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/bus"
	"github.com/pairchat/pairchat/internal/directory"
)

// appendRecorder collects OnAppend callbacks so tests can wait for the live
// stream instead of sleeping.
type appendRecorder struct {
	ch chan ThreadMessage
}

func newAppendRecorder() *appendRecorder {
	return &appendRecorder{ch: make(chan ThreadMessage, 16)}
}

func (r *appendRecorder) wait(t *testing.T) ThreadMessage {
	t.Helper()
	select {
	case tm := <-r.ch:
		return tm
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for live append")
		return ThreadMessage{}
	}
}

func (r *appendRecorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case tm := <-r.ch:
		t.Errorf("unexpected live append: %v", tm)
	case <-time.After(100 * time.Millisecond):
	}
}

func openPair(t *testing.T) (*directory.DB, *directory.Conversation, *Synchronizer, *appendRecorder) {
	t.Helper()
	db, _ := testStore(t)
	seedClient(t, db, "u1", "alice")
	seedClient(t, db, "u2", "bob")

	conv, err := NewResolver(db, zap.NewNop()).Resolve("u1", "u2")
	if err != nil {
		t.Fatal(err)
	}

	s := NewSynchronizer(db, "u1", zap.NewNop())
	rec := newAppendRecorder()
	s.SetOnAppend(func(tm ThreadMessage) { rec.ch <- tm })
	t.Cleanup(s.Close)
	return db, conv, s, rec
}

func TestOpenLoadsAnnotatedHistory(t *testing.T) {
	db, conv, s, _ := openPair(t)

	for _, m := range []directory.Message{
		{ID: "m1", ConversationID: conv.ID, SenderID: "u1", Context: "hi", Timestamp: 1000},
		{ID: "m2", ConversationID: conv.ID, SenderID: "u2", Context: "hey", Timestamp: 2000},
	} {
		if err := db.InsertMessage(&m); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].SenderName != "You" {
		t.Errorf("msgs[0].SenderName = %q, want You", msgs[0].SenderName)
	}
	if msgs[1].SenderName != "bob" {
		t.Errorf("msgs[1].SenderName = %q, want bob", msgs[1].SenderName)
	}
}

func TestLiveInsertAppends(t *testing.T) {
	db, conv, s, rec := openPair(t)

	if err := db.InsertMessage(&directory.Message{ID: "m1", ConversationID: conv.ID, SenderID: "u1", Context: "hi", Timestamp: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}

	if err := db.InsertMessage(&directory.Message{ID: "m2", ConversationID: conv.ID, SenderID: "u2", Context: "hey", Timestamp: 2000}); err != nil {
		t.Fatal(err)
	}

	tm := rec.wait(t)
	if tm.ID != "m2" || tm.SenderName != "bob" {
		t.Errorf("appended = %v/%v, want m2/bob", tm.ID, tm.SenderName)
	}

	msgs := s.Messages()
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Errorf("thread = %v, want [m1 m2]", msgs)
	}
}

func TestForeignConversationInsertIgnored(t *testing.T) {
	db, conv, s, rec := openPair(t)
	seedClient(t, db, "u3", "carol")

	other, err := NewResolver(db, zap.NewNop()).Resolve("u1", "u3")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}

	if err := db.InsertMessage(&directory.Message{ID: "mx", ConversationID: other.ID, SenderID: "u3", Context: "elsewhere", Timestamp: 1000}); err != nil {
		t.Fatal(err)
	}

	rec.expectNone(t)
	if len(s.Messages()) != 0 {
		t.Errorf("thread changed on foreign-conversation insert: %v", s.Messages())
	}
}

func TestDuplicateEventDiscarded(t *testing.T) {
	db, b := testStore(t)
	seedClient(t, db, "u1", "alice")
	seedClient(t, db, "u2", "bob")
	conv, err := NewResolver(db, zap.NewNop()).Resolve("u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	s := NewSynchronizer(db, "u1", zap.NewNop())
	rec := newAppendRecorder()
	s.SetOnAppend(func(tm ThreadMessage) { rec.ch <- tm })
	t.Cleanup(s.Close)

	msg := directory.Message{ID: "m1", ConversationID: conv.ID, SenderID: "u2", Context: "hi", Timestamp: 1000}
	if err := db.InsertMessage(&msg); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}

	// Redelivery of a message already present in history must be dropped.
	b.Publish(bus.Event{Kind: "insert.messages", Timestamp: time.Now(), Payload: &msg})

	rec.expectNone(t)
	if got := len(s.Messages()); got != 1 {
		t.Errorf("thread length = %d, want 1", got)
	}
}

func TestSwitchingConversationsMovesSubscription(t *testing.T) {
	db, conv1, s, rec := openPair(t)
	seedClient(t, db, "u3", "carol")

	conv2, err := NewResolver(db, zap.NewNop()).Resolve("u1", "u3")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Open(conv1, "bob"); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(conv2, "carol"); err != nil {
		t.Fatal(err)
	}

	// An insert into the abandoned conversation must not surface.
	if err := db.InsertMessage(&directory.Message{ID: "old", ConversationID: conv1.ID, SenderID: "u2", Context: "late", Timestamp: 1000}); err != nil {
		t.Fatal(err)
	}
	rec.expectNone(t)

	// The new conversation's stream is live.
	if err := db.InsertMessage(&directory.Message{ID: "new", ConversationID: conv2.ID, SenderID: "u3", Context: "hello", Timestamp: 2000}); err != nil {
		t.Fatal(err)
	}
	tm := rec.wait(t)
	if tm.ID != "new" || tm.SenderName != "carol" {
		t.Errorf("appended = %v/%v, want new/carol", tm.ID, tm.SenderName)
	}
}

func TestSendRejectsEmptyBody(t *testing.T) {
	db, conv, s, _ := openPair(t)
	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}

	for _, body := range []string{"", "   ", "\n\t"} {
		msg, err := s.Send(body)
		if err != nil {
			t.Fatal(err)
		}
		if msg != nil {
			t.Errorf("Send(%q) returned %v, want nil", body, msg)
		}
	}

	msgs, err := db.ListMessages(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("store has %d messages after rejected sends, want 0", len(msgs))
	}
}

func TestSendRejectsWithoutOpenConversation(t *testing.T) {
	_, _, s, _ := openPair(t)

	msg, err := s.Send("hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg != nil {
		t.Errorf("Send without open conversation returned %v, want nil", msg)
	}
}

func TestSendUpdatesConversationAndThread(t *testing.T) {
	db, conv, s, rec := openPair(t)
	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}

	msg, err := s.Send("hi bob")
	if err != nil {
		t.Fatal(err)
	}
	if msg == nil {
		t.Fatal("Send returned nil message")
	}

	// The sender's own insert arrives through the live stream.
	tm := rec.wait(t)
	if tm.ID != msg.ID || tm.SenderName != "You" {
		t.Errorf("appended = %v/%v, want %v/You", tm.ID, tm.SenderName, msg.ID)
	}

	msgs := s.Messages()
	if len(msgs) == 0 || msgs[len(msgs)-1].ID != msg.ID {
		t.Errorf("sent message is not the thread tail: %v", msgs)
	}

	stored, err := db.GetConversationByPair(conv.User1ID, conv.User2ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastMessageID != msg.ID {
		t.Errorf("last_message_id = %q, want %q", stored.LastMessageID, msg.ID)
	}
	if stored.UpdatedAt != msg.Timestamp {
		t.Errorf("updated_at = %d, want %d", stored.UpdatedAt, msg.Timestamp)
	}
}

func TestCloseIdempotent(t *testing.T) {
	_, conv, s, _ := openPair(t)
	if err := s.Open(conv, "bob"); err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()
	if s.Conversation() != nil {
		t.Error("Conversation() != nil after Close")
	}
}
