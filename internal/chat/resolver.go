package chat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/directory"
)

// CanonicalPair orders two user identities so that the lexicographically
// smaller one comes first. Every conversation lookup and create must go
// through this ordering; otherwise swapped argument order would produce a
// second row for the same pair.
func CanonicalPair(a, b string) (user1, user2 string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Resolver maps a pair of users to their single shared conversation,
// creating it lazily on first contact.
type Resolver struct {
	db     *directory.DB
	logger *zap.Logger
}

// NewResolver creates a resolver backed by the directory store.
func NewResolver(db *directory.DB, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, logger: logger}
}

// Resolve returns the conversation shared by userA and userB, creating it
// if absent. Resolve(A, B) and Resolve(B, A) return the same row. Store
// failures are returned as-is; the caller must not proceed to load or send
// messages on error.
func (r *Resolver) Resolve(userA, userB string) (*directory.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, errors.New("resolve: both user identities are required")
	}
	if userA == userB {
		return nil, errors.New("resolve: cannot resolve a conversation with oneself")
	}

	user1, user2 := CanonicalPair(userA, userB)

	conv, err := r.db.GetConversationByPair(user1, user2)
	if err != nil {
		return nil, fmt.Errorf("resolve lookup: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	created, err := r.db.InsertConversation(&directory.Conversation{
		ID:      uuid.New().String(),
		User1ID: user1,
		User2ID: user2,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve create: %w", err)
	}
	r.logger.Info("conversation created",
		zap.String("conversation_id", created.ID),
		zap.String("user1", user1),
		zap.String("user2", user2))
	return created, nil
}
