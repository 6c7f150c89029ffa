package directory

import (
	"database/sql"
	"fmt"
)

// GetConversationByPair returns the conversation stored under the exact
// (user1, user2) pair, or nil if absent. Callers must pass the pair in
// canonical order; this method does not reorder.
func (db *DB) GetConversationByPair(user1ID, user2ID string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, user1_id, user2_id, last_message_id, updated_at
		FROM conversations WHERE user1_id = ? AND user2_id = ?`,
		user1ID, user2ID).
		Scan(&c.ID, &c.User1ID, &c.User2ID, &c.LastMessageID, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertConversation creates the conversation row for a canonically ordered
// pair. The insert is idempotent: if another client created the row first,
// the existing row is returned and no event is published.
func (db *DB) InsertConversation(c *Conversation) (*Conversation, error) {
	res, err := db.Exec(`
		INSERT INTO conversations (id, user1_id, user2_id, last_message_id, updated_at)
		VALUES (?, ?, ?, '', 0)
		ON CONFLICT(user1_id, user2_id) DO NOTHING`,
		c.ID, c.User1ID, c.User2ID)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Lost the race: reread the winner's row.
		existing, err := db.GetConversationByPair(c.User1ID, c.User2ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("conversation %s/%s vanished after conflict", c.User1ID, c.User2ID)
		}
		return existing, nil
	}

	db.publish("insert.conversations", c)
	return c, nil
}

// ListConversationsByUser returns all conversations involving userID.
func (db *DB) ListConversationsByUser(userID string) ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, user1_id, user2_id, last_message_id, updated_at
		FROM conversations WHERE user1_id = ? OR user2_id = ?`,
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.User1ID, &c.User2ID, &c.LastMessageID, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// UpdateConversationLastMessage points the conversation at its most recent
// message. Runs after the message insert; the two writes are not atomic.
func (db *DB) UpdateConversationLastMessage(conversationID, messageID string, updatedAt int64) error {
	_, err := db.Exec(`
		UPDATE conversations SET last_message_id = ?, updated_at = ?
		WHERE id = ?`,
		messageID, updatedAt, conversationID)
	return err
}
