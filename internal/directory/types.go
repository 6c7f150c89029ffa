package directory

// Client is an identity record in the clients table. Immutable after signup.
type Client struct {
	ID        string
	Name      string
	Email     string
	Mobile    string
	Password  string
	CreatedAt int64
}

// Conversation links an unordered pair of users. The pair is stored
// canonically: User1ID is the lexicographically smaller identity. For any
// pair at most one row exists, enforced by a unique index.
type Conversation struct {
	ID            string
	User1ID       string
	User2ID       string
	LastMessageID string // empty until the first message is sent
	UpdatedAt     int64
}

// Message is a single message row. Immutable once created; ordered by
// Timestamp (Unix milliseconds) ascending for display.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Context        string // text body
	Timestamp      int64
}
