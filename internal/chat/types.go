package chat

import "github.com/pairchat/pairchat/internal/directory"

// ThreadMessage is a message annotated for display. SenderName is derived,
// never persisted: "You" for the local user, the other party's display name
// otherwise.
type ThreadMessage struct {
	directory.Message
	SenderName string
}

// ContactPreview is a client decorated with the last message of its
// conversation with the local user. LastMessage is nil when the pair has
// never exchanged messages, and always nil on filtered (search) results.
type ContactPreview struct {
	Client      directory.Client
	LastMessage *directory.Message
}
