package bus

import "time"

// Event represents a domain event published on the bus.
//
// Insert events carry the inserted row as Payload and use kinds of the
// form "insert.<table>" (insert.clients, insert.conversations,
// insert.messages). Session events use "session.*".
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
