package directory

// Subscription is a live stream of inserted message rows for one
// conversation. The owner must call Close exactly once when done; after
// Close the Events channel stops delivering.
type Subscription struct {
	events chan Message
	done   chan struct{}
	unsub  func()
}

// Events returns the channel of inserted messages, in insertion order.
func (s *Subscription) Events() <-chan Message {
	return s.events
}

// Close cancels the subscription. Idempotent.
func (s *Subscription) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.unsub()
}

// SubscribeMessageInserts opens a live subscription to message inserts
// scoped to one conversation. Only insert events are delivered; updates and
// deletes are not observed. bufSize bounds how many events may queue while
// the consumer is busy (e.g. still loading history).
func (db *DB) SubscribeMessageInserts(conversationID string, bufSize int) *Subscription {
	raw, unsub := db.bus.Subscribe("insert.messages", bufSize)

	sub := &Subscription{
		events: make(chan Message, bufSize),
		done:   make(chan struct{}),
		unsub:  unsub,
	}

	go func() {
		// Sole sender: closing events here lets consumers range over it.
		defer close(sub.events)
		for {
			select {
			case evt := <-raw:
				msg, ok := evt.Payload.(*Message)
				if !ok || msg.ConversationID != conversationID {
					continue
				}
				select {
				case sub.events <- *msg:
				case <-sub.done:
					return
				}
			case <-sub.done:
				return
			}
		}
	}()

	return sub
}
