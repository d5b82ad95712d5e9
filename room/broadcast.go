package room

import (
	"sync"

	"go.uber.org/zap"
)

// Message is one server-to-client broadcast: an event name and payload,
// exactly the shape the broadcast action (§4.E) produces.
type Message struct {
	Event string
	Data  any
}

// Broadcaster fans out room broadcasts to every subscribed session's
// channel without blocking the room's dispatch loop on a slow or dead
// consumer.
//
// Grounded on the teacher's production.ChannelPublisher: the same
// non-blocking select-with-default send discipline, generalized from one
// subscriber channel to one channel per connected session (a room's
// broadcast fans out to every player, not to a single downstream
// pipeline).
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]chan Message
	logger      *zap.Logger
}

func newBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{subscribers: map[string]chan Message{}, logger: logger}
}

// Subscribe registers sessionId for broadcasts and returns its inbound
// channel. Buffered so a burst of broadcasts around a single event
// dispatch doesn't immediately drop messages for a briefly slow reader.
func (b *Broadcaster) Subscribe(sessionID string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Message, 16)
	b.subscribers[sessionID] = ch
	return ch
}

// Unsubscribe removes and closes sessionID's channel.
func (b *Broadcaster) Unsubscribe(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[sessionID]; ok {
		close(ch)
		delete(b.subscribers, sessionID)
	}
}

// Broadcast implements actions.Broadcaster. A subscriber whose channel is
// full has the message dropped for it rather than stalling every other
// subscriber's delivery or the room's own dispatch.
func (b *Broadcaster) Broadcast(event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := Message{Event: event, Data: data}
	for sessionID, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			b.logger.Warn("room: dropped broadcast to slow subscriber",
				zap.String("sessionId", sessionID), zap.String("event", event))
		}
	}
}

// Close unsubscribes and closes every subscriber's channel, used on room
// disposal.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
