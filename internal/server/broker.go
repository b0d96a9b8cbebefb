package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/philosophersclick/internal/game"
)

// Message is a JSON-encoded game event ready to be streamed.
type Message struct {
	Type game.EventType
	Data []byte
}

// Broker is an in-process pub/sub for session events, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Message]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Message]struct{}),
	}
}

// Subscribe returns a channel that receives the session's events.
func (b *Broker) Subscribe(sessionID string) chan Message {
	ch := make(chan Message, 64)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Message]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan Message) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(sessionID string, event game.Event) {
	data, _ := json.Marshal(event)
	msg := Message{Type: event.Type, Data: data}
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Subscribers returns the number of live subscriptions for a session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
