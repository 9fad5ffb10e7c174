// Package hub fans JSON events out to websocket clients using a single
// goroutine that owns the client set.
package hub

import (
	"encoding/json"
	"time"
)

// Event is the envelope every client receives.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Message is an encoded frame queued for clients.
type Message struct {
	Data []byte
}

// NewMessage encodes an event of the given type.
func NewMessage(kind string, data any) (Message, error) {
	b, err := json.Marshal(Event{Type: kind, Time: time.Now(), Data: data})
	if err != nil {
		return Message{}, err
	}
	return Message{Data: b}, nil
}

// Command is a frame sent by a client, such as {"type":"skip"}.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
