// Package ws holds the realtime event envelope shared by the publisher,
// the websocket hub and connected clients. The JSON layout is part of the
// channel contract: subscribers match on the event name and read the
// message out of the payload.
package ws

import (
	"encoding/json"

	"realtime-chat-demo/backend/internal/models"
)

// EventNewMessage is published on a pair channel after a message is persisted.
const EventNewMessage = "newMessage"

// Event is the envelope carried over the pub/sub channel and forwarded
// verbatim to websocket subscribers.
type Event struct {
	Event   string  `json:"event"`
	Payload Payload `json:"payload"`
}

// Payload wraps the message so the contract can grow fields without
// breaking subscribers.
type Payload struct {
	Message models.Message `json:"message"`
}

// NewMessageEvent builds the envelope for a freshly persisted message.
func NewMessageEvent(message models.Message) Event {
	return Event{Event: EventNewMessage, Payload: Payload{Message: message}}
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an envelope received from the channel.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
