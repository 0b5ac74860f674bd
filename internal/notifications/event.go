// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Swap lifecycle notification types carried in Event.Data["type"].
const (
	TypeNewSwapRequest = "NEW_SWAP_REQUEST"
	TypeSwapAccepted   = "SWAP_ACCEPTED"
	TypeSwapRejected   = "SWAP_REJECTED"
	TypeSwapCancelled  = "SWAP_CANCELLED"
	TypeSwapCompleted  = "SWAP_COMPLETED"
)

// EventName is the envelope event name for every user notification.
const EventName = "notification"

// Event is the payload delivered to a user's room.
type Event struct {
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent builds an Event stamped with the current time. data may be nil.
func NewEvent(message, eventType string, data map[string]interface{}) Event {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["type"] = eventType
	return Event{Message: message, Data: payload, Timestamp: time.Now().UTC()}
}

// Type returns the notification type stored in Data.
func (e Event) Type() string {
	t, _ := e.Data["type"].(string)
	return t
}

// Envelope is the frame written to websocket clients and Redis channels.
type Envelope struct {
	Event   string `json:"event"`
	Room    string `json:"room"`
	Payload Event  `json:"payload"`
}

// Room returns the room name for a user.
func Room(userID uint) string {
	return "user-" + strconv.FormatUint(uint64(userID), 10)
}

// Encode renders ev for userID as an envelope frame.
func Encode(userID uint, ev Event) ([]byte, error) {
	return json.Marshal(Envelope{Event: EventName, Room: Room(userID), Payload: ev})
}

// Publisher queues a notification for a user. Implementations must not block.
type Publisher interface {
	Publish(userID uint, ev Event)
}

// Sink delivers one notification to a transport.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, userID uint, ev Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(uint, Event) {}
