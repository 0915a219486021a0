package presence

import (
	"encoding/json"
	"time"
)

// EventName identifies the kind of frame pushed to clients.
type EventName string

const (
	// EventOnlineUsers carries the full list of online identities after every connect or disconnect.
	EventOnlineUsers EventName = "online-users-changed"

	// EventNewMessage carries a message relayed to a single online user.
	EventNewMessage EventName = "new-message"
)

// OnlineUsersEvent is the payload broadcast on every presence change.
type OnlineUsersEvent struct {
	Event EventName `json:"event"`
	Users []string  `json:"users"`
}

// DirectMessage is a text message relayed from one user to another.
type DirectMessage struct {
	Event      EventName `json:"event"`
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Timestamp  int64     `json:"timestamp"`
}

// NewOnlineUsersEvent builds the frame announcing the given identities.
// A nil slice is encoded as an empty list.
func NewOnlineUsersEvent(users []string) OnlineUsersEvent {
	if users == nil {
		users = []string{}
	}

	return OnlineUsersEvent{
		Event: EventOnlineUsers,
		Users: users,
	}
}

// NewDirectMessage builds a new-message frame stamped with the current time.
func NewDirectMessage(id, senderID, receiverID, text string) DirectMessage {
	return DirectMessage{
		Event:      EventNewMessage,
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// Encode marshals a frame for the wire.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
