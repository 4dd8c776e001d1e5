package chat

import "encoding/json"

// Event types carried on couple.<couple_id> subjects.
const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventJoined  = "joined"
	EventLeft    = "left"
)

// CoupleEvent is the payload published to NATS couple.<couple_id> subjects
// for real-time delivery between partners.
type CoupleEvent struct {
	Type     string          `json:"type"`
	From     string          `json:"from"`                // author user ID
	Message  json.RawMessage `json:"message,omitempty"`   // encoded Message for message events
	IsTyping bool            `json:"is_typing,omitempty"` // for typing events
	Ts       int64           `json:"ts,omitempty"`
}

// NewMessageEvent wraps an encoded message for publishing.
func NewMessageEvent(m Message) (CoupleEvent, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return CoupleEvent{}, err
	}
	return CoupleEvent{
		Type:    EventMessage,
		From:    m.Author,
		Message: raw,
		Ts:      m.Timestamp.UnixMilli(),
	}, nil
}

// DecodeMessage returns the message carried by a message event.
func (e CoupleEvent) DecodeMessage() (Message, error) {
	var m Message
	err := json.Unmarshal(e.Message, &m)
	return m, err
}
