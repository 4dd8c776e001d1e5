package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pookieplum/chat-app/internal/widget"
)

// Sender says which side of a timeline a message belongs to.
type Sender string

const (
	SenderSelf    Sender = "self"
	SenderPartner Sender = "partner"
)

// ErrEmptyMessage is returned for a message with neither text nor widget.
var ErrEmptyMessage = errors.New("chat: message has neither text nor widget")

// Message is one immutable timeline entry. Author is the user ID of the
// sender; a timeline maps it to SenderSelf or SenderPartner relative to its
// owner.
type Message struct {
	ID        string
	Author    string
	Text      string
	Widget    widget.Widget
	Timestamp time.Time
}

// Validate checks that the message carries non-blank text, a widget, or both.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Text) == "" && m.Widget == nil {
		return ErrEmptyMessage
	}
	if m.ID == "" {
		return fmt.Errorf("chat: message has no id")
	}
	return nil
}

// wireMessage is the JSON shape used on NATS, in Redis history and in
// frames sent to clients.
type wireMessage struct {
	ID     string          `json:"id"`
	Author string          `json:"author"`
	Text   string          `json:"text,omitempty"`
	Widget json.RawMessage `json:"widget,omitempty"`
	Ts     int64           `json:"ts"` // unix milliseconds
}

// MarshalJSON encodes the widget through the widget codec so the variant
// discriminator travels with it.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		ID:     m.ID,
		Author: m.Author,
		Text:   m.Text,
		Ts:     m.Timestamp.UnixMilli(),
	}
	if m.Widget != nil {
		raw, err := widget.Encode(m.Widget)
		if err != nil {
			return nil, fmt.Errorf("chat: encode widget: %w", err)
		}
		w.Widget = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a message. Widgets of unrecognised variants decode
// to widget.Unknown rather than failing.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{
		ID:        w.ID,
		Author:    w.Author,
		Text:      w.Text,
		Timestamp: time.UnixMilli(w.Ts).UTC(),
	}
	if len(w.Widget) > 0 && string(w.Widget) != "null" {
		wd, err := widget.Decode(w.Widget)
		if err != nil {
			return fmt.Errorf("chat: decode widget: %w", err)
		}
		m.Widget = wd
	}
	return nil
}
