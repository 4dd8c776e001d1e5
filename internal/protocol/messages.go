// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/render"
	"github.com/pookieplum/chat-app/internal/selector"
	"github.com/pookieplum/chat-app/internal/widget"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoin              = "join"
	TypeSendText          = "send_text"
	TypeWidgetOpen        = "widget_open"
	TypeWidgetChoose      = "widget_choose"
	TypeWidgetBack        = "widget_back"
	TypeWidgetField       = "widget_field"
	TypeWidgetPickSticker = "widget_pick_sticker"
	TypeWidgetSubmit      = "widget_submit"
	TypeWidgetCancel      = "widget_cancel"
	TypeTyping            = "typing"
	TypePing              = "ping"
)

// Server -> Client message types.
const (
	TypeSessionCreated = "session_created"
	TypeJoined         = "joined"
	TypeMessage        = "message"
	TypeWidgetState    = "widget_state"
	TypePartnerStatus  = "partner_status"
	TypeRateLimited    = "rate_limited"
	TypeError          = "error"
	TypePong           = "pong"
)

// Error codes carried by ErrorMsg.
const (
	CodeInvalidMessage = "invalid_message"
	CodeNotJoined      = "not_joined"
	CodeAlreadyJoined  = "already_joined"
	CodeCoupleFull     = "couple_full"
	CodeInvalidText    = "invalid_text"
	CodeWidget         = "widget_error"
	CodeInternal       = "internal_error"
)

// ---------------------------------------------------------------------------
// Envelope is used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the full raw bytes and extracts only the "type"
// field so that the rest of the payload can be decoded later.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinMsg binds the connection to a signed-in user and their couple. The
// identity is established upstream; the server trusts these IDs.
type JoinMsg struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	CoupleID string `json:"couple_id"`
}

// SendTextMsg is a plain text message typed by the user.
type SendTextMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WidgetOpenMsg opens the widget menu.
type WidgetOpenMsg struct {
	Type string `json:"type"`
}

// WidgetChooseMsg opens the form of one widget variant.
type WidgetChooseMsg struct {
	Type    string      `json:"type"`
	Variant widget.Type `json:"variant"`
}

// WidgetBackMsg returns from a form to the menu.
type WidgetBackMsg struct {
	Type string `json:"type"`
}

// WidgetFieldMsg sets one field of the open form.
type WidgetFieldMsg struct {
	Type  string `json:"type"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// WidgetPickStickerMsg picks a catalog sticker by index and sends it.
type WidgetPickStickerMsg struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// WidgetSubmitMsg submits the open form.
type WidgetSubmitMsg struct {
	Type string `json:"type"`
}

// WidgetCancelMsg closes the widget surface.
type WidgetCancelMsg struct {
	Type string `json:"type"`
}

// TypingMsg indicates whether the client is currently typing.
type TypingMsg struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent by the server when a new session is established.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// JoinedMsg confirms a join and carries the rendered history.
type JoinedMsg struct {
	Type      string       `json:"type"`
	UserID    string       `json:"user_id"`
	CoupleID  string       `json:"couple_id"`
	PartnerID string       `json:"partner_id,omitempty"`
	History   []chat.Entry `json:"history"`
}

// ServerChatMsg delivers one appended message, both in wire form and as a
// display entry for the receiving user.
type ServerChatMsg struct {
	Type    string       `json:"type"`
	Message chat.Message `json:"message"`
	Sender  chat.Sender  `json:"sender"`
	Align   chat.Align   `json:"align"`
	Card    *render.Card `json:"card,omitempty"`
	Time    string       `json:"time"`
}

// NewServerChatMsg builds a ServerChatMsg from a message and its entry.
func NewServerChatMsg(m chat.Message, e chat.Entry) ServerChatMsg {
	return ServerChatMsg{
		Type:    TypeMessage,
		Message: m,
		Sender:  e.Sender,
		Align:   e.Align,
		Card:    e.Card,
		Time:    e.Time,
	}
}

// WidgetStateMsg mirrors the selector after every widget frame. The menu
// lists the variants; the sticker form lists the catalog.
type WidgetStateMsg struct {
	Type      string                 `json:"type"`
	Phase     selector.Phase         `json:"phase"`
	Variant   widget.Type            `json:"variant,omitempty"`
	Fields    map[string]string      `json:"fields,omitempty"`
	CanSubmit bool                   `json:"can_submit"`
	Variants  []widget.Type          `json:"variants,omitempty"`
	Stickers  []widget.StickerOption `json:"stickers,omitempty"`
}

// NewWidgetStateMsg converts a selector snapshot into a frame.
func NewWidgetStateMsg(st selector.State) WidgetStateMsg {
	msg := WidgetStateMsg{
		Type:      TypeWidgetState,
		Phase:     st.Phase,
		Variant:   st.Variant,
		Fields:    st.Fields,
		CanSubmit: st.CanSubmit,
	}
	switch {
	case st.Phase == selector.PhaseMenu:
		msg.Variants = widget.AllTypes
	case st.Phase == selector.PhaseForm && st.Variant == widget.TypeSticker:
		msg.Stickers = widget.StickerCatalog
	}
	return msg
}

// ServerTypingMsg relays the partner's typing indicator to the client.
type ServerTypingMsg struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// PartnerStatusMsg tells the client whether the partner is connected.
type PartnerStatusMsg struct {
	Type   string `json:"type"`
	Online bool   `json:"online"`
}

// RateLimitedMsg is sent by the server when the client has been rate-limited.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoin:
		var m JoinMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSendText:
		var m SendTextMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetOpen:
		var m WidgetOpenMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetChoose:
		var m WidgetChooseMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetBack:
		var m WidgetBackMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetField:
		var m WidgetFieldMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetPickSticker:
		var m WidgetPickStickerMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetSubmit:
		var m WidgetSubmitMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeWidgetCancel:
		var m WidgetCancelMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	typ, _ := json.Marshal(msgType)
	m["type"] = typ

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}

// NewError builds an encoded error frame.
func NewError(code, message string) []byte {
	data, _ := NewServerMessage(TypeError, ErrorMsg{Code: code, Message: message})
	return data
}
