package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/selector"
	"github.com/pookieplum/chat-app/internal/widget"
)

func TestParseClientMessage_Join(t *testing.T) {
	msgType, msg, err := ParseClientMessage([]byte(`{"type":"join","user_id":"alice","couple_id":"c-1"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeJoin, msgType)

	jm, ok := msg.(JoinMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "alice", jm.UserID)
	assert.Equal(t, "c-1", jm.CoupleID)
}

func TestParseClientMessage_WidgetField(t *testing.T) {
	_, msg, err := ParseClientMessage([]byte(`{"type":"widget_field","field":"amount","value":"850"}`))
	require.NoError(t, err)
	assert.Equal(t, WidgetFieldMsg{Type: TypeWidgetField, Field: "amount", Value: "850"}, msg)
}

func TestParseClientMessage_UnknownType(t *testing.T) {
	msgType, msg, err := ParseClientMessage([]byte(`{"type":"find_match"}`))
	assert.Error(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, "find_match", msgType)
}

func TestParseClientMessage_BadPayload(t *testing.T) {
	_, _, err := ParseClientMessage([]byte(`{"type":"widget_pick_sticker","index":"two"}`))
	assert.Error(t, err)
}

func TestParseClientMessage_AllTypes(t *testing.T) {
	cases := []struct {
		input    string
		wantType string
	}{
		{`{"type":"join","user_id":"u","couple_id":"c"}`, TypeJoin},
		{`{"type":"send_text","text":"hi"}`, TypeSendText},
		{`{"type":"widget_open"}`, TypeWidgetOpen},
		{`{"type":"widget_choose","variant":"money"}`, TypeWidgetChoose},
		{`{"type":"widget_back"}`, TypeWidgetBack},
		{`{"type":"widget_field","field":"note","value":"x"}`, TypeWidgetField},
		{`{"type":"widget_pick_sticker","index":2}`, TypeWidgetPickSticker},
		{`{"type":"widget_submit"}`, TypeWidgetSubmit},
		{`{"type":"widget_cancel"}`, TypeWidgetCancel},
		{`{"type":"typing","is_typing":true}`, TypeTyping},
		{`{"type":"ping"}`, TypePing},
	}

	for _, tc := range cases {
		t.Run(tc.wantType, func(t *testing.T) {
			msgType, msg, err := ParseClientMessage([]byte(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, msgType)
			assert.NotNil(t, msg)
		})
	}
}

func TestEnvelope_Errors(t *testing.T) {
	var env Envelope
	assert.Error(t, json.Unmarshal([]byte(`{"data":"no type field"}`), &env))
	assert.Error(t, json.Unmarshal([]byte(`{invalid json}`), &env))
}

func TestNewServerMessage_InjectsType(t *testing.T) {
	data, err := NewServerMessage(TypeRateLimited, RateLimitedMsg{RetryAfter: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"rate_limited","retry_after":7}`, string(data))
}

func TestNewServerChatMsg_EmbedsWidget(t *testing.T) {
	now := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)
	tl := chat.NewTimeline("bob", func() time.Time { return now })
	m, err := tl.SendWidget(widget.Sticker{Glyph: "🌹", Name: "Rose"})
	require.NoError(t, err)

	data, err := NewServerMessage(TypeMessage, NewServerChatMsg(m, tl.Entry(m, now)))
	require.NoError(t, err)

	var got struct {
		Type    string `json:"type"`
		Message struct {
			Widget map[string]interface{} `json:"widget"`
		} `json:"message"`
		Sender string                 `json:"sender"`
		Card   map[string]interface{} `json:"card"`
		Time   string                 `json:"time"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, TypeMessage, got.Type)
	assert.Equal(t, "sticker", got.Message.Widget["type"])
	assert.Equal(t, "self", got.Sender)
	assert.Equal(t, "Rose", got.Card["headline"])
	assert.Equal(t, "6:00 PM", got.Time)
}

func TestNewWidgetStateMsg(t *testing.T) {
	menu := NewWidgetStateMsg(selector.State{Phase: selector.PhaseMenu})
	assert.Equal(t, widget.AllTypes, menu.Variants)
	assert.Nil(t, menu.Stickers)

	form := NewWidgetStateMsg(selector.State{Phase: selector.PhaseForm, Variant: widget.TypeSticker})
	assert.Len(t, form.Stickers, len(widget.StickerCatalog))
	assert.Nil(t, form.Variants)

	closed := NewWidgetStateMsg(selector.State{Phase: selector.PhaseClosed})
	assert.Nil(t, closed.Variants)
	assert.Nil(t, closed.Stickers)
}

func TestNewError(t *testing.T) {
	assert.JSONEq(t, `{"type":"error","code":"not_joined","message":"join first"}`,
		string(NewError(CodeNotJoined, "join first")))
}
