// Package handler implements the chat server's per-connection behaviour:
// joining a couple, sending text and widgets, driving the widget selector,
// relaying typing and presence, and fanning messages out to the partner.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/metrics"
	"github.com/pookieplum/chat-app/internal/protocol"
	"github.com/pookieplum/chat-app/internal/ratelimit"
	"github.com/pookieplum/chat-app/internal/selector"
	"github.com/pookieplum/chat-app/internal/widget"
	"github.com/pookieplum/chat-app/internal/ws"
)

const storeTimeout = 3 * time.Second

// Sender writes an encoded frame to a connection.
type Sender interface {
	SendMessage(connID string, data []byte) error
}

// Sessions binds connections to users and answers presence queries.
type Sessions interface {
	Join(ctx context.Context, sessionID, userID, coupleID string) error
	Online(ctx context.Context, userID string) (bool, error)
	Touch(ctx context.Context, sessionID string) error
}

// Couples tracks couple membership.
type Couples interface {
	Join(ctx context.Context, coupleID, userID string) (*chat.Couple, error)
}

// History keeps the recent messages of each couple.
type History interface {
	Append(ctx context.Context, coupleID string, m chat.Message) error
	Recent(ctx context.Context, coupleID string, n int) ([]chat.Message, error)
}

// Archiver stores every message durably. Recent serves history when the
// recent window is empty.
type Archiver interface {
	Archive(ctx context.Context, coupleID string, m chat.Message) error
	Recent(ctx context.Context, coupleID string, n int) ([]chat.Message, error)
}

// Bus carries couple events between server instances.
type Bus interface {
	PublishCoupleEvent(coupleID string, data []byte) error
	SubscribeToCouple(coupleID, sessionID string, handler func(data []byte)) error
	UnsubscribeFromCouple(sessionID string) error
}

// Limiter throttles actions per user.
type Limiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
	RetryAfter(ctx context.Context, identifier string, rule ratelimit.Rule) time.Duration
}

// Deps are the collaborators of a Handler. Archive and Limiter are optional.
type Deps struct {
	Sender       Sender
	Sessions     Sessions
	Couples      Couples
	History      History
	Archive      Archiver
	Bus          Bus
	Limiter      Limiter
	Buffer       *chat.MessageBuffer
	HistoryLimit int
	Clock        func() time.Time
	Logger       *logrus.Logger
}

// Handler serves every joined connection of one server instance.
type Handler struct {
	Deps

	mu      sync.RWMutex
	clients map[string]*client
}

// client is the state of one joined connection. Its fields are fixed at
// join; the selector is only touched by the connection's own frames.
type client struct {
	sid      string
	userID   string
	coupleID string
	timeline *chat.Timeline
	sel      *selector.Selector
}

// New creates a Handler.
func New(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Buffer == nil {
		d.Buffer = chat.NewMessageBuffer(0)
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = chat.DefaultHistoryLimit
	}
	return &Handler{Deps: d, clients: make(map[string]*client)}
}

// Register routes every client message type to the handler.
func (h *Handler) Register(d *ws.MessageDispatcher) {
	route := func(conn *ws.Connection, msg interface{}) { h.Handle(conn.ID, msg) }
	for _, t := range []string{
		protocol.TypeJoin,
		protocol.TypeSendText,
		protocol.TypeWidgetOpen,
		protocol.TypeWidgetChoose,
		protocol.TypeWidgetBack,
		protocol.TypeWidgetField,
		protocol.TypeWidgetPickSticker,
		protocol.TypeWidgetSubmit,
		protocol.TypeWidgetCancel,
		protocol.TypeTyping,
	} {
		d.Register(t, route)
	}
}

// Handle processes one parsed client message from connection sid.
func (h *Handler) Handle(sid string, msg interface{}) {
	if m, ok := msg.(protocol.JoinMsg); ok {
		h.join(sid, m)
		return
	}

	c := h.client(sid)
	if c == nil {
		h.sendError(sid, protocol.CodeNotJoined, "join a couple first")
		return
	}

	switch m := msg.(type) {
	case protocol.SendTextMsg:
		h.sendText(c, m.Text)
	case protocol.TypingMsg:
		h.emit(c.coupleID, chat.CoupleEvent{Type: chat.EventTyping, From: c.userID, IsTyping: m.IsTyping})
	default:
		h.widgetFrame(c, msg)
	}
}

// Disconnect forgets connection sid and tells the partner it left.
func (h *Handler) Disconnect(sid string) {
	h.mu.Lock()
	c := h.clients[sid]
	delete(h.clients, sid)
	h.mu.Unlock()
	if c == nil {
		return
	}

	if err := h.Bus.UnsubscribeFromCouple(sid); err != nil {
		h.Logger.WithError(err).WithField("session", sid).Debug("unsubscribe failed")
	}
	h.emit(c.coupleID, chat.CoupleEvent{Type: chat.EventLeft, From: c.userID, Ts: h.Clock().UnixMilli()})
	metrics.JoinedSessions.Dec()
}

// Joined returns how many connections are joined.
func (h *Handler) Joined() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Handler) client(sid string) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[sid]
}

func (h *Handler) join(sid string, m protocol.JoinMsg) {
	log := h.Logger.WithFields(logrus.Fields{"session": sid, "user": m.UserID, "couple": m.CoupleID})

	if m.UserID == "" || m.CoupleID == "" {
		h.sendError(sid, protocol.CodeInvalidMessage, "user_id and couple_id are required")
		return
	}
	if h.client(sid) != nil {
		h.sendError(sid, protocol.CodeAlreadyJoined, "connection already joined")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	couple, err := h.Couples.Join(ctx, m.CoupleID, m.UserID)
	if errors.Is(err, chat.ErrCoupleFull) {
		h.sendError(sid, protocol.CodeCoupleFull, "this couple already has two members")
		return
	}
	if err != nil {
		log.WithError(err).Error("join couple failed")
		h.sendError(sid, protocol.CodeInternal, "could not join couple")
		return
	}
	if err := h.Sessions.Join(ctx, sid, m.UserID, m.CoupleID); err != nil {
		log.WithError(err).Warn("session join failed")
	}

	c := &client{
		sid:      sid,
		userID:   m.UserID,
		coupleID: m.CoupleID,
		timeline: chat.NewTimeline(m.UserID, h.Clock),
	}
	c.sel = selector.New(func(w widget.Widget) { h.sendWidget(c, w) })
	c.timeline.Load(h.loadHistory(ctx, m.CoupleID))

	h.mu.Lock()
	h.clients[sid] = c
	h.mu.Unlock()
	metrics.JoinedSessions.Inc()

	if err := h.Bus.SubscribeToCouple(m.CoupleID, sid, func(data []byte) { h.onEvent(sid, data) }); err != nil {
		log.WithError(err).Warn("subscribe failed, partner messages will not arrive")
	}

	h.send(sid, protocol.TypeJoined, protocol.JoinedMsg{
		UserID:    m.UserID,
		CoupleID:  m.CoupleID,
		PartnerID: couple.Partner(m.UserID),
		History:   c.timeline.Render(h.Clock()),
	})

	online := false
	if partner := couple.Partner(m.UserID); partner != "" {
		if online, err = h.Sessions.Online(ctx, partner); err != nil {
			log.WithError(err).Warn("presence lookup failed")
		}
	}
	h.send(sid, protocol.TypePartnerStatus, protocol.PartnerStatusMsg{Online: online})

	h.emit(m.CoupleID, chat.CoupleEvent{Type: chat.EventJoined, From: m.UserID, Ts: h.Clock().UnixMilli()})
	log.WithField("history", c.timeline.Len()).Info("joined")
}

// loadHistory prefers the Redis window, then the archive, then this
// instance's buffer.
func (h *Handler) loadHistory(ctx context.Context, coupleID string) []chat.Message {
	log := h.Logger.WithField("couple", coupleID)

	msgs, err := h.History.Recent(ctx, coupleID, h.HistoryLimit)
	if err != nil {
		log.WithError(err).Warn("history unavailable")
	}
	if len(msgs) > 0 {
		return msgs
	}
	if h.Archive != nil {
		msgs, err = h.Archive.Recent(ctx, coupleID, h.HistoryLimit)
		if err != nil {
			log.WithError(err).Warn("archive unavailable")
		}
		if len(msgs) > 0 {
			return msgs
		}
	}
	return h.Buffer.Get(coupleID)
}

func (h *Handler) sendText(c *client, text string) {
	if err := chat.ValidateText(text); err != nil {
		h.sendError(c.sid, protocol.CodeInvalidText, err.Error())
		return
	}
	if !h.allow(c, ratelimit.RuleSend) {
		return
	}
	m, ok := c.timeline.SendText(text)
	if !ok {
		return
	}
	h.publish(c, m)
}

func (h *Handler) widgetFrame(c *client, msg interface{}) {
	rule := ratelimit.RuleWidget
	switch msg.(type) {
	case protocol.WidgetSubmitMsg, protocol.WidgetPickStickerMsg:
		rule = ratelimit.RuleSend
	}
	if !h.allow(c, rule) {
		return
	}

	var err error
	switch m := msg.(type) {
	case protocol.WidgetOpenMsg:
		c.sel.Open()
	case protocol.WidgetChooseMsg:
		err = c.sel.Choose(m.Variant)
	case protocol.WidgetBackMsg:
		err = c.sel.Back()
	case protocol.WidgetFieldMsg:
		err = c.sel.SetField(m.Field, m.Value)
	case protocol.WidgetPickStickerMsg:
		err = c.sel.PickSticker(m.Index)
	case protocol.WidgetSubmitMsg:
		_, err = c.sel.Submit()
	case protocol.WidgetCancelMsg:
		c.sel.Cancel()
	default:
		h.sendError(c.sid, protocol.CodeInvalidMessage, "unsupported message type")
		return
	}
	if err != nil {
		h.sendError(c.sid, protocol.CodeWidget, err.Error())
	}
	h.send(c.sid, protocol.TypeWidgetState, protocol.NewWidgetStateMsg(c.sel.State()))
}

// sendWidget is the selector's submit callback.
func (h *Handler) sendWidget(c *client, w widget.Widget) {
	m, err := c.timeline.SendWidget(w)
	if err != nil {
		h.Logger.WithError(err).WithField("session", c.sid).Error("send widget failed")
		return
	}
	metrics.WidgetsTotal.WithLabelValues(string(w.Type())).Inc()
	h.publish(c, m)
}

// publish delivers a message the owner just appended: it echoes the rendered
// entry, persists it, and hands it to the partner. Persistence failures are
// logged and never block delivery.
func (h *Handler) publish(c *client, m chat.Message) {
	log := h.Logger.WithFields(logrus.Fields{"session": c.sid, "couple": c.coupleID, "message": m.ID})

	h.push(c, m)
	h.Buffer.Add(c.coupleID, m)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := h.History.Append(ctx, c.coupleID, m); err != nil {
		log.WithError(err).Warn("history append failed")
		metrics.StoreErrors.WithLabelValues("history").Inc()
	}
	if h.Archive != nil {
		if err := h.Archive.Archive(ctx, c.coupleID, m); err != nil {
			log.WithError(err).Warn("archive failed")
			metrics.StoreErrors.WithLabelValues("archive").Inc()
		}
	}
	if err := h.Sessions.Touch(ctx, c.sid); err != nil {
		log.WithError(err).Debug("session touch failed")
	}

	event, err := chat.NewMessageEvent(m)
	if err != nil {
		log.WithError(err).Error("encode event failed")
		return
	}
	h.emit(c.coupleID, event)
	metrics.MessagesTotal.WithLabelValues("sent").Inc()
}

// onEvent handles a couple event delivered to connection sid.
func (h *Handler) onEvent(sid string, data []byte) {
	c := h.client(sid)
	if c == nil {
		return
	}
	log := h.Logger.WithField("session", sid)

	var ev chat.CoupleEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.WithError(err).Warn("bad couple event")
		return
	}

	switch ev.Type {
	case chat.EventMessage:
		m, err := ev.DecodeMessage()
		if err != nil {
			log.WithError(err).Warn("bad message event")
			return
		}
		// Our own sends come back from the bus and are already in the timeline.
		added, err := c.timeline.Receive(m)
		if err != nil {
			log.WithError(err).Warn("rejected message event")
			return
		}
		if !added {
			return
		}
		h.push(c, m)
		metrics.MessagesTotal.WithLabelValues("received").Inc()

	case chat.EventTyping:
		if ev.From != c.userID {
			h.send(sid, protocol.TypeTyping, protocol.ServerTypingMsg{IsTyping: ev.IsTyping})
		}

	case chat.EventJoined, chat.EventLeft:
		if ev.From != c.userID {
			h.send(sid, protocol.TypePartnerStatus, protocol.PartnerStatusMsg{Online: ev.Type == chat.EventJoined})
		}
	}
}

func (h *Handler) push(c *client, m chat.Message) {
	e := c.timeline.Entry(m, h.Clock())
	h.send(c.sid, protocol.TypeMessage, protocol.NewServerChatMsg(m, e))
}

// allow applies rule to the client's user and tells the client when it is
// throttled.
func (h *Handler) allow(c *client, rule ratelimit.Rule) bool {
	if h.Limiter == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	ok, _ := h.Limiter.Allow(ctx, c.userID, rule)
	if ok {
		return true
	}
	metrics.MessagesTotal.WithLabelValues("blocked").Inc()
	retry := h.Limiter.RetryAfter(ctx, c.userID, rule)
	h.send(c.sid, protocol.TypeRateLimited, protocol.RateLimitedMsg{RetryAfter: int(math.Ceil(retry.Seconds()))})
	return false
}

func (h *Handler) emit(coupleID string, ev chat.CoupleEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.Logger.WithError(err).Error("encode couple event failed")
		return
	}
	if err := h.Bus.PublishCoupleEvent(coupleID, data); err != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{"couple": coupleID, "type": ev.Type}).Warn("publish failed")
	}
}

func (h *Handler) send(sid, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		h.Logger.WithError(err).WithField("type", msgType).Error("encode frame failed")
		return
	}
	if err := h.Sender.SendMessage(sid, data); err != nil {
		h.Logger.WithError(err).WithField("session", sid).Debug("send failed")
	}
}

func (h *Handler) sendError(sid, code, message string) {
	if err := h.Sender.SendMessage(sid, protocol.NewError(code, message)); err != nil {
		h.Logger.WithError(err).WithField("session", sid).Debug("send error failed")
	}
}
