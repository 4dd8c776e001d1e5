package ws

import (
	"github.com/sirupsen/logrus"

	"github.com/pookieplum/chat-app/internal/protocol"
)

// MessageHandler handles one parsed client message. msg is the concrete
// struct returned by protocol.ParseClientMessage.
type MessageHandler func(conn *Connection, msg interface{})

// MessageDispatcher routes incoming frames to registered handlers by message
// type. It answers ping itself and replies with an error frame to malformed
// or unsupported messages.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	log      *logrus.Logger
}

// NewMessageDispatcher creates an empty dispatcher.
func NewMessageDispatcher(logger *logrus.Logger) *MessageDispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		log:      logger,
	}
}

// Register associates a handler with a message type, replacing any previous
// one.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// Dispatch is the server's onMessage callback.
func (d *MessageDispatcher) Dispatch(conn *Connection, data []byte) {
	log := d.log.WithField("session", conn.ID)

	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.WithError(err).Debug("ws: dispatch parse error")
		d.reply(conn, protocol.NewError(protocol.CodeInvalidMessage, "invalid message format"))
		return
	}

	if msgType == protocol.TypePing {
		conn.Touch()
		pong, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
		if err != nil {
			log.WithError(err).Error("ws: build pong failed")
			return
		}
		d.reply(conn, pong)
		return
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		log.WithField("type", msgType).Debug("ws: unsupported message type")
		d.reply(conn, protocol.NewError(protocol.CodeInvalidMessage, "unsupported message type"))
		return
	}

	handler(conn, msg)
}

func (d *MessageDispatcher) reply(conn *Connection, data []byte) {
	if err := conn.WriteMessage(data); err != nil {
		d.log.WithError(err).WithField("session", conn.ID).Debug("ws: reply failed")
	}
}
