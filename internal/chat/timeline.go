package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pookieplum/chat-app/internal/render"
	"github.com/pookieplum/chat-app/internal/widget"
)

// Align is the side of the screen an entry is drawn on.
type Align string

const (
	AlignRight Align = "right"
	AlignLeft  Align = "left"
)

// ClockLayout is the timestamp format shown under each entry.
const ClockLayout = "3:04 PM"

// Entry is the display form of one message: the widget card (if any) sits
// above the text (if any) and the entry carries a single timestamp.
type Entry struct {
	ID     string       `json:"id"`
	Sender Sender       `json:"sender"`
	Align  Align        `json:"align"`
	Card   *render.Card `json:"card,omitempty"`
	Text   string       `json:"text,omitempty"`
	Time   string       `json:"time"`
}

// Timeline is the ordered, append-only message sequence seen by one user.
// Insertion order is display order.
//
// Local sends and inbound partner messages may arrive on different
// goroutines, so all methods are safe for concurrent use.
type Timeline struct {
	owner string
	clock func() time.Time

	mu       sync.RWMutex
	messages []Message
	ids      map[string]struct{}
}

// NewTimeline returns an empty timeline owned by userID. A nil clock means
// time.Now.
func NewTimeline(userID string, clock func() time.Time) *Timeline {
	if clock == nil {
		clock = time.Now
	}
	return &Timeline{
		owner: userID,
		clock: clock,
		ids:   make(map[string]struct{}),
	}
}

// Owner returns the user ID the timeline belongs to.
func (t *Timeline) Owner() string { return t.owner }

// SendText appends a text message from the owner. Surrounding whitespace is
// trimmed; blank input appends nothing and returns false.
func (t *Timeline) SendText(s string) (Message, bool) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Message{}, false
	}
	m := t.newMessage()
	m.Text = text
	t.append(m)
	return m, true
}

// SendWidget appends a widget-only message from the owner.
func (t *Timeline) SendWidget(w widget.Widget) (Message, error) {
	if w == nil {
		return Message{}, fmt.Errorf("chat: send widget: %w", ErrEmptyMessage)
	}
	m := t.newMessage()
	m.Widget = w
	t.append(m)
	return m, nil
}

// Receive appends a message delivered by the synchronization layer. A
// message whose ID is already present is ignored and Receive returns false.
func (t *Timeline) Receive(m Message) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.ids[m.ID]; dup {
		return false, nil
	}
	t.appendLocked(m)
	return true, nil
}

// Load replaces the timeline contents with ms, in the given order. Invalid
// and duplicate messages are skipped; the number kept is returned.
func (t *Timeline) Load(ms []Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = make([]Message, 0, len(ms))
	t.ids = make(map[string]struct{}, len(ms))
	for _, m := range ms {
		if m.Validate() != nil {
			continue
		}
		if _, dup := t.ids[m.ID]; dup {
			continue
		}
		t.appendLocked(m)
	}
	return len(t.messages)
}

// Messages returns a copy of the sequence.
func (t *Timeline) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// SenderOf maps a message author to a side of this timeline.
func (t *Timeline) SenderOf(m Message) Sender {
	if m.Author == t.owner {
		return SenderSelf
	}
	return SenderPartner
}

// Entry renders a single message at instant now.
func (t *Timeline) Entry(m Message, now time.Time) Entry {
	e := Entry{
		ID:     m.ID,
		Sender: t.SenderOf(m),
		Text:   m.Text,
		Time:   m.Timestamp.In(now.Location()).Format(ClockLayout),
	}
	if e.Sender == SenderSelf {
		e.Align = AlignRight
	} else {
		e.Align = AlignLeft
	}
	if m.Widget != nil {
		e.Card = render.Render(m.Widget, now)
	}
	return e
}

// Render produces one entry per message, in order.
func (t *Timeline) Render(now time.Time) []Entry {
	msgs := t.Messages()
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = t.Entry(m, now)
	}
	return out
}

func (t *Timeline) newMessage() Message {
	return Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Author:    t.owner,
		Timestamp: t.clock(),
	}
}

func (t *Timeline) append(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(m)
}

func (t *Timeline) appendLocked(m Message) {
	t.messages = append(t.messages, m)
	t.ids[m.ID] = struct{}{}
}
