package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookieplum/chat-app/internal/widget"
)

var fixedNow = time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestSendText_TrimsAndIgnoresBlank(t *testing.T) {
	tl := NewTimeline("alice", fixedClock)

	_, ok := tl.SendText("  ")
	assert.False(t, ok)
	_, ok = tl.SendText("\n\t")
	assert.False(t, ok)
	assert.Equal(t, 0, tl.Len())

	m, ok := tl.SendText("  hi  ")
	require.True(t, ok)
	assert.Equal(t, "hi", m.Text)
	assert.Equal(t, "alice", m.Author)
	assert.Equal(t, fixedNow, m.Timestamp)
	assert.NotEmpty(t, m.ID)

	require.Equal(t, 1, tl.Len())
	assert.Equal(t, m, tl.Messages()[0])
}

func TestSendWidget(t *testing.T) {
	tl := NewTimeline("alice", fixedClock)

	m, err := tl.SendWidget(widget.Money{Amount: 850, Currency: widget.CurrencyINR})
	require.NoError(t, err)
	assert.Empty(t, m.Text)
	assert.Equal(t, widget.TypeMoney, m.Widget.Type())

	_, err = tl.SendWidget(nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 1, tl.Len())
}

func TestTimeline_IDsAreUniqueAndOrdered(t *testing.T) {
	tl := NewTimeline("alice", nil)
	a, _ := tl.SendText("one")
	b, _ := tl.SendText("two")

	assert.NotEqual(t, a.ID, b.ID)
	msgs := tl.Messages()
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
}

func TestReceive(t *testing.T) {
	tl := NewTimeline("alice", fixedClock)
	in := Message{ID: "m1", Author: "bob", Text: "hey", Timestamp: fixedNow}

	ok, err := tl.Receive(in)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tl.Receive(in)
	require.NoError(t, err)
	assert.False(t, ok, "duplicate is ignored")

	_, err = tl.Receive(Message{ID: "m2", Author: "bob"})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = tl.Receive(Message{ID: "m3", Author: "bob", Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage, "whitespace-only text is empty")
	assert.Equal(t, 1, tl.Len())
}

func TestLoad_ReplacesContents(t *testing.T) {
	tl := NewTimeline("alice", fixedClock)
	tl.SendText("stale")

	n := tl.Load([]Message{
		{ID: "1", Author: "alice", Text: "a"},
		{ID: "2", Author: "bob", Text: "b"},
		{ID: "2", Author: "bob", Text: "b again"},
		{ID: "3", Author: "bob"},
	})
	assert.Equal(t, 2, n)

	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Text)
	assert.Equal(t, "b", msgs[1].Text)
}

func TestRender_Layout(t *testing.T) {
	tl := NewTimeline("alice", fixedClock)
	tl.SendText("dinner?")
	tl.SendWidget(widget.DateReminder{EventName: "Dinner", EventDate: "2025-01-02", EventTime: "19:30", Location: "Toit"})
	tl.Receive(Message{
		ID: "p1", Author: "bob", Text: "yes!",
		Widget:    widget.Sticker{Glyph: "😍", Name: "Heart Eyes"},
		Timestamp: time.Date(2025, 1, 2, 9, 5, 0, 0, time.UTC),
	})
	tl.Receive(Message{ID: "p2", Author: "bob", Widget: widget.Unknown{Kind: "poll"}, Timestamp: fixedNow})

	entries := tl.Render(fixedNow)
	require.Len(t, entries, 4)

	assert.Equal(t, SenderSelf, entries[0].Sender)
	assert.Equal(t, AlignRight, entries[0].Align)
	assert.Nil(t, entries[0].Card)
	assert.Equal(t, "dinner?", entries[0].Text)
	assert.Equal(t, "6:00 PM", entries[0].Time)

	require.NotNil(t, entries[1].Card)
	assert.Empty(t, entries[1].Text)
	assert.Equal(t, []string{"2 hours"}, entries[1].Card.Badges)

	assert.Equal(t, SenderPartner, entries[2].Sender)
	assert.Equal(t, AlignLeft, entries[2].Align)
	require.NotNil(t, entries[2].Card)
	assert.Equal(t, "Heart Eyes", entries[2].Card.Headline)
	assert.Equal(t, "yes!", entries[2].Text)
	assert.Equal(t, "9:05 AM", entries[2].Time)

	assert.Nil(t, entries[3].Card, "unknown widgets render nothing")
}

func TestRender_TimestampInNowLocation(t *testing.T) {
	tl := NewTimeline("alice", fixedClock)
	tl.SendText("hi")

	ist := time.FixedZone("IST", 5*3600+1800)
	entries := tl.Render(fixedNow.In(ist))
	assert.Equal(t, "11:30 PM", entries[0].Time)
}

func TestTimeline_ConcurrentSendAndReceive(t *testing.T) {
	tl := NewTimeline("alice", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tl.SendText("mine")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tl.Receive(Message{ID: "p" + string(rune('a'+i%26)) + string(rune('0'+i/26)), Author: "bob", Text: "theirs"})
			_ = tl.Render(time.Now())
		}
	}()
	wg.Wait()

	assert.Equal(t, 200, tl.Len())
}
