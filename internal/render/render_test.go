package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookieplum/chat-app/internal/widget"
)

var now = time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

// sample returns one representative widget per variant.
func sample(t widget.Type) widget.Widget {
	switch t {
	case widget.TypeSticker:
		return widget.Sticker{Glyph: "🤗", Name: "Hug"}
	case widget.TypeMoney:
		return widget.Money{Amount: 850, Currency: widget.CurrencyINR}
	case widget.TypeDaysSince:
		return widget.DaysSince{EventName: "Our first date", EventDate: "2024-06-15"}
	case widget.TypeSharedLocation:
		return widget.SharedLocation{LocationName: "Cubbon Park", Address: "Kasturba Rd"}
	case widget.TypeDateReminder:
		return widget.DateReminder{EventName: "Dinner", EventDate: "2025-01-02", EventTime: "19:30", Location: "Toit"}
	case widget.TypeCalendarEvent:
		return widget.CalendarEvent{EventName: "Doctor", EventDate: "2025-01-09", EventTime: "09:15", Priority: widget.PriorityLow}
	case widget.TypeGoneLive:
		return widget.GoneLive{StreamTitle: "Study", Activity: widget.ActivityStudying, IsActive: true}
	}
	return nil
}

func TestRender_EveryVariantHasATemplate(t *testing.T) {
	for _, typ := range widget.AllTypes {
		w := sample(typ)
		require.NotNil(t, w, "no sample for %s", typ)

		c := Render(w, now)
		require.NotNil(t, c, "no card for %s", typ)
		assert.Equal(t, typ, c.Kind)
		assert.NotEmpty(t, c.Title)
		assert.NotEmpty(t, c.Accent)
	}
}

func TestRender_UnknownRendersNothing(t *testing.T) {
	assert.Nil(t, Render(widget.Unknown{Kind: "poll"}, now))
	assert.Nil(t, Render(nil, now))
}

func TestRender_Money(t *testing.T) {
	c := Render(widget.Money{Amount: 1234567.5, Currency: widget.CurrencyUSD, Note: "rent"}, now)
	assert.Equal(t, "$ 1,234,567.50", c.Headline)
	assert.Equal(t, []string{"rent", "Transfer completed"}, c.Lines)

	c = Render(widget.Money{Amount: 850, Currency: widget.CurrencyINR}, now)
	assert.Equal(t, "₹ 850.00", c.Headline)
	assert.Equal(t, []string{"Transfer completed"}, c.Lines)
}

func TestRender_DaysSince(t *testing.T) {
	c := Render(widget.DaysSince{EventName: "Our first date", EventDate: "2025-01-01", Emoji: "💕"}, now)
	assert.Equal(t, "💕", c.Glyph)
	assert.Equal(t, "1 day", c.Headline)
	assert.Equal(t, []string{"Our first date", "Jan 1, 2025"}, c.Lines)

	c = Render(widget.DaysSince{EventName: "Trip", EventDate: "2025-01-10"}, now)
	assert.Equal(t, widget.DefaultDaysSinceEmoji, c.Glyph)
	assert.Equal(t, "-8 days", c.Headline)
}

func TestRender_DerivationFallback(t *testing.T) {
	c := Render(widget.DaysSince{EventName: "Trip", EventDate: "someday"}, now)
	assert.Equal(t, Fallback, c.Headline)

	c = Render(widget.DateReminder{EventName: "Dinner", EventDate: "2025-01-02", EventTime: "7pm", Location: "Toit"}, now)
	assert.Equal(t, []string{Fallback}, c.Badges)
	assert.Contains(t, c.Lines, "Toit")

	c = Render(widget.CalendarEvent{EventName: "x", EventDate: "bad", EventTime: "10:00"}, now)
	assert.Equal(t, Fallback, c.Lines[0])
}

func TestRender_DateReminder(t *testing.T) {
	c := Render(widget.DateReminder{
		EventName: "Dinner", EventDate: "2025-01-02", EventTime: "19:30",
		Location: "Toit", CommuteTime: intPtr(25),
	}, now)

	assert.Equal(t, widget.DefaultReminderEmoji, c.Glyph)
	assert.Equal(t, []string{"2 hours"}, c.Badges)
	assert.Equal(t, []string{"Thu, Jan 2 at 19:30", "Toit", "~25 min commute"}, c.Lines)

	past := Render(widget.DateReminder{EventName: "Lunch", EventDate: "2025-01-01", EventTime: "13:00", Location: "Home"}, now)
	assert.Equal(t, []string{"Past event"}, past.Badges)
}

func TestRender_CalendarEvent(t *testing.T) {
	c := Render(widget.CalendarEvent{
		EventName: "Doctor", EventDate: "2025-01-02", EventTime: "19:30",
		Duration: intPtr(60), Location: "Clinic", Priority: widget.PriorityHigh,
	}, now)

	assert.Equal(t, []string{"HIGH"}, c.Badges)
	assert.Equal(t, AccentRed, c.Accent)
	assert.Equal(t, []string{"Thu, Jan 2 • 19:30 (60m)", "Clinic"}, c.Lines)

	low := Render(sample(widget.TypeCalendarEvent), now)
	assert.Equal(t, AccentGray, low.Accent)
	assert.Equal(t, []string{"LOW"}, low.Badges)
}

func TestRender_GoneLive(t *testing.T) {
	c := Render(widget.GoneLive{
		StreamTitle: "Baking", Activity: widget.ActivityCooking, IsActive: true,
		Duration: intPtr(12), Viewers: intPtr(1),
	}, now)

	assert.True(t, c.Live)
	assert.Equal(t, "🍳", c.Glyph)
	assert.Equal(t, []string{"LIVE"}, c.Badges)
	assert.Equal(t, []string{"Cooking", "12m streaming", "1 watching"}, c.Lines)

	fresh := Render(widget.GoneLive{StreamTitle: "x", Activity: widget.ActivityOther, Duration: intPtr(0)}, now)
	assert.False(t, fresh.Live)
	assert.Empty(t, fresh.Badges)
	assert.Equal(t, widget.DefaultActivityGlyph, fresh.Glyph)
	assert.Equal(t, []string{"Other"}, fresh.Lines)
}

func TestRender_UsesNowLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	c := Render(widget.DateReminder{EventName: "x", EventDate: "2025-01-03", EventTime: "00:30", Location: "y"},
		time.Date(2025, 1, 2, 23, 45, 0, 0, ist))
	assert.Equal(t, []string{"Soon!"}, c.Badges)
}

func TestCard_Text(t *testing.T) {
	c := Render(widget.CalendarEvent{
		EventName: "Doctor", EventDate: "2025-01-02", EventTime: "19:30", Priority: widget.PriorityMedium,
	}, now)
	assert.Equal(t, "Event [MEDIUM]\nDoctor\nThu, Jan 2 • 19:30", c.Text())

	s := Render(widget.Sticker{Glyph: "🌹", Name: "Rose"}, now)
	assert.Equal(t, "Sticker\n🌹 Rose", s.Text())
}
