package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pookieplum/chat-app/internal/widget"
)

const (
	dayLayout     = "Jan 2, 2006"
	weekdayLayout = "Mon, Jan 2"
)

// Render returns the card for w at instant now, or nil when w is nil or of a
// variant this build does not know.
func Render(w widget.Widget, now time.Time) *Card {
	switch v := w.(type) {
	case widget.Sticker:
		return sticker(v)
	case widget.Money:
		return money(v)
	case widget.DaysSince:
		return daysSince(v, now)
	case widget.SharedLocation:
		return sharedLocation(v)
	case widget.DateReminder:
		return dateReminder(v, now)
	case widget.CalendarEvent:
		return calendarEvent(v, now)
	case widget.GoneLive:
		return goneLive(v)
	default:
		return nil
	}
}

func sticker(w widget.Sticker) *Card {
	return &Card{
		Kind:     widget.TypeSticker,
		Title:    "Sticker",
		Glyph:    w.Glyph,
		Headline: w.Name,
		Accent:   AccentPink,
	}
}

// Amount formats a money amount with two decimals and thousands separators.
func Amount(c widget.Currency, amount float64) string {
	return string(c) + " " + humanize.FormatFloat("#,###.##", amount)
}

func money(w widget.Money) *Card {
	c := &Card{
		Kind:     widget.TypeMoney,
		Title:    "Money Sent",
		Headline: Amount(w.Currency, w.Amount),
		Accent:   AccentGreen,
	}
	c.line(w.Note)
	c.line("Transfer completed")
	return c
}

func daysSince(w widget.DaysSince, now time.Time) *Card {
	emoji := w.Emoji
	if emoji == "" {
		emoji = widget.DefaultDaysSinceEmoji
	}
	c := &Card{
		Kind:     widget.TypeDaysSince,
		Title:    "Days Since",
		Glyph:    emoji,
		Headline: Fallback,
		Accent:   AccentPurple,
	}
	c.line(w.EventName)
	if n, ok := widget.ElapsedDays(w.EventDate, now); ok {
		c.Headline = widget.DayCount(n)
		d, _ := widget.ParseDate(w.EventDate, now.Location())
		c.line(d.Format(dayLayout))
	} else {
		c.line(Fallback)
	}
	return c
}

func sharedLocation(w widget.SharedLocation) *Card {
	c := &Card{
		Kind:     widget.TypeSharedLocation,
		Title:    "Location Shared",
		Glyph:    "📍",
		Headline: w.LocationName,
		Accent:   AccentBlue,
	}
	c.line(w.Address)
	c.line(w.Message)
	if w.Coordinates != nil {
		c.line(fmt.Sprintf("%.5f, %.5f", w.Coordinates.Lat, w.Coordinates.Lng))
	}
	return c
}

func dateReminder(w widget.DateReminder, now time.Time) *Card {
	emoji := w.Emoji
	if emoji == "" {
		emoji = widget.DefaultReminderEmoji
	}
	c := &Card{
		Kind:     widget.TypeDateReminder,
		Title:    "Date Reminder",
		Glyph:    emoji,
		Headline: w.EventName,
		Accent:   AccentOrange,
	}
	if at, ok := widget.EventInstant(w.EventDate, w.EventTime, now.Location()); ok {
		c.line(at.Format(weekdayLayout) + " at " + w.EventTime)
		c.line(w.Location)
		c.Badges = append(c.Badges, widget.TimeUntilLabel(at.Sub(now)))
	} else {
		c.line(Fallback)
		c.line(w.Location)
		c.Badges = append(c.Badges, Fallback)
	}
	if w.CommuteTime != nil {
		c.line(fmt.Sprintf("~%d min commute", *w.CommuteTime))
	}
	return c
}

var priorityAccents = map[widget.Priority]string{
	widget.PriorityLow:    AccentGray,
	widget.PriorityMedium: AccentYellow,
	widget.PriorityHigh:   AccentRed,
}

func calendarEvent(w widget.CalendarEvent, now time.Time) *Card {
	priority := w.Priority
	if !priority.Valid() {
		priority = widget.PriorityMedium
	}
	c := &Card{
		Kind:     widget.TypeCalendarEvent,
		Title:    "Event",
		Headline: w.EventName,
		Badges:   []string{strings.ToUpper(string(priority))},
		Accent:   priorityAccents[priority],
	}
	when := Fallback
	if at, ok := widget.EventInstant(w.EventDate, w.EventTime, now.Location()); ok {
		when = at.Format(weekdayLayout) + " • " + w.EventTime
		if w.Duration != nil {
			when += fmt.Sprintf(" (%dm)", *w.Duration)
		}
	}
	c.line(when)
	c.line(w.Location)
	c.line(w.Description)
	return c
}

func goneLive(w widget.GoneLive) *Card {
	c := &Card{
		Kind:     widget.TypeGoneLive,
		Title:    "Gone Live!",
		Glyph:    widget.ActivityGlyph(w.Activity),
		Headline: w.StreamTitle,
		Accent:   AccentRed,
		Live:     w.IsActive,
	}
	if w.IsActive {
		c.Badges = append(c.Badges, "LIVE")
	}
	c.line(capitalize(string(w.Activity)))
	if w.Duration != nil && *w.Duration > 0 {
		c.line(fmt.Sprintf("%dm streaming", *w.Duration))
	}
	if w.Viewers != nil && *w.Viewers > 0 {
		c.line(fmt.Sprintf("%d watching", *w.Viewers))
	}
	return c
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
