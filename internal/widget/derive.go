package widget

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Wire layouts for dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const day = 24 * time.Hour

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseClock reports whether s is a valid 24h HH:MM time.
func ParseClock(s string) bool {
	_, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	return err == nil
}

// EventInstant combines a calendar date and an HH:MM time in loc.
func EventInstant(date, clock string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout,
		strings.TrimSpace(date)+" "+strings.TrimSpace(clock), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ElapsedDays returns the number of calendar days from eventDate to now's
// date in now's location, so daylight-saving shifts never move the count. A
// future date gives a negative count. ok is false when eventDate does not
// parse.
func ElapsedDays(eventDate string, now time.Time) (days int, ok bool) {
	d, ok := ParseDate(eventDate, now.Location())
	if !ok {
		return 0, false
	}
	return int(civilDay(now).Sub(civilDay(d)) / day), true
}

// civilDay maps t's calendar date to UTC midnight, where every day is 24h.
func civilDay(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// DayCount formats a day count: "1 day" and "-1 day" are singular, every
// other value (including 0) is plural.
func DayCount(n int) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d day", n)
	}
	return fmt.Sprintf("%d days", n)
}

// TimeUntil returns the signed duration from now until the event instant.
// ok is false when either the date or the time does not parse.
func TimeUntil(eventDate, eventTime string, now time.Time) (time.Duration, bool) {
	at, ok := EventInstant(eventDate, eventTime, now.Location())
	if !ok {
		return 0, false
	}
	return at.Sub(now), true
}

// TimeUntilLabel buckets a countdown for display: past events, whole days
// (rounded up) when more than one, whole hours (rounded up) when more than
// one, otherwise "Soon!".
func TimeUntilLabel(d time.Duration) string {
	if d < 0 {
		return "Past event"
	}
	if days := int(math.Ceil(float64(d) / float64(day))); days > 1 {
		return fmt.Sprintf("%d days", days)
	}
	if hours := int(math.Ceil(d.Hours())); hours > 1 {
		return fmt.Sprintf("%d hours", hours)
	}
	return "Soon!"
}

var activityGlyphs = map[Activity]string{
	ActivityWorking:    "💻",
	ActivityStudying:   "📚",
	ActivityCooking:    "🍳",
	ActivityGaming:     "🎮",
	ActivityReading:    "📖",
	ActivityExercising: "🏋️",
}

// DefaultActivityGlyph is shown for "other" and unrecognised activities.
const DefaultActivityGlyph = "📹"

// ActivityGlyph returns the emoji for a live-session activity.
func ActivityGlyph(a Activity) string {
	if g, ok := activityGlyphs[a]; ok {
		return g
	}
	return DefaultActivityGlyph
}
