package widget

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElapsedDays(t *testing.T) {
	event := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"same instant", event, 0},
		{"later the same day", event.Add(23 * time.Hour), 0},
		{"one day after", event.Add(24 * time.Hour), 1},
		{"one day before", event.Add(-24 * time.Hour), -1},
		{"an hour before", event.Add(-time.Hour), -1},
		{"a year after", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ElapsedDays("2024-06-15", tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElapsedDays_UsesNowLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 6, 16, 0, 30, 0, 0, ist)

	got, ok := ElapsedDays("2024-06-15", now)
	require.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestElapsedDays_AcrossDaylightSaving(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"after spring forward", time.Date(2024, 3, 11, 0, 30, 0, 0, ny), 2},
		{"after fall back", time.Date(2024, 11, 4, 23, 30, 0, 0, ny), 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ElapsedDays("2024-03-09", tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElapsedDays_Unparsable(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2024-13-01", "15/06/2024"} {
		_, ok := ElapsedDays(in, time.Now())
		assert.False(t, ok, "input %q", in)
	}
}

func TestDayCount(t *testing.T) {
	assert.Equal(t, "0 days", DayCount(0))
	assert.Equal(t, "1 day", DayCount(1))
	assert.Equal(t, "-1 day", DayCount(-1))
	assert.Equal(t, "2 days", DayCount(2))
	assert.Equal(t, "-5 days", DayCount(-5))
}

func TestTimeUntilLabel(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "Past event"},
		{-48 * time.Hour, "Past event"},
		{25 * time.Hour, "2 days"},
		{72 * time.Hour, "3 days"},
		{24 * time.Hour, "24 hours"},
		{90 * time.Minute, "2 hours"},
		{61 * time.Minute, "2 hours"},
		{time.Hour, "Soon!"},
		{30 * time.Second, "Soon!"},
		{0, "Soon!"},
	}

	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TimeUntilLabel(tt.d))
		})
	}
}

func TestTimeUntil(t *testing.T) {
	now := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)

	d, ok := TimeUntil("2025-01-02", "19:30", now)
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, d)
	assert.Equal(t, "2 hours", TimeUntilLabel(d))

	d, ok = TimeUntil("2025-01-02", "17:59", now)
	require.True(t, ok)
	assert.Equal(t, "Past event", TimeUntilLabel(d))

	_, ok = TimeUntil("2025-01-02", "7pm", now)
	assert.False(t, ok)
	_, ok = TimeUntil("soon", "19:30", now)
	assert.False(t, ok)
}

func TestActivityGlyph(t *testing.T) {
	assert.Equal(t, "💻", ActivityGlyph(ActivityWorking))
	assert.Equal(t, "🏋️", ActivityGlyph(ActivityExercising))
	assert.Equal(t, DefaultActivityGlyph, ActivityGlyph(ActivityOther))
	assert.Equal(t, DefaultActivityGlyph, ActivityGlyph("knitting"))
}
