// Package widget defines the closed set of structured attachments that can
// ride on a chat message: stickers, money-sent cards, countdowns, reminders,
// shared locations, calendar events and live-activity cards. Each variant is a
// plain struct; the Widget interface is sealed so that no type outside this
// package can pose as a widget.
package widget

// Type is the wire discriminator of a widget variant.
type Type string

// Widget variants.
const (
	TypeSticker        Type = "sticker"
	TypeMoney          Type = "money"
	TypeDaysSince      Type = "days-since"
	TypeSharedLocation Type = "shared-location"
	TypeDateReminder   Type = "date-reminder"
	TypeCalendarEvent  Type = "calendar-event"
	TypeGoneLive       Type = "gone-live"
)

// AllTypes lists every known variant in menu order. Code that dispatches on
// Type is expected to handle each entry; the package tests enforce this for
// drafts, and the render package does the same for templates.
var AllTypes = []Type{
	TypeSticker,
	TypeMoney,
	TypeDaysSince,
	TypeSharedLocation,
	TypeDateReminder,
	TypeCalendarEvent,
	TypeGoneLive,
}

// Known reports whether t is one of the variants in AllTypes.
func (t Type) Known() bool {
	for _, k := range AllTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Widget is implemented by exactly the variant structs in this package.
type Widget interface {
	Type() Type
	sealed()
}

// Sticker is a decorative emoji sticker picked from the catalog.
type Sticker struct {
	Glyph string `json:"stickerGlyph"`
	Name  string `json:"stickerName"`
}

// Money announces a transfer to the partner.
type Money struct {
	Amount   float64  `json:"amount"`
	Currency Currency `json:"currency"`
	Note     string   `json:"note,omitempty"`
}

// DaysSince counts whole days since (or until) a remembered date.
type DaysSince struct {
	EventName string `json:"eventName"`
	EventDate string `json:"eventDate"` // YYYY-MM-DD
	Emoji     string `json:"emoji,omitempty"`
}

// Coordinates is an optional latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SharedLocation points the partner at a place.
type SharedLocation struct {
	LocationName string       `json:"locationName"`
	Address      string       `json:"address"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// DateReminder is a countdown to a planned date.
type DateReminder struct {
	EventName   string `json:"eventName"`
	EventDate   string `json:"eventDate"` // YYYY-MM-DD
	EventTime   string `json:"eventTime"` // HH:MM, 24h
	Location    string `json:"location"`
	CommuteTime *int   `json:"commuteTime,omitempty"` // minutes
	Emoji       string `json:"emoji,omitempty"`
}

// CalendarEvent is a shared calendar entry.
type CalendarEvent struct {
	EventName   string   `json:"eventName"`
	EventDate   string   `json:"eventDate"`
	EventTime   string   `json:"eventTime"`
	Duration    *int     `json:"duration,omitempty"` // minutes
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
}

// GoneLive tells the partner a live session has started.
type GoneLive struct {
	StreamTitle string   `json:"streamTitle"`
	Activity    Activity `json:"activity"`
	IsActive    bool     `json:"isActive"`
	Duration    *int     `json:"duration,omitempty"` // minutes elapsed
	Viewers     *int     `json:"viewers,omitempty"`
}

// Unknown holds a widget whose discriminator this build does not recognise.
// It is produced only by Decode and renders as nothing.
type Unknown struct {
	Kind string
	Raw  []byte
}

func (Sticker) Type() Type        { return TypeSticker }
func (Money) Type() Type          { return TypeMoney }
func (DaysSince) Type() Type      { return TypeDaysSince }
func (SharedLocation) Type() Type { return TypeSharedLocation }
func (DateReminder) Type() Type   { return TypeDateReminder }
func (CalendarEvent) Type() Type  { return TypeCalendarEvent }
func (GoneLive) Type() Type       { return TypeGoneLive }
func (u Unknown) Type() Type      { return Type(u.Kind) }

func (Sticker) sealed()        {}
func (Money) sealed()          {}
func (DaysSince) sealed()      {}
func (SharedLocation) sealed() {}
func (DateReminder) sealed()   {}
func (CalendarEvent) sealed()  {}
func (GoneLive) sealed()       {}
func (Unknown) sealed()        {}

// Currency is one of the supported currency symbols.
type Currency string

const (
	CurrencyINR Currency = "₹"
	CurrencyUSD Currency = "$"
	CurrencyEUR Currency = "€"
	CurrencyGBP Currency = "£"
)

// Currencies lists the accepted symbols; the first is the form default.
var Currencies = []Currency{CurrencyINR, CurrencyUSD, CurrencyEUR, CurrencyGBP}

// Valid reports whether c is a supported symbol.
func (c Currency) Valid() bool {
	for _, k := range Currencies {
		if c == k {
			return true
		}
	}
	return false
}

// Priority of a calendar event.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is low, medium or high.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Activity describes what a live session is about.
type Activity string

const (
	ActivityWorking    Activity = "working"
	ActivityStudying   Activity = "studying"
	ActivityCooking    Activity = "cooking"
	ActivityGaming     Activity = "gaming"
	ActivityReading    Activity = "reading"
	ActivityExercising Activity = "exercising"
	ActivityOther      Activity = "other"
)

// Activities lists the selectable activities in menu order.
var Activities = []Activity{
	ActivityWorking,
	ActivityStudying,
	ActivityCooking,
	ActivityGaming,
	ActivityReading,
	ActivityExercising,
	ActivityOther,
}

// Valid reports whether a is one of Activities.
func (a Activity) Valid() bool {
	for _, k := range Activities {
		if a == k {
			return true
		}
	}
	return false
}

// Default glyphs for variants whose emoji is optional.
const (
	DefaultDaysSinceEmoji = "📅"
	DefaultReminderEmoji  = "⏰"
)

// StickerOption is one entry of the sticker catalog.
type StickerOption struct {
	Glyph string `json:"glyph"`
	Name  string `json:"name"`
}

// StickerCatalog is the fixed set of stickers offered by the selector.
var StickerCatalog = []StickerOption{
	{Glyph: "😘", Name: "Kiss"},
	{Glyph: "❤️", Name: "Heart"},
	{Glyph: "🥰", Name: "Love"},
	{Glyph: "😍", Name: "Heart Eyes"},
	{Glyph: "🤗", Name: "Hug"},
	{Glyph: "💕", Name: "Two Hearts"},
	{Glyph: "💖", Name: "Sparkling Heart"},
	{Glyph: "🌹", Name: "Rose"},
}

// Emoji choices offered by the days-since and date-reminder forms.
var (
	DaysSinceEmojis = []string{"📅", "💕", "✈️", "🎉", "🏠", "💍", "🎂", "🪔", "🎊", "🌟"}
	ReminderEmojis  = []string{"⏰", "💕", "🍽️", "🎬", "🎉", "📍", "💍", "🌹"}
)
