package widget

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownType is returned for a variant outside AllTypes.
	ErrUnknownType = errors.New("widget: unknown widget type")
	// ErrUnknownField is returned when a draft has no field of that name.
	ErrUnknownField = errors.New("widget: unknown form field")
	// ErrInvalidChoice is returned when a value is outside a fixed choice set
	// (currency, priority, activity, emoji, sticker).
	ErrInvalidChoice = errors.New("widget: value not among the allowed choices")
)

// Draft is the pending form state for one variant. Fields hold raw text as
// typed by the user; Valid gates submission and Build turns valid state into a
// Widget. A fresh draft from NewDraft is the documented default for its form.
type Draft interface {
	Type() Type
	// Set updates one form field. Free-text fields accept anything; choice
	// fields reject values outside their set with ErrInvalidChoice.
	Set(field, value string) error
	// Fields returns a snapshot of the form state keyed by field name.
	Fields() map[string]string
	Valid() bool
	// Build returns the widget and true when Valid, otherwise nil and false.
	Build() (Widget, bool)
}

// NewDraft returns the default draft for t.
func NewDraft(t Type) (Draft, error) {
	switch t {
	case TypeSticker:
		return &StickerDraft{Glyph: StickerCatalog[0].Glyph, Name: StickerCatalog[0].Name}, nil
	case TypeMoney:
		return &MoneyDraft{Currency: string(Currencies[0])}, nil
	case TypeDaysSince:
		return &DaysSinceDraft{Emoji: DefaultDaysSinceEmoji}, nil
	case TypeSharedLocation:
		return &SharedLocationDraft{}, nil
	case TypeDateReminder:
		return &DateReminderDraft{Emoji: DefaultReminderEmoji}, nil
	case TypeCalendarEvent:
		return &CalendarEventDraft{Priority: string(PriorityMedium)}, nil
	case TypeGoneLive:
		return &GoneLiveDraft{Activity: string(ActivityWorking)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func unknownField(t Type, field string) error {
	return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, t, field)
}

func oneOf(value string, choices []string) bool {
	for _, c := range choices {
		if value == c {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// sticker
// ---------------------------------------------------------------------------

// StickerDraft holds the selected catalog sticker. Any catalog selection is a
// complete submission.
type StickerDraft struct {
	Glyph string
	Name  string
}

func (d *StickerDraft) Type() Type { return TypeSticker }

func (d *StickerDraft) Set(field, value string) error {
	if field != "sticker" {
		return unknownField(TypeSticker, field)
	}
	opt, ok := LookupSticker(value)
	if !ok {
		return fmt.Errorf("%w: sticker %q", ErrInvalidChoice, value)
	}
	d.Glyph, d.Name = opt.Glyph, opt.Name
	return nil
}

func (d *StickerDraft) Fields() map[string]string {
	return map[string]string{"sticker": d.Glyph, "stickerName": d.Name}
}

func (d *StickerDraft) Valid() bool { return true }

func (d *StickerDraft) Build() (Widget, bool) {
	return Sticker{Glyph: d.Glyph, Name: d.Name}, true
}

// LookupSticker finds a catalog entry by glyph.
func LookupSticker(glyph string) (StickerOption, bool) {
	for _, opt := range StickerCatalog {
		if opt.Glyph == glyph {
			return opt, true
		}
	}
	return StickerOption{}, false
}

// ---------------------------------------------------------------------------
// money
// ---------------------------------------------------------------------------

type MoneyDraft struct {
	Amount   string
	Currency string
	Note     string
}

func (d *MoneyDraft) Type() Type { return TypeMoney }

func (d *MoneyDraft) Set(field, value string) error {
	switch field {
	case "amount":
		d.Amount = value
	case "currency":
		if !Currency(value).Valid() {
			return fmt.Errorf("%w: currency %q", ErrInvalidChoice, value)
		}
		d.Currency = value
	case "note":
		d.Note = value
	default:
		return unknownField(TypeMoney, field)
	}
	return nil
}

func (d *MoneyDraft) Fields() map[string]string {
	return map[string]string{"amount": d.Amount, "currency": d.Currency, "note": d.Note}
}

func (d *MoneyDraft) amount() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(d.Amount), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

func (d *MoneyDraft) Valid() bool {
	_, ok := d.amount()
	return ok && Currency(d.Currency).Valid()
}

func (d *MoneyDraft) Build() (Widget, bool) {
	v, ok := d.amount()
	if !ok || !Currency(d.Currency).Valid() {
		return nil, false
	}
	return Money{Amount: v, Currency: Currency(d.Currency), Note: d.Note}, true
}

// ---------------------------------------------------------------------------
// days-since
// ---------------------------------------------------------------------------

type DaysSinceDraft struct {
	EventName string
	EventDate string
	Emoji     string
}

func (d *DaysSinceDraft) Type() Type { return TypeDaysSince }

func (d *DaysSinceDraft) Set(field, value string) error {
	switch field {
	case "eventName":
		d.EventName = value
	case "eventDate":
		d.EventDate = value
	case "emoji":
		if !oneOf(value, DaysSinceEmojis) {
			return fmt.Errorf("%w: emoji %q", ErrInvalidChoice, value)
		}
		d.Emoji = value
	default:
		return unknownField(TypeDaysSince, field)
	}
	return nil
}

func (d *DaysSinceDraft) Fields() map[string]string {
	return map[string]string{"eventName": d.EventName, "eventDate": d.EventDate, "emoji": d.Emoji}
}

func (d *DaysSinceDraft) Valid() bool {
	if !filled(d.EventName) {
		return false
	}
	_, ok := ParseDate(d.EventDate, time.UTC)
	return ok
}

func (d *DaysSinceDraft) Build() (Widget, bool) {
	if !d.Valid() {
		return nil, false
	}
	return DaysSince{EventName: d.EventName, EventDate: d.EventDate, Emoji: d.Emoji}, true
}

// ---------------------------------------------------------------------------
// shared-location
// ---------------------------------------------------------------------------

type SharedLocationDraft struct {
	LocationName string
	Address      string
	Message      string
	Lat          string
	Lng          string
}

func (d *SharedLocationDraft) Type() Type { return TypeSharedLocation }

func (d *SharedLocationDraft) Set(field, value string) error {
	switch field {
	case "locationName":
		d.LocationName = value
	case "address":
		d.Address = value
	case "message":
		d.Message = value
	case "lat":
		d.Lat = value
	case "lng":
		d.Lng = value
	default:
		return unknownField(TypeSharedLocation, field)
	}
	return nil
}

func (d *SharedLocationDraft) Fields() map[string]string {
	return map[string]string{
		"locationName": d.LocationName,
		"address":      d.Address,
		"message":      d.Message,
		"lat":          d.Lat,
		"lng":          d.Lng,
	}
}

func (d *SharedLocationDraft) Valid() bool {
	return filled(d.LocationName) && filled(d.Address)
}

// coordinates returns a pair only when both halves parse and are in range.
func (d *SharedLocationDraft) coordinates() *Coordinates {
	lat, err := strconv.ParseFloat(strings.TrimSpace(d.Lat), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(d.Lng), 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil
	}
	return &Coordinates{Lat: lat, Lng: lng}
}

func (d *SharedLocationDraft) Build() (Widget, bool) {
	if !d.Valid() {
		return nil, false
	}
	return SharedLocation{
		LocationName: d.LocationName,
		Address:      d.Address,
		Coordinates:  d.coordinates(),
		Message:      d.Message,
	}, true
}

// ---------------------------------------------------------------------------
// date-reminder
// ---------------------------------------------------------------------------

type DateReminderDraft struct {
	EventName   string
	EventDate   string
	EventTime   string
	Location    string
	CommuteTime string
	Emoji       string
}

func (d *DateReminderDraft) Type() Type { return TypeDateReminder }

func (d *DateReminderDraft) Set(field, value string) error {
	switch field {
	case "eventName":
		d.EventName = value
	case "eventDate":
		d.EventDate = value
	case "eventTime":
		d.EventTime = value
	case "location":
		d.Location = value
	case "commuteTime":
		d.CommuteTime = value
	case "emoji":
		if !oneOf(value, ReminderEmojis) {
			return fmt.Errorf("%w: emoji %q", ErrInvalidChoice, value)
		}
		d.Emoji = value
	default:
		return unknownField(TypeDateReminder, field)
	}
	return nil
}

func (d *DateReminderDraft) Fields() map[string]string {
	return map[string]string{
		"eventName":   d.EventName,
		"eventDate":   d.EventDate,
		"eventTime":   d.EventTime,
		"location":    d.Location,
		"commuteTime": d.CommuteTime,
		"emoji":       d.Emoji,
	}
}

func (d *DateReminderDraft) Valid() bool {
	return filled(d.EventName) && filled(d.EventDate) && filled(d.EventTime) && filled(d.Location)
}

func (d *DateReminderDraft) Build() (Widget, bool) {
	if !d.Valid() {
		return nil, false
	}
	w := DateReminder{
		EventName: d.EventName,
		EventDate: d.EventDate,
		EventTime: d.EventTime,
		Location:  d.Location,
		Emoji:     d.Emoji,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(d.CommuteTime)); err == nil && n > 0 {
		w.CommuteTime = &n
	}
	return w, true
}

// ---------------------------------------------------------------------------
// calendar-event
// ---------------------------------------------------------------------------

type CalendarEventDraft struct {
	EventName   string
	EventDate   string
	EventTime   string
	Duration    string
	Location    string
	Description string
	Priority    string
}

func (d *CalendarEventDraft) Type() Type { return TypeCalendarEvent }

func (d *CalendarEventDraft) Set(field, value string) error {
	switch field {
	case "eventName":
		d.EventName = value
	case "eventDate":
		d.EventDate = value
	case "eventTime":
		d.EventTime = value
	case "duration":
		d.Duration = value
	case "location":
		d.Location = value
	case "description":
		d.Description = value
	case "priority":
		if !Priority(value).Valid() {
			return fmt.Errorf("%w: priority %q", ErrInvalidChoice, value)
		}
		d.Priority = value
	default:
		return unknownField(TypeCalendarEvent, field)
	}
	return nil
}

func (d *CalendarEventDraft) Fields() map[string]string {
	return map[string]string{
		"eventName":   d.EventName,
		"eventDate":   d.EventDate,
		"eventTime":   d.EventTime,
		"duration":    d.Duration,
		"location":    d.Location,
		"description": d.Description,
		"priority":    d.Priority,
	}
}

// duration returns the parsed duration, nil when the field is blank, and
// ok=false when it is present but not an integer.
func (d *CalendarEventDraft) duration() (*int, bool) {
	s := strings.TrimSpace(d.Duration)
	if s == "" {
		return nil, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return &n, true
}

func (d *CalendarEventDraft) Valid() bool {
	if !filled(d.EventName) || !filled(d.EventDate) || !filled(d.EventTime) {
		return false
	}
	_, ok := d.duration()
	return ok
}

func (d *CalendarEventDraft) Build() (Widget, bool) {
	if !d.Valid() {
		return nil, false
	}
	dur, _ := d.duration()
	return CalendarEvent{
		EventName:   d.EventName,
		EventDate:   d.EventDate,
		EventTime:   d.EventTime,
		Duration:    dur,
		Location:    d.Location,
		Description: d.Description,
		Priority:    Priority(d.Priority),
	}, true
}

// ---------------------------------------------------------------------------
// gone-live
// ---------------------------------------------------------------------------

type GoneLiveDraft struct {
	StreamTitle string
	Activity    string
}

func (d *GoneLiveDraft) Type() Type { return TypeGoneLive }

func (d *GoneLiveDraft) Set(field, value string) error {
	switch field {
	case "streamTitle":
		d.StreamTitle = value
	case "activity":
		if !Activity(value).Valid() {
			return fmt.Errorf("%w: activity %q", ErrInvalidChoice, value)
		}
		d.Activity = value
	default:
		return unknownField(TypeGoneLive, field)
	}
	return nil
}

func (d *GoneLiveDraft) Fields() map[string]string {
	return map[string]string{"streamTitle": d.StreamTitle, "activity": d.Activity}
}

func (d *GoneLiveDraft) Valid() bool { return filled(d.StreamTitle) }

// Build always starts a fresh session: active, zero minutes elapsed.
func (d *GoneLiveDraft) Build() (Widget, bool) {
	if !d.Valid() {
		return nil, false
	}
	zero := 0
	return GoneLive{
		StreamTitle: d.StreamTitle,
		Activity:    Activity(d.Activity),
		IsActive:    true,
		Duration:    &zero,
	}, true
}
