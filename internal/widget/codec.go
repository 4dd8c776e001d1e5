package widget

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingType is returned by Decode when the payload has no "type" key.
var ErrMissingType = errors.New("widget: missing or empty \"type\" field")

// Encode serializes w into its wire shape: the variant's fields plus a "type"
// discriminator. An Unknown widget is written back exactly as it was read.
func Encode(w Widget) ([]byte, error) {
	if w == nil {
		return nil, fmt.Errorf("widget: encode nil widget")
	}
	if u, ok := w.(Unknown); ok {
		out := make([]byte, len(u.Raw))
		copy(out, u.Raw)
		return out, nil
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("widget: marshal %s: %w", w.Type(), err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("widget: unmarshal %s into map: %w", w.Type(), err)
	}
	m["type"], _ = json.Marshal(string(w.Type()))

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("widget: marshal %s envelope: %w", w.Type(), err)
	}
	return out, nil
}

// Decode parses a wire payload into the matching variant. Unrecognised
// discriminators decode to Unknown so that older and newer clients can share a
// timeline; only malformed JSON or a missing discriminator is an error.
func Decode(data []byte) (Widget, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("widget: unmarshal envelope: %w", err)
	}
	if head.Type == "" {
		return nil, ErrMissingType
	}

	var (
		w   Widget
		err error
	)
	switch Type(head.Type) {
	case TypeSticker:
		w, err = decodeSticker(data)
	case TypeMoney:
		var v Money
		err = json.Unmarshal(data, &v)
		w = v
	case TypeDaysSince:
		var v DaysSince
		err = json.Unmarshal(data, &v)
		w = v
	case TypeSharedLocation:
		var v SharedLocation
		err = json.Unmarshal(data, &v)
		w = v
	case TypeDateReminder:
		var v DateReminder
		err = json.Unmarshal(data, &v)
		w = v
	case TypeCalendarEvent:
		var v CalendarEvent
		err = json.Unmarshal(data, &v)
		if v.Priority == "" {
			v.Priority = PriorityMedium
		}
		w = v
	case TypeGoneLive:
		var v GoneLive
		err = json.Unmarshal(data, &v)
		if v.Activity == "" {
			v.Activity = ActivityWorking
		}
		w = v
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return Unknown{Kind: head.Type, Raw: raw}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("widget: decode %q payload: %w", head.Type, err)
	}
	return w, nil
}

// decodeSticker also accepts the legacy "stickerUrl" key that older clients
// used for the glyph.
func decodeSticker(data []byte) (Widget, error) {
	var v struct {
		Sticker
		Legacy string `json:"stickerUrl"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v.Glyph == "" {
		v.Glyph = v.Legacy
	}
	return v.Sticker, nil
}
