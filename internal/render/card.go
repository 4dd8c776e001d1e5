// Package render turns widgets into display cards. Rendering is a pure
// function of the widget and the current instant; dates and times are
// interpreted in now's location.
package render

import (
	"strings"

	"github.com/pookieplum/chat-app/internal/widget"
)

// Fallback is shown wherever a derived value cannot be computed.
const Fallback = "—"

// Accent colours used by the card templates.
const (
	AccentPink   = "pink"
	AccentGreen  = "green"
	AccentPurple = "purple"
	AccentBlue   = "blue"
	AccentOrange = "orange"
	AccentGray   = "gray"
	AccentYellow = "yellow"
	AccentRed    = "red"
)

// Card is the display form of one widget.
type Card struct {
	Kind     widget.Type `json:"kind"`
	Title    string      `json:"title"`
	Glyph    string      `json:"glyph,omitempty"`
	Headline string      `json:"headline"`
	Lines    []string    `json:"lines,omitempty"`
	Badges   []string    `json:"badges,omitempty"`
	Accent   string      `json:"accent"`
	Live     bool        `json:"live,omitempty"`
}

// Text renders the card as plain text, one element per line.
func (c *Card) Text() string {
	var b strings.Builder
	b.WriteString(c.Title)
	for _, badge := range c.Badges {
		b.WriteString(" [")
		b.WriteString(badge)
		b.WriteString("]")
	}
	b.WriteByte('\n')
	if c.Glyph != "" {
		b.WriteString(c.Glyph)
		b.WriteByte(' ')
	}
	b.WriteString(c.Headline)
	for _, l := range c.Lines {
		b.WriteByte('\n')
		b.WriteString(l)
	}
	return b.String()
}

func (c *Card) line(s string) {
	if s != "" {
		c.Lines = append(c.Lines, s)
	}
}
