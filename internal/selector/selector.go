// Package selector implements the compose-time widget chooser: a small state
// machine that opens onto a menu of widget variants, shows one variant's form
// at a time, gates submission on that form's validation, and hands a finished
// widget to its owner through a single callback.
package selector

import (
	"errors"
	"fmt"

	"github.com/pookieplum/chat-app/internal/widget"
)

// Phase is the coarse state of the selection surface.
type Phase string

const (
	PhaseClosed Phase = "closed"
	PhaseMenu   Phase = "menu"
	PhaseForm   Phase = "form"
)

var (
	// ErrNotOpen is returned by operations that need an open surface.
	ErrNotOpen = errors.New("selector: surface is closed")
	// ErrNoForm is returned by form operations while no form is shown.
	ErrNoForm = errors.New("selector: no variant form is open")
	// ErrNotSticker is returned by PickSticker outside the sticker form.
	ErrNotSticker = errors.New("selector: sticker form is not open")
	// ErrStickerIndex is returned for an index outside the catalog.
	ErrStickerIndex = errors.New("selector: sticker index out of range")
)

// State is a snapshot of the selector suitable for sending to a client.
type State struct {
	Phase     Phase             `json:"phase"`
	Variant   widget.Type       `json:"variant,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	CanSubmit bool              `json:"can_submit"`
}

// Selector owns at most one draft at a time. Switching variants, going back
// to the menu, submitting and cancelling all discard the current draft, so a
// form never reopens with input left over from an earlier visit.
//
// A Selector is owned by a single interactive session and is not safe for
// concurrent use.
type Selector struct {
	phase    Phase
	draft    widget.Draft
	onSubmit func(widget.Widget)
}

// New returns a closed selector. onSubmit is invoked exactly once per
// successful submission.
func New(onSubmit func(widget.Widget)) *Selector {
	return &Selector{phase: PhaseClosed, onSubmit: onSubmit}
}

// Open shows the variant menu. Opening an already open surface returns to
// the menu and drops any draft.
func (s *Selector) Open() {
	s.phase = PhaseMenu
	s.draft = nil
}

// Choose shows the form for v with its default draft.
func (s *Selector) Choose(v widget.Type) error {
	if s.phase == PhaseClosed {
		return ErrNotOpen
	}
	d, err := widget.NewDraft(v)
	if err != nil {
		return fmt.Errorf("selector: choose: %w", err)
	}
	s.phase = PhaseForm
	s.draft = d
	return nil
}

// Back returns from a form to the menu, discarding the draft.
func (s *Selector) Back() error {
	if s.phase != PhaseForm {
		return ErrNoForm
	}
	s.phase = PhaseMenu
	s.draft = nil
	return nil
}

// SetField updates one field of the open form.
func (s *Selector) SetField(field, value string) error {
	if s.phase != PhaseForm {
		return ErrNoForm
	}
	return s.draft.Set(field, value)
}

// CanSubmit reports whether the open form would be accepted by Submit.
func (s *Selector) CanSubmit() bool {
	return s.phase == PhaseForm && s.draft.Valid()
}

// Submit builds the widget from the open form. When the form is incomplete
// nothing happens and Submit returns false; on success the surface closes,
// the draft is reset and the callback receives the widget.
func (s *Selector) Submit() (bool, error) {
	if s.phase != PhaseForm {
		return false, ErrNoForm
	}
	w, ok := s.draft.Build()
	if !ok {
		return false, nil
	}
	s.close()
	if s.onSubmit != nil {
		s.onSubmit(w)
	}
	return true, nil
}

// PickSticker submits the catalog sticker at index i. Picking is the whole
// sticker form: there is no separate submit step.
func (s *Selector) PickSticker(i int) error {
	if s.phase != PhaseForm || s.draft.Type() != widget.TypeSticker {
		return ErrNotSticker
	}
	if i < 0 || i >= len(widget.StickerCatalog) {
		return fmt.Errorf("%w: %d", ErrStickerIndex, i)
	}
	if err := s.draft.Set("sticker", widget.StickerCatalog[i].Glyph); err != nil {
		return err
	}
	_, err := s.Submit()
	return err
}

// Cancel closes the surface from any state and resets all pending input.
func (s *Selector) Cancel() {
	s.close()
}

// State returns a snapshot of the current phase and form.
func (s *Selector) State() State {
	st := State{Phase: s.phase}
	if s.phase == PhaseForm {
		st.Variant = s.draft.Type()
		st.Fields = s.draft.Fields()
		st.CanSubmit = s.draft.Valid()
	}
	return st
}

func (s *Selector) close() {
	s.phase = PhaseClosed
	s.draft = nil
}
