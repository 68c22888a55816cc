package element

import (
	"encoding/json"
	"slices"

	"visuallm-be/pkg/apperr"
)

// Checkbox is a labelled boolean, usually grouped under a Button.
type Checkbox struct {
	base
	label    string
	selected bool
}

func NewCheckbox(id, label string, selected bool) *Checkbox {
	return &Checkbox{base: newBase(id, KindCheckbox), label: label, selected: selected}
}

func (e *Checkbox) Label() string { return e.label }

func (e *Checkbox) SetSelected(selected bool) {
	e.update(func() bool {
		if e.selected == selected {
			return false
		}
		e.selected = selected
		return true
	})
}

func (e *Checkbox) Selected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Receive accepts {"selected": bool}.
func (e *Checkbox) Receive(raw json.RawMessage) error { return receive(e, raw) }

func (e *Checkbox) stage(raw json.RawMessage) (func(), error) {
	var body struct {
		Selected *bool `json:"selected"`
	}
	if err := decodeValue(raw, e.id, &body); err != nil {
		return nil, err
	}
	if body.Selected == nil {
		return nil, apperr.New(apperr.ErrInvalidRequest, e.id, "missing selected")
	}
	v := *body.Selected
	return func() { e.SetSelected(v) }, nil
}

func (e *Checkbox) Serialize() Payload { return e.read(e.render) }

func (e *Checkbox) Flush(force bool) (Payload, bool) { return e.flush(force, e.render) }

func (e *Checkbox) render() Payload {
	return Payload{"label": e.label, "selected": e.selected}
}

// Selector offers a fixed set of string options, one of which may be selected.
type Selector struct {
	base
	label    string
	options  []string
	selected string
	address  string
}

func NewSelector(id, label, address string) *Selector {
	return &Selector{base: newBase(id, KindSelector), label: label, address: address}
}

// SetOptions replaces the options. selected must be empty or one of options.
func (e *Selector) SetOptions(options []string, selected string) error {
	if selected != "" && !slices.Contains(options, selected) {
		return apperr.InvalidSelection("selected", selected)
	}
	copied := append([]string(nil), options...)
	e.update(func() bool {
		if e.selected == selected && slices.Equal(e.options, copied) {
			return false
		}
		e.options = copied
		e.selected = selected
		return true
	})
	return nil
}

func (e *Selector) SetSelected(value string) error {
	apply, err := e.stageValue(value)
	if err != nil {
		return err
	}
	apply()
	return nil
}

func (e *Selector) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Selector) Options() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.options...)
}

// Receive accepts {"selected": "<option>"}.
func (e *Selector) Receive(raw json.RawMessage) error { return receive(e, raw) }

func (e *Selector) stage(raw json.RawMessage) (func(), error) {
	var body struct {
		Selected *string `json:"selected"`
	}
	if err := decodeValue(raw, "selected", &body); err != nil {
		return nil, err
	}
	if body.Selected == nil {
		return nil, apperr.New(apperr.ErrInvalidRequest, "selected", "missing value")
	}
	return e.stageValue(*body.Selected)
}

func (e *Selector) stageValue(value string) (func(), error) {
	e.mu.Lock()
	ok := slices.Contains(e.options, value)
	e.mu.Unlock()
	if !ok {
		return nil, apperr.InvalidSelection("selected", value)
	}
	return func() {
		e.update(func() bool {
			if e.selected == value {
				return false
			}
			e.selected = value
			return true
		})
	}, nil
}

func (e *Selector) Serialize() Payload { return e.read(e.render) }

func (e *Selector) Flush(force bool) (Payload, bool) { return e.flush(force, e.render) }

func (e *Selector) render() Payload {
	return Payload{
		"label":    e.label,
		"options":  append([]string(nil), e.options...),
		"selected": e.selected,
		"address":  e.address,
	}
}
