package element

import (
	"encoding/json"

	"visuallm-be/pkg/apperr"
)

// Button submits the values of its subelements in one request.
//
// Subelements are not registered with the component on their own; the button
// reports itself changed whenever any of them changed.
type Button struct {
	base
	text        string
	address     string
	subelements []Element
}

func NewButton(id, text, address string, subelements ...Element) *Button {
	return &Button{
		base:        newBase(id, KindButton),
		text:        text,
		address:     address,
		subelements: subelements,
	}
}

func (e *Button) Changed() bool {
	if e.base.Changed() {
		return true
	}
	return e.subelementsChanged()
}

// Receive accepts {"values": {"<subelement id>": <subelement value>}}. Either every
// value is applied or, on the first invalid one, none is.
func (e *Button) Receive(raw json.RawMessage) error {
	var body struct {
		Values map[string]json.RawMessage `json:"values"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return apperr.New(apperr.ErrInvalidRequest, "values", "%v", err)
		}
	}

	for id := range body.Values {
		if !e.hasSubelement(id) {
			return apperr.InvalidSelection("values", id)
		}
	}

	applies := make([]func(), 0, len(body.Values))
	for _, sub := range e.subelements {
		value, ok := body.Values[sub.ID()]
		if !ok {
			continue
		}
		s, ok := sub.(stager)
		if !ok {
			return apperr.New(apperr.ErrInvalidSelection, sub.ID(), "element does not accept values")
		}
		apply, err := s.stage(value)
		if err != nil {
			return err
		}
		applies = append(applies, apply)
	}
	for _, apply := range applies {
		apply()
	}
	return nil
}

func (e *Button) hasSubelement(id string) bool {
	for _, sub := range e.subelements {
		if sub.ID() == id {
			return true
		}
	}
	return false
}

func (e *Button) Serialize() Payload { return e.read(e.render) }

func (e *Button) Flush(force bool) (Payload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !force && !e.dirty && !e.subelementsChanged() {
		return nil, false
	}
	subs := make([]Payload, 0, len(e.subelements))
	for _, sub := range e.subelements {
		p, _ := sub.Flush(true)
		subs = append(subs, p)
	}
	p := e.describe(func() Payload { return e.renderWith(subs) })
	e.dirty = false
	return p, true
}

func (e *Button) subelementsChanged() bool {
	for _, sub := range e.subelements {
		if sub.Changed() {
			return true
		}
	}
	return false
}

func (e *Button) render() Payload {
	subs := make([]Payload, 0, len(e.subelements))
	for _, sub := range e.subelements {
		subs = append(subs, sub.Serialize())
	}
	return e.renderWith(subs)
}

func (e *Button) renderWith(subs []Payload) Payload {
	return Payload{
		"text":        e.text,
		"address":     e.address,
		"subelements": subs,
	}
}
