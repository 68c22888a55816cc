// Package component bundles elements into interactive views and dispatches the
// frontend's requests to them.
package component

import (
	"context"
	"encoding/json"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/element"
)

// Component is one interactive view: a stable routing name, a title shown to the
// user, its elements in display order, and the endpoints it serves.
type Component interface {
	Name() string
	Title() string
	Elements() []element.Element
	Endpoints() []Endpoint
}

type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Fields are component-specific response fields, merged next to result and
// changedElements.
type Fields map[string]any

// Request is what a callback sees of the HTTP request.
type Request struct {
	Ctx  context.Context
	Body []byte
	// Validate checks decoded DTOs; nil skips validation.
	Validate func(any) error
}

// Decode unmarshals the body into dst and validates it.
func (r Request) Decode(dst any) error {
	if len(r.Body) == 0 {
		return apperr.New(apperr.ErrInvalidRequest, "body", "missing request body")
	}
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return apperr.New(apperr.ErrInvalidRequest, "body", "%v", err)
	}
	if r.Validate != nil {
		if err := r.Validate(dst); err != nil {
			return err
		}
	}
	return nil
}

func (r Request) Context() context.Context {
	if r.Ctx == nil {
		return context.Background()
	}
	return r.Ctx
}

// Callback mutates component state. Callbacks that take no argument ignore req.
type Callback func(req Request) (Fields, error)

type Endpoint struct {
	Path     string
	Method   Method
	Callback Callback
	// FetchAll returns the changed elements of every registered component instead
	// of only the owner's.
	FetchAll bool
}

// Base carries the name, title and elements shared by every component.
type Base struct {
	name     string
	title    string
	elements []element.Element
}

func NewBase(name, title string, elements ...element.Element) Base {
	return Base{name: name, title: title, elements: elements}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Title() string { return b.title }

func (b *Base) Elements() []element.Element {
	return append([]element.Element(nil), b.elements...)
}

func (b *Base) AddElements(elements ...element.Element) {
	b.elements = append(b.elements, elements...)
}

// collect flushes elements into out. Without force only changed elements are taken.
func collect(elements []element.Element, force bool, out map[string]element.Payload) {
	for _, e := range elements {
		if p, ok := e.Flush(force); ok {
			out[e.ID()] = p
		}
	}
}
