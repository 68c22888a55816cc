// Package element holds the smallest stateful units rendered by the frontend.
//
// Every payload mutation goes through a setter that marks the element changed when the
// new value differs from the old one.
// The dirty flag is only cleared by Flush, which serializes and clears under the
// element's own lock so a concurrent setter can never be lost between the two.
package element

import (
	"encoding/json"
	"fmt"
	"sync"

	"visuallm-be/pkg/apperr"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPlainText Kind = "plain_text"
	KindBarChart  Kind = "barchart"
	KindButton    Kind = "button"
	KindCheckbox  Kind = "checkbox"
	KindSelector  Kind = "selector"
	KindSoftmax   Kind = "softmax"
)

// Payload is the JSON-compatible description sent to the frontend.
type Payload map[string]any

type Element interface {
	ID() string
	Kind() Kind
	Changed() bool
	MarkChanged()
	// Serialize describes the element without touching the dirty flag.
	Serialize() Payload
	// Flush serializes and clears the dirty flag in one step. It reports false and
	// leaves the element alone when it is clean and force is not set.
	Flush(force bool) (Payload, bool)
}

// Receiver is implemented by elements that accept values posted by the frontend.
type Receiver interface {
	Element
	Receive(raw json.RawMessage) error
}

// stager validates a posted value and returns the mutation to apply, so a button can
// reject a batch of values without applying any of them.
type stager interface {
	stage(raw json.RawMessage) (func(), error)
}

type base struct {
	mu    sync.Mutex
	id    string
	kind  Kind
	dirty bool
}

func newBase(id string, kind Kind) base {
	if id == "" {
		id = fmt.Sprintf("%s-%s", kind, uuid.NewString()[:8])
	}
	// New elements have never been sent, so they start dirty.
	return base{id: id, kind: kind, dirty: true}
}

func (b *base) ID() string { return b.id }

func (b *base) Kind() Kind { return b.kind }

func (b *base) Changed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

func (b *base) MarkChanged() {
	b.mu.Lock()
	b.dirty = true
	b.mu.Unlock()
}

// update runs fn under the lock. The element is marked changed only when fn reports
// that the payload differs from what it was.
func (b *base) update(fn func() bool) {
	b.mu.Lock()
	if fn() {
		b.dirty = true
	}
	b.mu.Unlock()
}

func (b *base) read(render func() Payload) Payload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.describe(render)
}

func (b *base) flush(force bool, render func() Payload) (Payload, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty && !force {
		return nil, false
	}
	p := b.describe(render)
	b.dirty = false
	return p, true
}

func (b *base) describe(render func() Payload) Payload {
	p := render()
	p["id"] = b.id
	p["kind"] = b.kind
	return p
}

func receive(s stager, raw json.RawMessage) error {
	apply, err := s.stage(raw)
	if err != nil {
		return err
	}
	apply()
	return nil
}

func decodeValue(raw json.RawMessage, field string, dst any) error {
	if len(raw) == 0 {
		return apperr.New(apperr.ErrInvalidRequest, field, "missing value")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.New(apperr.ErrInvalidRequest, field, "%v", err)
	}
	return nil
}
