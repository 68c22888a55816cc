package element

import (
	"slices"

	"visuallm-be/pkg/formatter"
)

// Softmax displays the most probable continuations; the frontend posts the chosen
// token to address.
type Softmax struct {
	base
	possibilities []formatter.Continuation
	address       string
	longTokens    bool
}

func NewSoftmax(id, address string, longTokens bool) *Softmax {
	return &Softmax{base: newBase(id, KindSoftmax), address: address, longTokens: longTokens}
}

func (e *Softmax) SetPossibilities(possibilities []formatter.Continuation) {
	copied := append([]formatter.Continuation(nil), possibilities...)
	e.update(func() bool {
		if slices.Equal(e.possibilities, copied) {
			return false
		}
		e.possibilities = copied
		return true
	})
}

func (e *Softmax) Possibilities() []formatter.Continuation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]formatter.Continuation(nil), e.possibilities...)
}

// Offers reports whether token is one of the displayed continuations.
func (e *Softmax) Offers(token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.possibilities {
		if c.Token == token {
			return true
		}
	}
	return false
}

func (e *Softmax) Serialize() Payload { return e.read(e.render) }

func (e *Softmax) Flush(force bool) (Payload, bool) { return e.flush(force, e.render) }

func (e *Softmax) render() Payload {
	return Payload{
		"possibilities": append([]formatter.Continuation(nil), e.possibilities...),
		"address":       e.address,
		"longTokens":    e.longTokens,
	}
}
