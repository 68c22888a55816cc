package element

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/formatter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewElementsStartChanged(t *testing.T) {
	elements := []Element{
		NewPlainText("t", "hello"),
		NewHeading("h", "Title"),
		NewBarChart("c", "/select", false),
		NewCheckbox("cb", "bleu", true),
		NewSelector("s", "Sample", "/sample"),
		NewSoftmax("sm", "/select", false),
		NewButton("b", "Go", "/go"),
	}
	for _, e := range elements {
		t.Run(string(e.Kind()), func(t *testing.T) {
			assert.True(t, e.Changed())

			p, ok := e.Flush(false)
			require.True(t, ok)
			assert.Equal(t, e.ID(), p["id"])
			assert.Equal(t, e.Kind(), p["kind"])
			assert.False(t, e.Changed())

			_, ok = e.Flush(false)
			assert.False(t, ok, "clean element must not flush")

			p, ok = e.Flush(true)
			assert.True(t, ok)
			assert.NotNil(t, p)
		})
	}
}

func TestEmptyIDIsGenerated(t *testing.T) {
	a := NewPlainText("", "")
	b := NewPlainText("", "")
	assert.True(t, strings.HasPrefix(a.ID(), "plain_text-"))
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSerializeDoesNotClear(t *testing.T) {
	e := NewPlainText("t", "hello")
	p := e.Serialize()
	assert.Equal(t, "hello", p["content"])
	assert.Equal(t, false, p["heading"])
	assert.True(t, e.Changed())
}

func TestSettersMarkChanged(t *testing.T) {
	tests := []struct {
		name   string
		elem   Element
		mutate func(Element)
	}{
		{"plain text", NewPlainText("t", ""), func(e Element) { e.(*PlainText).SetContent("x") }},
		{"checkbox", NewCheckbox("cb", "bleu", false), func(e Element) { e.(*Checkbox).SetSelected(true) }},
		{"softmax", NewSoftmax("sm", "/select", false), func(e Element) {
			e.(*Softmax).SetPossibilities([]formatter.Continuation{{Token: "a", Prob: 50}})
		}},
		{"bar chart", NewBarChart("c", "", false), func(e Element) {
			_ = e.(*BarChart).SetPieces([]PieceInfo{{PieceTitle: "p", BarHeights: []float64{1}, BarAnnotations: []string{"1"}, BarNames: []string{"n"}}})
		}},
		{"selector", NewSelector("s", "Sample", ""), func(e Element) {
			_ = e.(*Selector).SetOptions([]string{"a", "b"}, "a")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.elem.Flush(true)
			require.False(t, tt.elem.Changed())
			tt.mutate(tt.elem)
			assert.True(t, tt.elem.Changed())
		})
	}
}

func TestSettingSameValueLeavesFlagClear(t *testing.T) {
	text := NewPlainText("t", "x")
	cb := NewCheckbox("cb", "bleu", true)
	sel := NewSelector("s", "Sample", "")
	require.NoError(t, sel.SetOptions([]string{"a", "b"}, "a"))
	sm := NewSoftmax("sm", "/select", false)
	sm.SetPossibilities([]formatter.Continuation{{Token: "a", Prob: 50}})
	for _, e := range []Element{text, cb, sel, sm} {
		e.Flush(true)
	}

	text.SetContent("x")
	cb.SetSelected(true)
	require.NoError(t, sel.SetOptions([]string{"a", "b"}, "a"))
	sm.SetPossibilities([]formatter.Continuation{{Token: "a", Prob: 50}})

	for _, e := range []Element{text, cb, sel, sm} {
		assert.False(t, e.Changed(), e.ID())
	}
}

func TestConcurrentSetterIsNeverLost(t *testing.T) {
	e := NewPlainText("t", "")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.SetContent("x")
		}()
		go func() {
			defer wg.Done()
			e.Flush(false)
		}()
	}
	wg.Wait()

	// Whatever the interleaving, the final content is visible to the next flush or
	// was already part of a flushed payload.
	e.SetContent("final")
	p, ok := e.Flush(false)
	require.True(t, ok)
	assert.Equal(t, "final", p["content"])
}

func TestBarChartSetPieces(t *testing.T) {
	c := NewBarChart("c", "/select", true)
	c.Flush(true)

	err := c.SetPieces([]PieceInfo{{
		PieceTitle:     "bad",
		BarHeights:     []float64{1, 2},
		BarAnnotations: []string{"1"},
		BarNames:       []string{"a", "b"},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidPayload))
	assert.False(t, c.Changed(), "rejected pieces must not touch the chart")

	pieces := []PieceInfo{{
		PieceTitle:     "ok",
		BarHeights:     []float64{10, 20},
		BarAnnotations: []string{"10", "20"},
		BarNames:       []string{"a", "b"},
	}}
	require.NoError(t, c.SetPieces(pieces))
	pieces[0].BarHeights[0] = 99
	assert.Equal(t, 10.0, c.Pieces()[0].BarHeights[0], "chart keeps its own copy")

	p := c.Serialize()
	assert.Equal(t, true, p["longContexts"])
	assert.Equal(t, "/select", p["address"])
	assert.Nil(t, p["selectedIndex"])
}

func TestBarChartReceive(t *testing.T) {
	c := NewBarChart("c", "/select", false)
	require.NoError(t, c.SetPieces([]PieceInfo{
		{PieceTitle: "a", BarHeights: []float64{1}, BarAnnotations: []string{"1"}, BarNames: []string{"a"}},
		{PieceTitle: "b", BarHeights: []float64{2}, BarAnnotations: []string{"2"}, BarNames: []string{"b"}},
	}))

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"in range", `{"selected": 1}`, nil},
		{"negative", `{"selected": -1}`, apperr.ErrInvalidSelection},
		{"past the end", `{"selected": 2}`, apperr.ErrInvalidSelection},
		{"missing", `{}`, apperr.ErrInvalidRequest},
		{"malformed", `{"selected": "one"}`, apperr.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Receive(json.RawMessage(tt.body))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	piece, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", piece.PieceTitle)

	require.NoError(t, c.SetPieces(nil))
	_, ok = c.Selected()
	assert.False(t, ok, "new pieces clear the selection")
}

func TestCheckboxReceive(t *testing.T) {
	cb := NewCheckbox("cb", "bleu", false)
	require.NoError(t, cb.Receive(json.RawMessage(`{"selected": true}`)))
	assert.True(t, cb.Selected())

	err := cb.Receive(json.RawMessage(`{"selected": "yes"}`))
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
	assert.Equal(t, "cb", apperr.FieldOf(err))
	assert.True(t, cb.Selected())
}

func TestSelector(t *testing.T) {
	s := NewSelector("s", "Sample", "/sample")

	err := s.SetOptions([]string{"a", "b"}, "c")
	assert.True(t, errors.Is(err, apperr.ErrInvalidSelection))

	require.NoError(t, s.SetOptions([]string{"a", "b"}, "a"))
	require.NoError(t, s.Receive(json.RawMessage(`{"selected": "b"}`)))
	assert.Equal(t, "b", s.Selected())

	err = s.Receive(json.RawMessage(`{"selected": "z"}`))
	assert.True(t, errors.Is(err, apperr.ErrInvalidSelection))
	assert.Equal(t, "b", s.Selected())

	p := s.Serialize()
	assert.Equal(t, []string{"a", "b"}, p["options"])
	assert.Equal(t, "/sample", p["address"])
}

func TestSoftmaxOffers(t *testing.T) {
	s := NewSoftmax("sm", "/select", true)
	s.SetPossibilities([]formatter.Continuation{{Token: "cat", Prob: 60}, {Token: "dog", Prob: 40}})
	assert.True(t, s.Offers("cat"))
	assert.False(t, s.Offers("bird"))
	assert.Len(t, s.Possibilities(), 2)
	assert.Equal(t, true, s.Serialize()["longTokens"])
}

func TestButtonReceive(t *testing.T) {
	newButton := func() (*Button, *Checkbox, *Checkbox) {
		a := NewCheckbox("m.a", "a", true)
		b := NewCheckbox("m.b", "b", true)
		btn := NewButton("m.button", "Apply", "/metrics", a, b)
		btn.Flush(true)
		return btn, a, b
	}

	t.Run("applies every value", func(t *testing.T) {
		btn, a, b := newButton()
		err := btn.Receive(json.RawMessage(`{"values": {"m.a": {"selected": false}, "m.b": {"selected": false}}}`))
		require.NoError(t, err)
		assert.False(t, a.Selected())
		assert.False(t, b.Selected())
		assert.True(t, btn.Changed())
	})

	t.Run("invalid value applies nothing", func(t *testing.T) {
		btn, a, b := newButton()
		err := btn.Receive(json.RawMessage(`{"values": {"m.a": {"selected": false}, "m.b": {"selected": 3}}}`))
		require.Error(t, err)
		assert.True(t, a.Selected())
		assert.True(t, b.Selected())
		assert.False(t, btn.Changed())
	})

	t.Run("unknown subelement", func(t *testing.T) {
		btn, a, _ := newButton()
		err := btn.Receive(json.RawMessage(`{"values": {"m.a": {"selected": false}, "m.zzz": {"selected": true}}}`))
		assert.True(t, errors.Is(err, apperr.ErrInvalidSelection))
		assert.True(t, a.Selected())
	})

	t.Run("malformed body", func(t *testing.T) {
		btn, _, _ := newButton()
		err := btn.Receive(json.RawMessage(`[1, 2]`))
		assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
	})
}

func TestButtonReportsSubelementChanges(t *testing.T) {
	a := NewCheckbox("m.a", "a", true)
	btn := NewButton("m.button", "Apply", "/metrics", a)
	btn.Flush(true)
	require.False(t, btn.Changed())
	require.False(t, a.Changed())

	a.SetSelected(false)
	assert.True(t, btn.Changed())

	p, ok := btn.Flush(false)
	require.True(t, ok)
	subs := p["subelements"].([]Payload)
	require.Len(t, subs, 1)
	assert.Equal(t, false, subs[0]["selected"])
	assert.False(t, a.Changed(), "flushing the button flushes its subelements")
	assert.False(t, btn.Changed())
}
