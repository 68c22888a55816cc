package element

import (
	"encoding/json"
	"slices"

	"visuallm-be/pkg/apperr"
)

// PieceInfo is one group of bars, e.g. all metrics of one candidate.
type PieceInfo struct {
	PieceTitle     string    `json:"pieceTitle"`
	BarHeights     []float64 `json:"barHeights"`
	BarAnnotations []string  `json:"barAnnotations"`
	BarNames       []string  `json:"barNames"`
}

func (p PieceInfo) equal(q PieceInfo) bool {
	return p.PieceTitle == q.PieceTitle &&
		slices.Equal(p.BarHeights, q.BarHeights) &&
		slices.Equal(p.BarAnnotations, q.BarAnnotations) &&
		slices.Equal(p.BarNames, q.BarNames)
}

func (p PieceInfo) clone() PieceInfo {
	return PieceInfo{
		PieceTitle:     p.PieceTitle,
		BarHeights:     slices.Clone(p.BarHeights),
		BarAnnotations: slices.Clone(p.BarAnnotations),
		BarNames:       slices.Clone(p.BarNames),
	}
}

// BarChart renders grouped bars. The frontend may post back a selected piece index.
type BarChart struct {
	base
	pieces       []PieceInfo
	selected     int
	longContexts bool
	address      string
}

// NewBarChart creates an empty chart. longContexts only changes rendering hints.
func NewBarChart(id, address string, longContexts bool) *BarChart {
	return &BarChart{
		base:         newBase(id, KindBarChart),
		selected:     -1,
		longContexts: longContexts,
		address:      address,
	}
}

// SetPieces replaces every piece and clears the selection. A piece whose parallel
// sequences differ in length is rejected and nothing is changed.
func (e *BarChart) SetPieces(pieces []PieceInfo) error {
	copied := make([]PieceInfo, len(pieces))
	for i, p := range pieces {
		if len(p.BarHeights) != len(p.BarAnnotations) || len(p.BarHeights) != len(p.BarNames) {
			return apperr.New(apperr.ErrInvalidPayload, "pieces",
				"piece %d has %d heights, %d annotations and %d names",
				i, len(p.BarHeights), len(p.BarAnnotations), len(p.BarNames))
		}
		copied[i] = p.clone()
	}
	e.update(func() bool {
		if e.selected == -1 && slices.EqualFunc(e.pieces, copied, PieceInfo.equal) {
			return false
		}
		e.pieces = copied
		e.selected = -1
		return true
	})
	return nil
}

func (e *BarChart) Pieces() []PieceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PieceInfo, len(e.pieces))
	for i, p := range e.pieces {
		out[i] = p.clone()
	}
	return out
}

// SetSelected marks the piece at index as selected.
func (e *BarChart) SetSelected(index int) error {
	return receiveIndex(e, index)
}

// Selected returns the selected piece, if any.
func (e *BarChart) Selected() (PieceInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected < 0 || e.selected >= len(e.pieces) {
		return PieceInfo{}, false
	}
	return e.pieces[e.selected].clone(), true
}

// Receive accepts {"selected": <piece index>}.
func (e *BarChart) Receive(raw json.RawMessage) error { return receive(e, raw) }

func (e *BarChart) stage(raw json.RawMessage) (func(), error) {
	var body struct {
		Selected *int `json:"selected"`
	}
	if err := decodeValue(raw, "selected", &body); err != nil {
		return nil, err
	}
	if body.Selected == nil {
		return nil, apperr.New(apperr.ErrInvalidRequest, "selected", "missing value")
	}
	return e.stageIndex(*body.Selected)
}

func (e *BarChart) stageIndex(index int) (func(), error) {
	e.mu.Lock()
	n := len(e.pieces)
	e.mu.Unlock()
	if index < 0 || index >= n {
		return nil, apperr.InvalidSelection("selected", index)
	}
	return func() {
		e.update(func() bool {
			if e.selected == index {
				return false
			}
			e.selected = index
			return true
		})
	}, nil
}

func receiveIndex(e *BarChart, index int) error {
	apply, err := e.stageIndex(index)
	if err != nil {
		return err
	}
	apply()
	return nil
}

func (e *BarChart) Serialize() Payload { return e.read(e.render) }

func (e *BarChart) Flush(force bool) (Payload, bool) { return e.flush(force, e.render) }

func (e *BarChart) render() Payload {
	pieces := make([]PieceInfo, len(e.pieces))
	for i, p := range e.pieces {
		pieces[i] = p.clone()
	}
	var selected any
	if e.selected >= 0 {
		selected = e.selected
	}
	return Payload{
		"pieces":        pieces,
		"selectedIndex": selected,
		"longContexts":  e.longContexts,
		"address":       e.address,
	}
}
