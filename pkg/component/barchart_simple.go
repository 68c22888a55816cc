package component

import (
	"context"
	"fmt"

	"visuallm-be/pkg/element"
	"visuallm-be/pkg/formatter"
	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

const (
	BarChartName         = "barchart_component"
	BarChartDefaultTitle = "BarChart Component"
	barChartTopWords     = 10
)

// BarChartSimple shows ten words with a random distribution. Selecting a bar
// reports the word and draws a new distribution.
type BarChartSimple struct {
	Base
	vocab     *vocab.Vocabulary
	predictor llm.Predictor
	formatter *formatter.Softmax

	chart *element.BarChart
	text  *element.PlainText
}

func NewBarChartSimple(ctx context.Context, title string, v *vocab.Vocabulary, p llm.Predictor, longContexts bool) (*BarChartSimple, error) {
	if title == "" {
		title = BarChartDefaultTitle
	}
	c := &BarChartSimple{
		vocab:     v,
		predictor: p,
		formatter: formatter.NewSoftmax(barChartTopWords),
		chart:     element.NewBarChart(BarChartName+".chart", "/"+BarChartName+"/select", longContexts),
		text:      element.NewPlainText(BarChartName+".text", ""),
	}
	c.Base = NewBase(BarChartName, title, c.chart, c.text)
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *BarChartSimple) Chart() *element.BarChart { return c.chart }

func (c *BarChartSimple) Text() *element.PlainText { return c.text }

// SelectBar handles {"selected": <piece index>}.
func (c *BarChartSimple) SelectBar(ctx context.Context, raw []byte) error {
	if err := c.chart.Receive(raw); err != nil {
		return err
	}
	piece, _ := c.chart.Selected()
	c.text.SetContent("Last selected: " + piece.PieceTitle)
	return c.refresh(ctx)
}

func (c *BarChartSimple) Endpoints() []Endpoint {
	return []Endpoint{{
		Path:   "/" + BarChartName + "/select",
		Method: MethodPost,
		Callback: func(req Request) (Fields, error) {
			return nil, c.SelectBar(req.Context(), req.Body)
		},
	}}
}

// refresh draws a new distribution with one single-bar piece per word.
func (c *BarChartSimple) refresh(ctx context.Context) error {
	probs, err := c.predictor.Predict(ctx, "")
	if err != nil {
		return fmt.Errorf("sample words: %w", err)
	}
	top, err := c.formatter.AssignWordsToProbs(probs, c.vocab.Tokens())
	if err != nil {
		return err
	}
	pieces := make([]element.PieceInfo, 0, len(top))
	for _, cont := range top {
		pieces = append(pieces, element.PieceInfo{
			PieceTitle:     cont.Token,
			BarHeights:     []float64{cont.Prob},
			BarAnnotations: []string{fmt.Sprintf("%.2f%%", cont.Prob)},
			BarNames:       []string{cont.Token},
		})
	}
	return c.chart.SetPieces(pieces)
}
