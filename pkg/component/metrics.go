package component

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/element"
)

// MetricDescription says how a metric value is displayed.
type MetricDescription struct {
	// DisplayFormat is a fmt verb applied to the raw value, e.g. "%.4f".
	DisplayFormat string
	// Scalable bars are value*100 clamped to [0, 100]. Other bars are always 100 so
	// the annotation stays readable; their height carries no meaning.
	Scalable bool
}

// GeneratedTextMetric compares the generated text with the target text.
type GeneratedTextMetric struct {
	MetricDescription
	Calculate func(generated, target string) (float64, error)
}

// ProbsMetric scores per-step distributions against token ids.
type ProbsMetric struct {
	MetricDescription
	Calculate func(probs [][]float64, targetIDs []int) (float64, error)
}

// FailurePolicy decides what a failing metric does to the rest of the batch.
type FailurePolicy string

const (
	// FailSoft renders the failed bar as "error" and keeps computing.
	FailSoft FailurePolicy = "soft"
	// FailFast stops at the first failure and leaves the chart untouched.
	FailFast FailurePolicy = "fast"
)

// MetricInput is one scored sequence: its text, the distribution at each step and
// the ids of the tokens taken at each step.
type MetricInput struct {
	Text  string
	Probs [][]float64
	IDs   []int
}

// CreateOrdering lists generated-text metrics first, then probability metrics.
// Inside each family the names in declared come first in that order, and the rest
// follow sorted, so the order never depends on map iteration. Declared names that
// are not metrics are ignored.
func CreateOrdering[G, P any](generated map[string]G, probs map[string]P, declared ...string) []string {
	return append(familyOrder(generated, declared), familyOrder(probs, declared)...)
}

func familyOrder[M any](family map[string]M, declared []string) []string {
	names := make([]string, 0, len(family))
	seen := make(map[string]bool, len(family))
	for _, name := range declared {
		if _, ok := family[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(family)-len(names))
	for name := range family {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// MetricsEvaluator owns the metric checkboxes and the two charts showing metric
// values on generated candidates and on the gold target.
type MetricsEvaluator struct {
	ordering  []string
	generated map[string]GeneratedTextMetric
	probs     map[string]ProbsMetric
	policy    FailurePolicy

	checkboxes      map[string]*element.Checkbox
	selectHeading   *element.PlainText
	button          *element.Button
	targetHeading   *element.PlainText
	targetChart     *element.BarChart
	predictHeading  *element.PlainText
	predictionChart *element.BarChart
}

// NewMetricsEvaluator builds the metric elements with ids prefixed by prefix.
// buttonAddress is the endpoint the checkbox button posts to. order optionally
// fixes the display order of metrics, see CreateOrdering.
func NewMetricsEvaluator(
	prefix, buttonAddress string,
	generated map[string]GeneratedTextMetric,
	probs map[string]ProbsMetric,
	policy FailurePolicy,
	order ...string,
) (*MetricsEvaluator, error) {
	for name := range generated {
		if _, dup := probs[name]; dup {
			return nil, fmt.Errorf("metric %q defined in both families", name)
		}
	}
	if policy == "" {
		policy = FailSoft
	}
	if policy != FailSoft && policy != FailFast {
		return nil, fmt.Errorf("unknown metrics failure policy %q", policy)
	}

	m := &MetricsEvaluator{
		ordering:   CreateOrdering(generated, probs, order...),
		generated:  generated,
		probs:      probs,
		policy:     policy,
		checkboxes: make(map[string]*element.Checkbox),
	}

	subs := make([]element.Element, 0, len(m.ordering))
	for _, name := range m.ordering {
		cb := element.NewCheckbox(prefix+".metric."+name, name, true)
		m.checkboxes[name] = cb
		subs = append(subs, cb)
	}
	m.selectHeading = element.NewHeading(prefix+".metrics_select_heading", "Which Metrics to Display")
	m.button = element.NewButton(prefix+".metrics_button", "Select Metrics to Display", buttonAddress, subs...)
	m.targetHeading = element.NewHeading(prefix+".metrics_target_heading", "Metrics on Target")
	m.targetChart = element.NewBarChart(prefix+".metrics_target", "", true)
	m.predictHeading = element.NewHeading(prefix+".metrics_predicted_heading", "Metrics on Generated Outputs")
	m.predictionChart = element.NewBarChart(prefix+".metrics_predicted", "", true)
	return m, nil
}

func (m *MetricsEvaluator) Ordering() []string { return append([]string(nil), m.ordering...) }

func (m *MetricsEvaluator) Policy() FailurePolicy { return m.policy }

// SelectionElements are the heading and the checkbox button.
func (m *MetricsEvaluator) SelectionElements() []element.Element {
	return []element.Element{m.selectHeading, m.button}
}

// DisplayElements are the headings and charts for target and generated outputs.
func (m *MetricsEvaluator) DisplayElements() []element.Element {
	return []element.Element{m.targetHeading, m.targetChart, m.predictHeading, m.predictionChart}
}

func (m *MetricsEvaluator) TargetChart() *element.BarChart { return m.targetChart }

func (m *MetricsEvaluator) PredictionChart() *element.BarChart { return m.predictionChart }

// Checkbox returns the checkbox of a metric.
func (m *MetricsEvaluator) Checkbox(name string) (*element.Checkbox, bool) {
	cb, ok := m.checkboxes[name]
	return cb, ok
}

// ReceiveSelection applies a checkbox submission posted through the button.
func (m *MetricsEvaluator) ReceiveSelection(raw json.RawMessage) error {
	return m.button.Receive(raw)
}

// ComputeAndDisplayOnPredicted scores every candidate against target.
func (m *MetricsEvaluator) ComputeAndDisplayOnPredicted(target string, candidates []MetricInput) error {
	return m.display(m.predictionChart, target, candidates)
}

// ComputeAndDisplayOnTarget scores the gold target against itself.
func (m *MetricsEvaluator) ComputeAndDisplayOnTarget(target MetricInput) error {
	return m.display(m.targetChart, target.Text, []MetricInput{target})
}

// ComputeAndDisplay scores the target and every candidate before drawing either
// chart. Under FailFast a failure on any of them leaves both charts untouched.
func (m *MetricsEvaluator) ComputeAndDisplay(target MetricInput, candidates []MetricInput) error {
	targetPieces, errTarget := m.ComputePieces(target.Text, []MetricInput{target})
	if errTarget != nil && m.policy == FailFast {
		return errTarget
	}
	predicted, errPredicted := m.ComputePieces(target.Text, candidates)
	if errPredicted != nil && m.policy == FailFast {
		return errPredicted
	}
	if err := m.targetChart.SetPieces(targetPieces); err != nil {
		return err
	}
	if err := m.predictionChart.SetPieces(predicted); err != nil {
		return err
	}
	return errors.Join(errTarget, errPredicted)
}

func (m *MetricsEvaluator) display(chart *element.BarChart, target string, candidates []MetricInput) error {
	pieces, err := m.ComputePieces(target, candidates)
	if err != nil && m.policy == FailFast {
		return err
	}
	if setErr := chart.SetPieces(pieces); setErr != nil {
		return setErr
	}
	return err
}

// ComputePieces builds one piece per candidate with a bar per selected metric.
// Unselected metrics are left out of the piece entirely. Under FailSoft every
// failure is returned joined after all candidates were scored.
func (m *MetricsEvaluator) ComputePieces(target string, candidates []MetricInput) ([]element.PieceInfo, error) {
	pieces := make([]element.PieceInfo, 0, len(candidates))
	var errs []error

	for ci, cand := range candidates {
		piece := element.PieceInfo{
			PieceTitle:     cand.Text,
			BarHeights:     []float64{},
			BarAnnotations: []string{},
			BarNames:       []string{},
		}
		for _, name := range m.ordering {
			if !m.checkboxes[name].Selected() {
				continue
			}
			value, desc, err := m.evaluate(name, cand, target)
			if err != nil {
				merr := &apperr.MetricComputationError{Metric: name, Candidate: ci, Err: err}
				if m.policy == FailFast {
					return nil, merr
				}
				errs = append(errs, merr)
				piece.BarNames = append(piece.BarNames, name)
				piece.BarHeights = append(piece.BarHeights, 0)
				piece.BarAnnotations = append(piece.BarAnnotations, "error")
				continue
			}
			piece.BarNames = append(piece.BarNames, name)
			piece.BarHeights = append(piece.BarHeights, barHeight(value, desc.Scalable))
			piece.BarAnnotations = append(piece.BarAnnotations, fmt.Sprintf(desc.DisplayFormat, value))
		}
		pieces = append(pieces, piece)
	}
	return pieces, errors.Join(errs...)
}

func (m *MetricsEvaluator) evaluate(name string, cand MetricInput, target string) (value float64, desc MetricDescription, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	if metric, ok := m.generated[name]; ok {
		value, err = metric.Calculate(cand.Text, target)
		return value, metric.MetricDescription, err
	}
	metric := m.probs[name]
	value, err = metric.Calculate(cand.Probs, cand.IDs)
	return value, metric.MetricDescription, err
}

func barHeight(value float64, scalable bool) float64 {
	if !scalable {
		return 100
	}
	h := value * 100
	switch {
	case math.IsNaN(h), h < 0:
		return 0
	case h > 100:
		return 100
	}
	return h
}
