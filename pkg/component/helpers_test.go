package component

import (
	"context"
	"errors"
	"strings"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/vocab"
)

// fakeModel is a word-level model over a fixed table of distributions. Contexts
// without an entry get a uniform distribution.
type fakeModel struct {
	tokens []string
	table  map[string][]float64
	v      *vocab.Vocabulary

	predictErr error
	calls      int
}

func newFakeModel(tokens []string, table map[string][]float64) *fakeModel {
	return &fakeModel{tokens: tokens, table: table}
}

func (m *fakeModel) InitializeVocab(context.Context) (*vocab.Vocabulary, error) {
	if m.v != nil {
		return m.v, nil
	}
	v, err := vocab.New(m.tokens)
	if err != nil {
		return nil, err
	}
	m.v = v
	return v, nil
}

func (m *fakeModel) AppendToContext(ctx, token string) (string, error) {
	if token == "" || strings.ContainsAny(token, " \t\n") {
		return "", apperr.InvalidSelection("token", token)
	}
	if ctx == "" {
		return token, nil
	}
	return ctx + " " + token, nil
}

func (m *fakeModel) GetNextTokenPredictions(_ context.Context, text string) ([]float64, error) {
	m.calls++
	if m.predictErr != nil {
		return nil, m.predictErr
	}
	if m.v == nil {
		return nil, apperr.New(apperr.ErrUninitializedVocabulary, "vocab", "not loaded")
	}
	if probs, ok := m.table[text]; ok {
		return append([]float64(nil), probs...), nil
	}
	probs := make([]float64, len(m.tokens))
	for i := range probs {
		probs[i] = 1 / float64(len(probs))
	}
	return probs, nil
}

func (m *fakeModel) Tokenize(text string) []string { return strings.Fields(text) }

// shoutingModel formats the context in upper case.
type shoutingModel struct{ *fakeModel }

func (shoutingModel) FormatContext(context string) string { return strings.ToUpper(context) }

var errBoom = errors.New("boom")
