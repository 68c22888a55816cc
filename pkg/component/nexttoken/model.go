// Package nexttoken holds the concrete next-token models behind the next token
// prediction component: a word-level and a character-level variant.
package nexttoken

import (
	"context"
	"fmt"
	"sync"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/component"
	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

type Kind string

const (
	KindWord Kind = "word"
	KindChar Kind = "char"
)

// New picks the model variant by kind.
func New(kind Kind, source vocab.Source, factory llm.Factory) (component.NextTokenModel, error) {
	switch kind {
	case KindWord:
		return NewWordModel(source, factory), nil
	case KindChar:
		return NewCharModel(source, factory), nil
	default:
		return nil, fmt.Errorf("unsupported next token model: %s", kind)
	}
}

// model is shared by both variants. The vocabulary and the predictor are set once by
// InitializeVocab and only read afterwards.
type model struct {
	source  vocab.Source
	tok     vocab.Tokenizer
	factory llm.Factory

	mu        sync.RWMutex
	vocab     *vocab.Vocabulary
	predictor llm.Predictor
}

func newModel(source vocab.Source, tok vocab.Tokenizer, factory llm.Factory) model {
	return model{source: source, tok: tok, factory: factory}
}

// InitializeVocab loads the vocabulary and builds the predictor for it. Later calls
// return the vocabulary loaded by the first successful one.
func (m *model) InitializeVocab(ctx context.Context) (*vocab.Vocabulary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vocab != nil {
		return m.vocab, nil
	}

	tokens, err := m.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	v, err := vocab.New(tokens)
	if err != nil {
		return nil, err
	}
	p, err := m.factory(v, m.tok)
	if err != nil {
		return nil, fmt.Errorf("build predictor: %w", err)
	}
	m.vocab, m.predictor = v, p
	return v, nil
}

func (m *model) Vocabulary() (*vocab.Vocabulary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.vocab == nil {
		return nil, apperr.New(apperr.ErrUninitializedVocabulary, "vocab", "InitializeVocab has not run")
	}
	return m.vocab, nil
}

// GetNextTokenPredictions asks the predictor for the distribution after text and
// checks that it lines up with the vocabulary.
func (m *model) GetNextTokenPredictions(ctx context.Context, text string) ([]float64, error) {
	m.mu.RLock()
	v, p := m.vocab, m.predictor
	m.mu.RUnlock()
	if v == nil {
		return nil, apperr.New(apperr.ErrUninitializedVocabulary, "vocab", "InitializeVocab has not run")
	}

	probs, err := p.Predict(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("predict next token: %w", err)
	}
	if len(probs) != v.Len() {
		return nil, apperr.DimensionMismatch(len(probs), v.Len())
	}
	return probs, nil
}

func (m *model) Tokenize(text string) []string { return m.tok.Tokenize(text) }
