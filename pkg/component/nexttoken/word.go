package nexttoken

import (
	"strings"
	"unicode"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

// WordModel predicts whole words and joins them with a single space.
type WordModel struct {
	model
}

func NewWordModel(source vocab.Source, factory llm.Factory) *WordModel {
	return &WordModel{model: newModel(source, vocab.WordTokenizer{}, factory)}
}

func (m *WordModel) AppendToContext(context, token string) (string, error) {
	if token == "" || strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return "", apperr.InvalidSelection("token", token)
	}
	if strings.TrimSpace(context) == "" {
		return token, nil
	}
	return strings.TrimRightFunc(context, unicode.IsSpace) + " " + token, nil
}
