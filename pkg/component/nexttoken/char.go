package nexttoken

import (
	"strings"
	"unicode/utf8"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

// CharModel predicts single characters and concatenates them as they are.
type CharModel struct {
	model
}

func NewCharModel(source vocab.Source, factory llm.Factory) *CharModel {
	return &CharModel{model: newModel(source, vocab.CharTokenizer{}, factory)}
}

func (m *CharModel) AppendToContext(context, token string) (string, error) {
	if utf8.RuneCountInString(token) != 1 {
		return "", apperr.InvalidSelection("token", token)
	}
	return context + token, nil
}

var controlReplacer = strings.NewReplacer("\n", "⏎\n", "\t", "⇥")

// FormatContext makes newlines and tabs visible, since at character level they are
// tokens the user picked.
func (m *CharModel) FormatContext(context string) string {
	return controlReplacer.Replace(context)
}
