package vocab

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Vocabulary is an ordered token list; a token's position is its id and matches the
// index of its probability in every vector a predictor returns.
type Vocabulary struct {
	tokens []string
	index  map[string]int
}

// New indexes tokens. A repeated token is rejected since its second index could
// never be selected.
func New(tokens []string) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	v := &Vocabulary{
		tokens: append([]string(nil), tokens...),
		index:  make(map[string]int, len(tokens)),
	}
	for i, t := range v.tokens {
		if first, dup := v.index[t]; dup {
			return nil, fmt.Errorf("vocabulary repeats token %q at %d and %d", t, first, i)
		}
		v.index[t] = i
	}
	return v, nil
}

// Tokens returns the backing slice. Callers must not modify it.
func (v *Vocabulary) Tokens() []string { return v.tokens }

func (v *Vocabulary) Len() int { return len(v.tokens) }

func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// ID returns the first id of token.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.index[token]
	return id, ok
}

// IDs maps tokens to ids, using -1 for tokens outside the vocabulary.
func (v *Vocabulary) IDs(tokens []string) []int {
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		if id, ok := v.index[t]; ok {
			ids[i] = id
		} else {
			ids[i] = -1
		}
	}
	return ids
}

// Tokenizer splits text into vocabulary-level tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// WordTokenizer splits on whitespace.
type WordTokenizer struct{}

func (WordTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

// CharTokenizer splits into single runes.
type CharTokenizer struct{}

func (CharTokenizer) Tokenize(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}
