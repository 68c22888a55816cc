package component

import (
	"context"
	"fmt"

	"visuallm-be/internal/dto"
	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/element"
	"visuallm-be/pkg/formatter"
	"visuallm-be/pkg/vocab"
)

// NextTokenModel is what a concrete next-token variant supplies.
type NextTokenModel interface {
	// InitializeVocab loads the fixed vocabulary. It runs once at startup.
	InitializeVocab(ctx context.Context) (*vocab.Vocabulary, error)
	// AppendToContext joins a chosen token onto the context, or rejects the token
	// with an InvalidSelection error.
	AppendToContext(context, token string) (string, error)
	// GetNextTokenPredictions returns the distribution after text, aligned with the
	// vocabulary.
	GetNextTokenPredictions(ctx context.Context, text string) ([]float64, error)
	Tokenize(text string) []string
}

// ContextFormatter is optionally implemented by a NextTokenModel to change how the
// context is shown. Without it the context is shown verbatim.
type ContextFormatter interface {
	FormatContext(context string) string
}

const (
	NextTokenName  = "next_token_prediction"
	NextTokenTitle = "Next Token Prediction"
)

// NextTokenPrediction lets the user grow a context one token at a time by picking
// from the most probable continuations.
type NextTokenPrediction struct {
	Base
	model     NextTokenModel
	formatter *formatter.Softmax

	vocab      *vocab.Vocabulary
	context    string
	contextSet bool
	// shownFor is the context the softmax element currently shows continuations for.
	shownFor string
	shown    bool

	contextText *element.PlainText
	softmax     *element.Softmax
}

func NewNextTokenPrediction(model NextTokenModel, topN int, longTokens bool) *NextTokenPrediction {
	c := &NextTokenPrediction{
		model:       model,
		formatter:   formatter.NewSoftmax(topN),
		contextText: element.NewPlainText(NextTokenName+".context", ""),
		softmax:     element.NewSoftmax(NextTokenName+".continuations", "/select", longTokens),
	}
	c.Base = NewBase(NextTokenName, NextTokenTitle, c.contextText, c.softmax)
	return c
}

// InitializeVocab must run before the first Fetch or Select.
func (c *NextTokenPrediction) InitializeVocab(ctx context.Context) error {
	v, err := c.model.InitializeVocab(ctx)
	if err != nil {
		return err
	}
	c.vocab = v
	return nil
}

// InitializeContext replaces the context wholesale.
func (c *NextTokenPrediction) InitializeContext(context string) {
	c.context = context
	c.contextSet = true
	c.shown = false
	c.contextText.SetContent(c.formatContext(context))
}

func (c *NextTokenPrediction) Context() string { return c.context }

// Fetch returns the context and its continuations. Calling it again without a Select
// in between returns the same payload and leaves every element clean.
func (c *NextTokenPrediction) Fetch(ctx context.Context) (Fields, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	conts, err := c.offer(ctx)
	if err != nil {
		return nil, err
	}
	return c.fields(conts), nil
}

// Select appends token to the context and recomputes the continuations. A token that
// the softmax element does not offer for the current context, or that the model
// rejects, leaves the context unchanged.
func (c *NextTokenPrediction) Select(ctx context.Context, token string) (Fields, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if _, err := c.offer(ctx); err != nil {
		return nil, err
	}
	if !c.softmax.Offers(token) {
		return nil, apperr.InvalidSelection("token", token)
	}

	next, err := c.model.AppendToContext(c.context, token)
	if err != nil {
		return nil, err
	}
	probs, err := c.model.GetNextTokenPredictions(ctx, next)
	if err != nil {
		return nil, err
	}
	conts, err := c.formatter.AssignWordsToProbs(probs, c.vocab.Tokens())
	if err != nil {
		return nil, err
	}

	c.context = next
	c.contextText.SetContent(c.formatContext(next))
	c.show(next, conts)
	return c.fields(conts), nil
}

func (c *NextTokenPrediction) Endpoints() []Endpoint {
	return []Endpoint{
		{
			Path:   "/fetch",
			Method: MethodGet,
			Callback: func(req Request) (Fields, error) {
				return c.Fetch(req.Context())
			},
		},
		{
			Path:   "/select",
			Method: MethodPost,
			Callback: func(req Request) (Fields, error) {
				var body dto.SelectTokenRequest
				if err := req.Decode(&body); err != nil {
					return nil, err
				}
				return c.Select(req.Context(), body.Token)
			},
		},
	}
}

func (c *NextTokenPrediction) ready() error {
	if c.vocab == nil {
		return apperr.New(apperr.ErrUninitializedVocabulary, "vocab", "InitializeVocab has not run")
	}
	if !c.contextSet {
		return apperr.New(apperr.ErrUninitializedContext, "context", "InitializeContext has not run")
	}
	return nil
}

// continuations returns what the user is offered for the current context, reusing
// the displayed ones when they are up to date.
func (c *NextTokenPrediction) continuations(ctx context.Context) ([]formatter.Continuation, error) {
	if c.shown && c.shownFor == c.context {
		return c.softmax.Possibilities(), nil
	}
	probs, err := c.model.GetNextTokenPredictions(ctx, c.context)
	if err != nil {
		return nil, fmt.Errorf("predict after %q: %w", c.context, err)
	}
	return c.formatter.AssignWordsToProbs(probs, c.vocab.Tokens())
}

// offer makes the softmax element show the continuations of the current context.
func (c *NextTokenPrediction) offer(ctx context.Context) ([]formatter.Continuation, error) {
	conts, err := c.continuations(ctx)
	if err != nil {
		return nil, err
	}
	if !c.shown || c.shownFor != c.context {
		c.show(c.context, conts)
	}
	return conts, nil
}

func (c *NextTokenPrediction) show(context string, conts []formatter.Continuation) {
	c.softmax.SetPossibilities(conts)
	c.shownFor = context
	c.shown = true
}

func (c *NextTokenPrediction) formatContext(context string) string {
	if f, ok := c.model.(ContextFormatter); ok {
		return f.FormatContext(context)
	}
	return context
}

func (c *NextTokenPrediction) fields(conts []formatter.Continuation) Fields {
	return Fields{
		"context":       c.formatContext(c.context),
		"continuations": conts,
	}
}
