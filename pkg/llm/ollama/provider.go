package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

// OllamaPredictor asks Ollama for the top log-probabilities of the next token and
// maps them onto the local vocabulary. Tokens outside the vocabulary are dropped. The
// mass Ollama did not report is shared evenly by the vocabulary entries it did not
// mention.
type OllamaPredictor struct {
	BaseURL   string
	ModelName string
	Client    *http.Client

	vocab   *vocab.Vocabulary
	options llm.Options
}

// Ensure OllamaPredictor implements Predictor
var _ llm.Predictor = &OllamaPredictor{}

func NewOllamaPredictor(baseURL, modelName string, v *vocab.Vocabulary, opts ...llm.Option) *OllamaPredictor {
	options := llm.Options{
		Temperature: 0,
		TopLogprobs: 20,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &OllamaPredictor{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
		vocab:   v,
		options: options,
	}
}

// NewFactory binds connection settings; the vocabulary arrives at startup.
func NewFactory(baseURL, modelName string, opts ...llm.Option) llm.Factory {
	return func(v *vocab.Vocabulary, _ vocab.Tokenizer) (llm.Predictor, error) {
		return NewOllamaPredictor(baseURL, modelName, v, opts...), nil
	}
}

// --- Request/Response structs (Internal to this package) ---

type generateRequest struct {
	Model       string          `json:"model"`
	Prompt      string          `json:"prompt"`
	Stream      bool            `json:"stream"`
	Raw         bool            `json:"raw"`
	Logprobs    bool            `json:"logprobs"`
	TopLogprobs int             `json:"top_logprobs"`
	Options     generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type tokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Logprobs []struct {
		tokenLogprob
		TopLogprobs []tokenLogprob `json:"top_logprobs"`
	} `json:"logprobs"`
}

func (o *OllamaPredictor) Predict(ctx context.Context, text string) ([]float64, error) {
	model := o.ModelName
	if o.options.Model != "" {
		model = o.options.Model
	}

	payloadBytes, err := json.Marshal(generateRequest{
		Model:       model,
		Prompt:      text,
		Stream:      false,
		Raw:         true,
		Logprobs:    true,
		TopLogprobs: o.options.TopLogprobs,
		Options: generateOptions{
			Temperature: o.options.Temperature,
			NumPredict:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp generateResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(ollamaResp.Logprobs) == 0 {
		return nil, fmt.Errorf("ollama response has no logprobs (model %s)", model)
	}

	return spread(o.vocab, ollamaResp.Logprobs[0].TopLogprobs), nil
}

func spread(v *vocab.Vocabulary, top []tokenLogprob) []float64 {
	probs := make([]float64, v.Len())
	matched := make([]bool, v.Len())
	reported := 0.0
	for _, cand := range top {
		p := math.Exp(cand.Logprob)
		reported += p
		if id, ok := v.ID(normalizeToken(cand.Token)); ok {
			probs[id] += p
			matched[id] = true
		}
	}

	unmatched := 0
	for _, m := range matched {
		if !m {
			unmatched++
		}
	}
	rest := 1 - reported
	if rest <= 0 || unmatched == 0 {
		return probs
	}
	share := rest / float64(unmatched)
	for id, m := range matched {
		if !m {
			probs[id] = share
		}
	}
	return probs
}

// normalizeToken strips the leading space most BPE vocabularies attach to words.
// Whitespace-only tokens are kept as they are.
func normalizeToken(t string) string {
	if trimmed := strings.TrimSpace(t); trimmed != "" {
		return trimmed
	}
	return t
}
