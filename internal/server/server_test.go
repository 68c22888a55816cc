package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visuallm-be/internal/bootstrap"
	"visuallm-be/internal/config"
	"visuallm-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			CorsAllowedOrigins: "*",
		},
		Model: config.ModelConfig{
			Kind:           "word",
			Predictor:      "bigram",
			TopN:           5,
			InitialContext: "the",
			CacheTTL:       time.Minute,
			Smoothing:      0.01,
			Seed:           1,
		},
		Vocab: config.VocabConfig{
			Source: "corpus",
			// Tests run in the package dir
			CorpusPath: "../../data/corpus.txt",
		},
		Generation: config.GenerationConfig{
			Enabled:       true,
			SamplesPath:   "../../data/samples.json",
			Candidates:    2,
			MaxTokens:     3,
			TopK:          5,
			Temperature:   0.8,
			FailurePolicy: "soft",
		},
		BarChart: config.BarChartConfig{
			Enabled: true,
			Vocab:   "model",
		},
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := testConfig()
	container, err := bootstrap.NewContainer(context.Background(), nil, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return New(cfg, container).GetApp()
}

func call(t *testing.T, app *fiber.App, method, path string, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func changedIDs(body map[string]any) []string {
	changed, _ := body["changedElements"].(map[string]any)
	ids := make([]string, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}
	return ids
}

func TestComponentsAndRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/api/components", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["result"])
	components := body["components"].([]any)
	require.Len(t, components, 3)

	names := make([]string, 0, len(components))
	for _, c := range components {
		names = append(names, c.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"next_token_prediction", "barchart_component", "generation"}, names)

	status, body = call(t, app, http.MethodGet, "/api/routes", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"].([]any), 6)
}

func TestNextTokenFlow(t *testing.T) {
	app := newTestApp(t)
	call(t, app, http.MethodGet, "/api/components", "")

	status, body := call(t, app, http.MethodGet, "/api/fetch", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["result"])
	assert.Equal(t, "the", body["context"])
	conts := body["continuations"].([]any)
	require.Len(t, conts, 5)
	assert.Contains(t, changedIDs(body), "next_token_prediction.continuations")

	status, body = call(t, app, http.MethodGet, "/api/fetch", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, changedIDs(body), "a repeated fetch changes nothing")

	token := conts[0].(map[string]any)["token"].(string)
	status, body = call(t, app, http.MethodPost, "/api/select", `{"token": "`+token+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "the "+token, body["context"])
	assert.ElementsMatch(t, []string{"next_token_prediction.context", "next_token_prediction.continuations"}, changedIDs(body))
}

func TestSelectErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
		wantField  string
	}{
		{"token not offered", `{"token": "zzzz"}`, http.StatusBadRequest, "InvalidSelection", "token"},
		{"missing token", `{}`, http.StatusBadRequest, "InvalidRequest", "token"},
		{"malformed body", `{"token":`, http.StatusBadRequest, "InvalidRequest", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/api/select", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, "error", body["result"])
			detail := body["error"].(map[string]any)
			assert.Equal(t, tt.wantKind, detail["kind"])
			assert.Equal(t, tt.wantField, detail["field"])
		})
	}

	status, body := call(t, app, http.MethodGet, "/api/fetch", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "the", body["context"], "failed selections leave the context alone")
}

func TestUnknownEndpoint(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "UnknownEndpoint", body["error"].(map[string]any)["kind"])

	status, _ = call(t, app, http.MethodGet, "/api/traces", "")
	assert.Equal(t, http.StatusNotFound, status, "traces need a database")
}

func TestBarChartAndGeneration(t *testing.T) {
	app := newTestApp(t)
	call(t, app, http.MethodGet, "/api/components", "")

	status, body := call(t, app, http.MethodPost, "/api/barchart_component/select", `{"selected": 0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, changedIDs(body), "barchart_component.text")
	assert.Contains(t, changedIDs(body), "barchart_component.chart")

	status, body = call(t, app, http.MethodPost, "/api/barchart_component/select", `{"selected": 99}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "InvalidSelection", body["error"].(map[string]any)["kind"])

	status, body = call(t, app, http.MethodPost, "/api/generation/generate", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, changedIDs(body), "generation.metrics_target")
	assert.Contains(t, changedIDs(body), "generation.metrics_predicted")

	status, body = call(t, app, http.MethodPost, "/api/generation/sample", `{"selected": "garden"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, changedIDs(body), "generation.context")

	status, body = call(t, app, http.MethodPost, "/api/generation/metrics",
		`{"values": {"generation.metric.bleu": {"selected": false}}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, changedIDs(body), "generation.metrics_button")
}
