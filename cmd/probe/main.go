// Command probe walks through every component endpoint of a running server and
// prints the responses. "probe watch" instead tails interaction events from NATS.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"visuallm-be/pkg/events"
	pktNats "visuallm-be/pkg/nats"

	"github.com/fatih/color"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	baseURL = getenv("PROBE_BASE_URL", "http://localhost:5000/api")
	client  = &http.Client{Timeout: 60 * time.Second}
)

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func sendRequest(method, path string, body interface{}) (map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("status %s, body %q: %w", resp.Status, raw, err)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	return out, nil
}

func step(title, method, path string, body interface{}) map[string]interface{} {
	color.Yellow("\n%s  %s %s", title, method, path)
	out, err := sendRequest(method, path, body)
	if err != nil {
		color.Red("Failed: %v", err)
		return nil
	}
	prettyPrint(out)
	return out
}

// firstToken returns the most probable continuation of a fetch response.
func firstToken(resp map[string]interface{}) (string, bool) {
	conts, _ := resp["continuations"].([]interface{})
	if len(conts) == 0 {
		return "", false
	}
	first, _ := conts[0].(map[string]interface{})
	token, ok := first["token"].(string)
	return token, ok
}

func probe() {
	color.Cyan("Probing %s\n", baseURL)

	step("[COMPONENTS]", http.MethodGet, "/components", nil)
	fetched := step("[NEXT TOKEN] fetch", http.MethodGet, "/fetch", nil)
	if token, ok := firstToken(fetched); ok {
		step("[NEXT TOKEN] select "+token, http.MethodPost, "/select", map[string]string{"token": token})
	}
	step("[NEXT TOKEN] invalid selection", http.MethodPost, "/select", map[string]string{"token": "\x00not-offered"})

	step("[BARCHART] select first bar", http.MethodPost, "/barchart_component/select", map[string]int{"selected": 0})

	step("[GENERATION] generate", http.MethodPost, "/generation/generate", nil)
	step("[GENERATION] hide bleu", http.MethodPost, "/generation/metrics", map[string]interface{}{
		"values": map[string]interface{}{
			"generation.metric.bleu": map[string]bool{"selected": false},
		},
	})
}

func watch() {
	url := getenv("NATS_URL", "nats://localhost:4222")
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = sub.Subscribe(ctx, events.InteractionEventType, func(_ context.Context, event events.Event) error {
		p := event.Payload()
		color.Cyan("%s  %v %v (%v)", event.Timestamp().Format(time.TimeOnly), p["method"], p["path"], p["component"])
		prettyPrint(p["changed"])
		return nil
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Watching interactions on %s, Ctrl+C to stop", url)
	<-ctx.Done()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "watch" {
		watch()
		return
	}
	probe()
}
