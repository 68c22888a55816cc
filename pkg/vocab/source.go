package vocab

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// DefaultWordListURL is the MIT 10k word list used by the demo components.
const DefaultWordListURL = "https://www.mit.edu/~ecprice/wordlist.10000"

// Source loads the ordered token list once at startup.
type Source interface {
	Load(ctx context.Context) ([]string, error)
}

// StaticSource is an in-memory list.
type StaticSource []string

func (s StaticSource) Load(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// FileSource reads one token per line, skipping blank lines.
type FileSource struct {
	Path string
}

func (s FileSource) Load(context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()
	return readLines(f)
}

// URLSource downloads a newline separated word list.
type URLSource struct {
	URL    string
	Client *http.Client
}

func NewURLSource(url string) *URLSource {
	if url == "" {
		url = DefaultWordListURL
	}
	return &URLSource{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *URLSource) Load(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download word list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download word list: status %d", resp.StatusCode)
	}
	return readLines(resp.Body)
}

// CorpusSource derives a sorted vocabulary from the distinct tokens of a corpus.
type CorpusSource struct {
	Docs      []string
	Tokenizer Tokenizer
}

func (s CorpusSource) Load(context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, doc := range s.Docs {
		for _, t := range s.Tokenizer.Tokenize(doc) {
			seen[t] = struct{}{}
		}
	}
	tokens := make([]string, 0, len(seen))
	for t := range seen {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens, nil
}

// ReadCorpus reads a corpus file with one document per line.
func ReadCorpus(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return lines, nil
}
