package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Model      ModelConfig
	Vocab      VocabConfig
	Generation GenerationConfig
	BarChart   BarChartConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables event forwarding
	RedisURL           string // empty disables the vocabulary cache
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string // empty disables interaction traces
}

type ModelConfig struct {
	Kind           string // "word" or "char"
	Predictor      string // "bigram", "random" or "ollama"
	OllamaBaseURL  string
	OllamaModel    string
	TopN           int
	InitialContext string
	CacheTTL       time.Duration
	Smoothing      float64
	Seed           int64
}

type VocabConfig struct {
	Source     string // "static", "file", "url" or "corpus"
	Tokens     []string
	Path       string
	URL        string
	CorpusPath string
	CacheKey   string
	CacheTTL   time.Duration
}

type GenerationConfig struct {
	Enabled       bool
	SamplesPath   string
	Candidates    int
	MaxTokens     int
	TopK          int
	Temperature   float64
	FailurePolicy string // "soft" or "fast"
}

type BarChartConfig struct {
	Enabled      bool
	Title        string
	Vocab        string // "url" downloads the word list, anything else reuses the model vocabulary
	LongContexts bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/visuallm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Model: ModelConfig{
			Kind:           strings.ToLower(getEnv("MODEL_KIND", "word")),
			Predictor:      strings.ToLower(getEnv("MODEL_PREDICTOR", "bigram")),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:    getEnv("OLLAMA_MODEL", "llama3"),
			TopN:           getEnvAsInt("MODEL_TOP_N", 10),
			InitialContext: getEnv("MODEL_INITIAL_CONTEXT", "the"),
			CacheTTL:       time.Duration(getEnvAsInt("MODEL_CACHE_TTL_SECONDS", 3600)) * time.Second,
			Smoothing:      getEnvAsFloat("MODEL_SMOOTHING", 0.01),
			Seed:           int64(getEnvAsInt("MODEL_SEED", 42)),
		},
		Vocab: VocabConfig{
			Source:     strings.ToLower(getEnv("VOCAB_SOURCE", "corpus")),
			Tokens:     getEnvAsList("VOCAB_TOKENS"),
			Path:       getEnv("VOCAB_PATH", "data/vocab.txt"),
			URL:        getEnv("VOCAB_URL", "https://www.mit.edu/~ecprice/wordlist.10000"),
			CorpusPath: getEnv("VOCAB_CORPUS_PATH", "data/corpus.txt"),
			CacheKey:   getEnv("VOCAB_CACHE_KEY", "visuallm:vocab"),
			CacheTTL:   time.Duration(getEnvAsInt("VOCAB_CACHE_TTL_SECONDS", 86400)) * time.Second,
		},
		Generation: GenerationConfig{
			Enabled:       getEnvAsBool("GENERATION_ENABLED", true),
			SamplesPath:   getEnv("GENERATION_SAMPLES_PATH", "data/samples.json"),
			Candidates:    getEnvAsInt("GENERATION_CANDIDATES", 3),
			MaxTokens:     getEnvAsInt("GENERATION_MAX_TOKENS", 8),
			TopK:          getEnvAsInt("GENERATION_TOP_K", 10),
			Temperature:   getEnvAsFloat("GENERATION_TEMPERATURE", 0.8),
			FailurePolicy: strings.ToLower(getEnv("METRICS_FAILURE_POLICY", "soft")),
		},
		BarChart: BarChartConfig{
			Enabled:      getEnvAsBool("BARCHART_ENABLED", true),
			Title:        getEnv("BARCHART_TITLE", "BarChart Component"),
			Vocab:        strings.ToLower(getEnv("BARCHART_VOCAB", "model")),
			LongContexts: getEnvAsBool("BARCHART_LONG_CONTEXTS", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
