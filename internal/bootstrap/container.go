package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"visuallm-be/internal/config"
	"visuallm-be/internal/controller"
	"visuallm-be/internal/pkg/logger"
	"visuallm-be/internal/repository"
	"visuallm-be/internal/repository/implementation"
	"visuallm-be/internal/repository/memory"
	"visuallm-be/internal/service"
	"visuallm-be/pkg/component"
	"visuallm-be/pkg/component/nexttoken"
	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/llm/cached"
	"visuallm-be/pkg/llm/factory"
	"visuallm-be/pkg/llm/random"
	"visuallm-be/pkg/metrics"
	pktNats "visuallm-be/pkg/nats"
	"visuallm-be/pkg/vocab"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const interactionTopic = "component.interactions"

type Container struct {
	Logger   logger.ILogger
	Registry *component.Registry

	// Controllers
	ComponentController controller.IComponentController
	TraceController     controller.ITraceController // nil without a database

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	closers []func()
}

// NewContainer wires the collaborators in startup order: vocabulary and model,
// then components, then the registry, then the transport. db may be nil.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, log logger.ILogger) (*Container, error) {
	c := &Container{Logger: log}

	// 1. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 2. Optional Infrastructure
	rdb := c.connectRedis(ctx, cfg.App.RedisURL)
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL)
		if err != nil {
			log.Warn("Bootstrap", "NATS unavailable, interactions are not forwarded", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Model Collaborators
	corpus, err := loadCorpus(cfg)
	if err != nil {
		return nil, err
	}
	source, err := newVocabSource(cfg, corpus, rdb, log)
	if err != nil {
		return nil, err
	}
	predictors, err := newPredictorFactory(cfg.Model, corpus)
	if err != nil {
		return nil, err
	}
	model, err := nexttoken.New(nexttoken.Kind(cfg.Model.Kind), source, predictors)
	if err != nil {
		return nil, err
	}

	// 4. Components
	nextToken := component.NewNextTokenPrediction(model, cfg.Model.TopN, false)
	if err := nextToken.InitializeVocab(ctx); err != nil {
		return nil, fmt.Errorf("initialize vocabulary: %w", err)
	}
	nextToken.InitializeContext(cfg.Model.InitialContext)
	components := []component.Component{nextToken}

	if cfg.BarChart.Enabled {
		barChart, err := newBarChart(ctx, cfg, model, rdb, log)
		if err != nil {
			return nil, err
		}
		components = append(components, barChart)
	}

	if cfg.Generation.Enabled {
		generation, err := newGeneration(ctx, cfg, model, log)
		if err != nil {
			return nil, err
		}
		components = append(components, generation)
	}

	// 5. Registry
	registry := component.NewRegistry(log)
	for _, comp := range components {
		if err := registry.Register(comp); err != nil {
			return nil, err
		}
	}
	c.Registry = registry

	// 6. Traces
	var traceRepo repository.TraceRepository
	if db != nil {
		traceRepo = implementation.NewTraceRepository(db)
		if err := traceRepo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate traces: %w", err)
		}
		c.TraceController = controller.NewTraceController(service.NewTraceService(traceRepo))
	}

	publisherService := service.NewPublisherService(interactionTopic, pubSub)
	interactionLogger := logger.NewIsolatedLogger("logs/interactions.log")
	c.ConsumerService = service.NewConsumerService(pubSub, interactionTopic, traceRepo, forwarder, interactionLogger)

	// 7. Controllers
	c.ComponentController = controller.NewComponentController(registry, publisherService, log)
	return c, nil
}

// Close releases the connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func (c *Container) connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		c.Logger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Bootstrap", "Redis unavailable, vocabulary is not cached", map[string]interface{}{
			"error": err.Error(),
		})
		_ = rdb.Close()
		return nil
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return rdb
}

// loadCorpus reads the corpus when one is configured. It is required by the bigram
// predictor and by the corpus vocabulary source only.
func loadCorpus(cfg *config.Config) ([]string, error) {
	needed := cfg.Model.Predictor == "bigram" || cfg.Vocab.Source == "corpus"
	if cfg.Vocab.CorpusPath == "" {
		if needed {
			return nil, fmt.Errorf("VOCAB_CORPUS_PATH is required for predictor %q and vocab source %q",
				cfg.Model.Predictor, cfg.Vocab.Source)
		}
		return nil, nil
	}
	corpus, err := vocab.ReadCorpus(cfg.Vocab.CorpusPath)
	if err != nil {
		if !needed && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return corpus, nil
}

func tokenizerFor(kind string) vocab.Tokenizer {
	if kind == string(nexttoken.KindChar) {
		return vocab.CharTokenizer{}
	}
	return vocab.WordTokenizer{}
}

func newVocabSource(cfg *config.Config, corpus []string, rdb *redis.Client, log logger.ILogger) (vocab.Source, error) {
	switch cfg.Vocab.Source {
	case "static":
		if len(cfg.Vocab.Tokens) == 0 {
			return nil, fmt.Errorf("VOCAB_TOKENS is required for the static vocabulary source")
		}
		return vocab.StaticSource(cfg.Vocab.Tokens), nil
	case "file":
		return vocab.FileSource{Path: cfg.Vocab.Path}, nil
	case "url":
		return cachedURLSource(cfg.Vocab.URL, cfg.Vocab, rdb, log), nil
	case "corpus":
		return vocab.CorpusSource{Docs: corpus, Tokenizer: tokenizerFor(cfg.Model.Kind)}, nil
	default:
		return nil, fmt.Errorf("unsupported vocabulary source: %s", cfg.Vocab.Source)
	}
}

func cachedURLSource(url string, cfg config.VocabConfig, rdb *redis.Client, log logger.ILogger) vocab.Source {
	src := vocab.NewRedisCachedSource(rdb, cfg.CacheKey+":"+url, cfg.CacheTTL, vocab.NewURLSource(url))
	src.OnCacheError = func(err error) {
		log.Warn("Bootstrap", "Vocabulary cache error", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}
	return src
}

// newPredictorFactory caches deterministic predictors by context.
func newPredictorFactory(cfg config.ModelConfig, corpus []string) (llm.Factory, error) {
	f, err := factory.NewPredictorFactory(cfg.Predictor, factory.Options{
		BaseURL:   cfg.OllamaBaseURL,
		ModelName: cfg.OllamaModel,
		TopN:      cfg.TopN,
		Corpus:    corpus,
		Smoothing: cfg.Smoothing,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Predictor == "random" || cfg.CacheTTL <= 0 {
		return f, nil
	}
	return cached.Wrap(f, memory.NewPredictionCache(cfg.CacheTTL)), nil
}

// newBarChart uses the downloaded word list when configured, otherwise the
// vocabulary of the next-token model.
func newBarChart(ctx context.Context, cfg *config.Config, model component.NextTokenModel, rdb *redis.Client, log logger.ILogger) (*component.BarChartSimple, error) {
	var (
		v   *vocab.Vocabulary
		err error
	)
	if cfg.BarChart.Vocab == "url" {
		var tokens []string
		tokens, err = cachedURLSource(vocab.DefaultWordListURL, cfg.Vocab, rdb, log).Load(ctx)
		if err == nil {
			v, err = vocab.New(tokens)
		}
	} else {
		v, err = model.InitializeVocab(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("bar chart vocabulary: %w", err)
	}
	p := random.New(v.Len(), random.DefaultSamples, cfg.Model.Seed)
	return component.NewBarChartSimple(ctx, cfg.BarChart.Title, v, p, cfg.BarChart.LongContexts)
}

func newGeneration(ctx context.Context, cfg *config.Config, model component.NextTokenModel, log logger.ILogger) (*component.Generation, error) {
	samples, err := component.LoadSamples(cfg.Generation.SamplesPath)
	if err != nil {
		return nil, err
	}
	evaluator, err := component.NewMetricsEvaluator(
		component.GenerationName,
		"/generation/metrics",
		metrics.DefaultGenerated(),
		metrics.DefaultProbs(),
		component.FailurePolicy(cfg.Generation.FailurePolicy),
		metrics.DefaultOrder()...,
	)
	if err != nil {
		return nil, err
	}
	return component.NewGeneration(ctx, model, samples, evaluator, component.GenerationConfig{
		Candidates: cfg.Generation.Candidates,
		MaxTokens:  cfg.Generation.MaxTokens,
		Sampling: component.SamplingOptions{
			TopK:        cfg.Generation.TopK,
			Temperature: cfg.Generation.Temperature,
		},
		Seed: cfg.Model.Seed,
	}, log)
}
