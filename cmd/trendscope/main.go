package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/trendscope/trendscope/internal/cache"
	"github.com/trendscope/trendscope/internal/collector"
	"github.com/trendscope/trendscope/internal/config"
	"github.com/trendscope/trendscope/internal/embed"
	"github.com/trendscope/trendscope/internal/gemini"
	"github.com/trendscope/trendscope/internal/group"
	"github.com/trendscope/trendscope/internal/logger"
	"github.com/trendscope/trendscope/internal/metrics"
	"github.com/trendscope/trendscope/internal/pipeline"
	"github.com/trendscope/trendscope/internal/ratelimit"
	"github.com/trendscope/trendscope/internal/retry"
	"github.com/trendscope/trendscope/internal/scraper"
	"github.com/trendscope/trendscope/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug)
	log := logger.Component("main")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := buildStore(cfg)
	if err != nil {
		log.Error("failed to open cache store", "error", err)
		os.Exit(1)
	}

	c, err := cache.New(store, cache.Options{TTL: cfg.CacheTTL, MaxEntries: cfg.CacheMaxEntries})
	if err != nil {
		log.Error("failed to build cache", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	limiter := ratelimit.New(map[string]int{
		"oracle":    cfg.MaxOracleRequests,
		"embedding": cfg.MaxEmbedRequests,
	}, cfg.MaxTotalAIRequests)

	var oracle group.Oracle
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, limiter)
		if err != nil {
			log.Warn("gemini unavailable, oracle tier disabled", "error", err)
		} else {
			defer client.Close()
			oracle = client
		}
	}

	var embedder group.EmbeddingProvider
	var translator group.Translator
	if cfg.OpenAIAPIKey != "" {
		embedder = embed.NewOpenAI(cfg.OpenAIAPIKey, limiter)
		translator = translate.New(cfg.OpenAIAPIKey)
	}

	policy := retry.Policy{
		MaxRetries: cfg.RetryAttempts,
		Delay:      cfg.RetryDelay,
		Multiplier: 2.0,
		Retryable:  retry.IsTransient,
	}

	grouper := group.New(oracle, embedder, translator, group.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		MinOriginSpan:       cfg.MinOriginSpan,
		CallTimeout:         cfg.RequestTimeout,
		Retry:               policy,
		Metrics:             m,
	}, logger.Component("group"))

	origins, err := collector.LoadOrigins(cfg.OriginsConfigPath)
	if err != nil {
		log.Error("failed to load origins config", "error", err)
		os.Exit(1)
	}
	sources := make([]collector.Source, len(origins))
	for i, origin := range origins {
		sources[i] = collector.NewGoogleNewsSource(origin)
	}

	svc := pipeline.New(
		sources,
		grouper,
		c,
		scraper.New(cfg.RequestTimeout, cfg.ScrapeConcurrency),
		m,
		pipeline.Options{
			RecencyWindow:     cfg.RecencyWindow,
			CollectWindow:     cfg.CollectWindow,
			CacheTTL:          cfg.CacheTTL,
			Collect:           collector.Options{Retry: policy, CallTimeout: cfg.RequestTimeout, Metrics: m},
			ScrapeMaxArticles: cfg.ScrapeMaxArticles,
		},
		logger.Component("pipeline"),
	)

	report, err := svc.Run(ctx, cfg.Query)
	if err != nil {
		m.SetError(err.Error())
		log.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	log.Info("done", "stats", m.GetStats(), "ai", limiter.Stats())
}

// buildStore picks Postgres when DATABASE_URL is set, a local directory of
// JSON records otherwise.
func buildStore(cfg *config.Config) (cache.Store, error) {
	if cfg.DatabaseURL != "" {
		return cache.NewPostgresStore(cfg.DatabaseURL)
	}
	return cache.NewFileStore(cfg.CacheDir)
}
