// Package pipeline wires collection, deduplication, scoring, grouping and
// caching into the three operations the serving layer calls.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trendscope/trendscope/internal/cache"
	"github.com/trendscope/trendscope/internal/collector"
	"github.com/trendscope/trendscope/internal/group"
	"github.com/trendscope/trendscope/internal/metrics"
	"github.com/trendscope/trendscope/internal/samples"
	"github.com/trendscope/trendscope/internal/scraper"
	"github.com/trendscope/trendscope/internal/trend"
)

// Options tune one Service instance.
type Options struct {
	RecencyWindow     time.Duration
	CollectWindow     time.Duration
	CacheTTL          time.Duration
	Collect           collector.Options
	ScrapeMaxArticles int
}

// Service is the aggregation pipeline. All collaborators are injected;
// scraper and metrics may be nil.
type Service struct {
	sources []collector.Source
	grouper *group.Grouper
	cache   *cache.Cache
	scraper *scraper.Scraper
	metrics *metrics.Metrics
	opts    Options
	log     *slog.Logger
}

// Report is the outcome of one pipeline run.
type Report struct {
	RunID    string
	Scored   []trend.ScoredItem
	Groups   []group.ConceptGroup
	Degraded bool // true when sample data substituted for real collection
}

func New(sources []collector.Source, grouper *group.Grouper, c *cache.Cache, sc *scraper.Scraper, m *metrics.Metrics, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.ScrapeMaxArticles == 0 {
		opts.ScrapeMaxArticles = 10
	}
	return &Service{
		sources: sources,
		grouper: grouper,
		cache:   c,
		scraper: sc,
		metrics: m,
		opts:    opts,
		log:     log,
	}
}

// DedupeAndScore removes in-batch duplicates and ranks the survivors against
// the query, highest relevance first, newer items breaking ties.
func (s *Service) DedupeAndScore(items []trend.Item, query string) ([]trend.ScoredItem, error) {
	if err := trend.Validate(items); err != nil {
		return nil, err
	}

	deduped := trend.Dedupe(items)
	if s.metrics != nil {
		s.metrics.AddDuplicatesFiltered(len(items) - len(deduped))
	}

	window := trend.RecencyWindow{MaxAge: s.opts.RecencyWindow}
	scored := make([]trend.ScoredItem, len(deduped))
	for i, it := range deduped {
		scored[i] = trend.ScoredItem{Item: it, Relevance: trend.Score(it, query, window)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Relevance != scored[j].Relevance {
			return scored[i].Relevance > scored[j].Relevance
		}
		return scored[i].Published.After(scored[j].Published)
	})
	return scored, nil
}

// GroupAcrossSources finds concepts shared by multiple origins. Handled
// grouping failures degrade inside the grouper; only invalid input errors.
func (s *Service) GroupAcrossSources(ctx context.Context, items []trend.Item) ([]group.ConceptGroup, error) {
	groups, err := s.grouper.Group(ctx, items)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AddGroupsEmitted(len(groups))
	}
	return groups, nil
}

// Cached returns the stored value for key when fresh, otherwise runs
// producer and stores its result. One lookup decides both the outcome and
// the hit/miss accounting, so the counters cannot disagree with what ran.
func (s *Service) Cached(key string, ttl time.Duration, producer func() (any, error)) (any, error) {
	if raw, ok := s.cache.GetWithTTL(key, ttl); ok {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			if s.metrics != nil {
				s.metrics.IncrementCacheHits()
			}
			return v, nil
		}
		s.cache.Delete(key)
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMisses()
	}

	v, err := producer()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(key, v); err != nil {
		return v, err
	}
	return v, nil
}

// Run executes one full aggregation pass: collect from every origin,
// dedupe and score, then group across sources with the grouping result
// memoized in the cache.
func (s *Service) Run(ctx context.Context, query string) (*Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := s.log.With("run_id", runID)

	defer func() {
		if s.metrics != nil {
			s.metrics.RecordProcessingTime(time.Since(started))
			s.metrics.SetLastRun()
		}
	}()

	window := s.opts.CollectWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	dr := collector.DateRange{From: time.Now().Add(-window)}

	items := collector.CollectAll(ctx, s.sources, query, dr, s.opts.Collect)
	degraded := false
	if len(items) == 0 {
		log.Warn("all origins failed, using sample data")
		origins := make([]string, len(s.sources))
		for i, src := range s.sources {
			origins[i] = src.Origin()
		}
		items = samples.Items(origins, time.Now())
		degraded = true
	}
	if s.metrics != nil {
		s.metrics.AddItemsCollected(len(items))
	}
	log.Info("collection finished", "items", len(items), "degraded", degraded)

	s.enrichBodies(ctx, items)

	scored, err := s.DedupeAndScore(items, query)
	if err != nil {
		return nil, err
	}

	deduped := make([]trend.Item, len(scored))
	for i, sc := range scored {
		deduped[i] = sc.Item
	}

	groups, err := cache.Cached(s.cache, groupCacheKey(deduped), s.opts.CacheTTL, func() ([]group.ConceptGroup, error) {
		return s.GroupAcrossSources(ctx, deduped)
	})
	if err != nil {
		return nil, err
	}

	log.Info("run finished", "scored", len(scored), "groups", len(groups), "took", time.Since(started))
	return &Report{RunID: runID, Scored: scored, Groups: groups, Degraded: degraded}, nil
}

// enrichBodies replaces short feed descriptions with scraped article text
// for the first few items. Best effort.
func (s *Service) enrichBodies(ctx context.Context, items []trend.Item) {
	if s.scraper == nil {
		return
	}

	urls := make([]string, 0, s.opts.ScrapeMaxArticles)
	for _, it := range items {
		if len(urls) >= s.opts.ScrapeMaxArticles {
			break
		}
		if it.URL != "" {
			urls = append(urls, it.URL)
		}
	}

	bodies := s.scraper.ExtractAll(ctx, urls)
	for i := range items {
		if body, ok := bodies[items[i].URL]; ok && len(body) > len(items[i].Body) {
			items[i].Body = body
		}
	}
}

// groupCacheKey derives a stable cache key from the batch content, so the
// same batch reuses the expensive grouping result.
func groupCacheKey(items []trend.Item) string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	sort.Strings(ids)

	h := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return "concept_groups:" + hex.EncodeToString(h[:])[:16]
}
