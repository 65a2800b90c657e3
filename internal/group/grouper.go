// Package group finds clusters of items that denote the same real-world
// concept across independent origins. A semantic oracle is asked first;
// when it is unavailable or returns an unusable response the grouper falls
// back to embedding-similarity clustering. Degraded-but-handled failures
// never surface to the caller, only invalid input does.
package group

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/trendscope/trendscope/internal/metrics"
	"github.com/trendscope/trendscope/internal/retry"
	"github.com/trendscope/trendscope/internal/trend"
)

var (
	// ErrOracleParse marks an oracle response that violated the expected
	// schema. The whole batch is regrouped with embeddings.
	ErrOracleParse = errors.New("group: unparseable oracle response")
	// ErrOracleUnavailable marks an oracle that could not be reached or is
	// over budget.
	ErrOracleUnavailable = errors.New("group: oracle unavailable")
)

// Candidate is what grouping backends see: the item's position in the batch,
// its surface text and the origin it came from.
type Candidate struct {
	Index  int
	Text   string
	Origin string
}

// Oracle is an external semantic-grouping capability. Implementations must
// return strictly index groups; free-form output is their problem to reject
// with ErrOracleParse.
type Oracle interface {
	GroupSimilar(ctx context.Context, candidates []Candidate) ([][]int, error)
}

// EmbeddingProvider turns text into a vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Translator optionally moves text into a reference language before
// embedding, which improves cross-lingual matching. Best effort: an error
// just means the original text is embedded.
type Translator interface {
	ToEnglish(ctx context.Context, text string) (string, error)
}

// Confidence records which tier produced a group.
type Confidence string

const (
	ConfidenceOracle    Confidence = "oracle"
	ConfidenceEmbedding Confidence = "embedding"
)

// ConceptGroup is a cluster of items that refer to the same concept across
// at least MinOriginSpan distinct origins.
type ConceptGroup struct {
	MemberIDs  []string
	Origins    []string
	Label      string
	Confidence Confidence
}

// Config tunes the grouper. Zero values fall back to defaults.
type Config struct {
	// SimilarityThreshold is tau for the embedding tier, sensible range
	// 0.65 to 0.8.
	SimilarityThreshold float64
	// MinOriginSpan is the minimum number of distinct origins a group must
	// span. The same bar applies to both tiers.
	MinOriginSpan int
	CallTimeout   time.Duration
	Retry         retry.Policy
	// Metrics counts tier fallbacks when set.
	Metrics *metrics.Metrics
}

func (c Config) withDefaults() Config {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.75
	}
	if c.MinOriginSpan < 2 {
		// a "shared" concept needs at least two independent origins
		c.MinOriginSpan = 2
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.Retry.MaxRetries == 0 && c.Retry.Delay == 0 {
		c.Retry = retry.DefaultPolicy()
	}
	return c
}

// Grouper is stateless between invocations; all its collaborators are
// injected so tests can substitute deterministic fakes.
type Grouper struct {
	oracle     Oracle
	embedder   EmbeddingProvider
	translator Translator
	cfg        Config
	log        *slog.Logger
}

// New builds a Grouper. oracle, embedder and translator may each be nil;
// a nil backend simply makes its tier unavailable.
func New(oracle Oracle, embedder EmbeddingProvider, translator Translator, cfg Config, log *slog.Logger) *Grouper {
	if log == nil {
		log = slog.Default()
	}
	return &Grouper{
		oracle:     oracle,
		embedder:   embedder,
		translator: translator,
		cfg:        cfg.withDefaults(),
		log:        log,
	}
}

// Group clusters a batch collected from multiple origins. It returns an
// error only for invalid input; every handled failure degrades to the next
// tier and, at worst, an empty result.
func (g *Grouper) Group(ctx context.Context, items []trend.Item) ([]ConceptGroup, error) {
	if err := trend.Validate(items); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(items))
	for i, it := range items {
		candidates[i] = Candidate{Index: i, Text: it.Title, Origin: it.Origin}
	}

	if g.oracle != nil {
		groups, err := g.tryOracle(ctx, items, candidates)
		if err == nil {
			return groups, nil
		}
		g.log.Warn("oracle grouping failed, falling back to embeddings", "error", err)
		if g.cfg.Metrics != nil {
			g.cfg.Metrics.IncrementOracleFallbacks()
		}
	}

	return g.embeddingFallback(ctx, items, candidates), nil
}

func (g *Grouper) tryOracle(ctx context.Context, items []trend.Item, candidates []Candidate) ([]ConceptGroup, error) {
	var raw [][]int
	err := retry.DoContext(ctx, g.cfg.Retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()

		groups, err := g.oracle.GroupSimilar(callCtx, candidates)
		if err != nil {
			return err
		}
		raw = groups
		return nil
	})
	if err != nil {
		return nil, err
	}

	groups := make([]ConceptGroup, 0, len(raw))
	for _, indices := range raw {
		cg, ok := g.buildGroup(items, indices, ConfidenceOracle)
		if !ok {
			// constraint violations drop the group, never the batch
			g.log.Debug("dropping oracle group", "indices", indices)
			continue
		}
		groups = append(groups, cg)
	}
	return groups, nil
}

func (g *Grouper) embeddingFallback(ctx context.Context, items []trend.Item, candidates []Candidate) []ConceptGroup {
	if g.embedder == nil {
		return []ConceptGroup{}
	}

	vectors := make([][]float32, len(candidates))
	for i, c := range candidates {
		text := c.Text
		if g.translator != nil {
			if translated, err := g.translator.ToEnglish(ctx, text); err == nil && translated != "" {
				text = translated
			}
		}

		var vec []float32
		err := retry.DoContext(ctx, g.cfg.Retry, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
			defer cancel()

			v, err := g.embedder.Embed(callCtx, text)
			if err != nil {
				return err
			}
			vec = v
			return nil
		})
		if err != nil {
			g.log.Warn("embedding failed, emitting no groups", "index", i, "error", err)
			return []ConceptGroup{}
		}
		vectors[i] = vec
	}

	sim := similarityMatrix(vectors)
	components := connectedComponents(sim, g.cfg.SimilarityThreshold)

	groups := make([]ConceptGroup, 0, len(components))
	for _, indices := range components {
		cg, ok := g.buildGroup(items, indices, ConfidenceEmbedding)
		if !ok {
			continue
		}
		groups = append(groups, cg)
	}
	return groups
}

// buildGroup validates one index group and converts it to a ConceptGroup.
// A group is rejected when an index is out of range or repeated, when it has
// fewer than two members, or when it spans fewer than MinOriginSpan distinct
// origins.
func (g *Grouper) buildGroup(items []trend.Item, indices []int, conf Confidence) (ConceptGroup, bool) {
	if len(indices) < 2 {
		return ConceptGroup{}, false
	}

	seen := make(map[int]struct{}, len(indices))
	origins := make(map[string]struct{})
	members := make([]string, 0, len(indices))

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	for _, idx := range sorted {
		if idx < 0 || idx >= len(items) {
			return ConceptGroup{}, false
		}
		if _, dup := seen[idx]; dup {
			return ConceptGroup{}, false
		}
		seen[idx] = struct{}{}

		it := items[idx]
		id := it.ID
		if id == "" {
			id = trend.Fingerprint(it)
		}
		members = append(members, id)
		origins[it.Origin] = struct{}{}
	}

	if len(origins) < g.cfg.MinOriginSpan {
		return ConceptGroup{}, false
	}

	originList := make([]string, 0, len(origins))
	for o := range origins {
		originList = append(originList, o)
	}
	sort.Strings(originList)

	return ConceptGroup{
		MemberIDs:  members,
		Origins:    originList,
		Label:      items[sorted[0]].Title,
		Confidence: conf,
	}, true
}
