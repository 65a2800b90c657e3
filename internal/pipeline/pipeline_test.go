package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendscope/trendscope/internal/cache"
	"github.com/trendscope/trendscope/internal/collector"
	"github.com/trendscope/trendscope/internal/group"
	"github.com/trendscope/trendscope/internal/metrics"
	"github.com/trendscope/trendscope/internal/retry"
	"github.com/trendscope/trendscope/internal/trend"
)

type fakeSource struct {
	origin string
	items  []trend.Item
	err    error
}

func (f *fakeSource) Origin() string { return f.origin }

func (f *fakeSource) Fetch(_ context.Context, _ string, _ collector.DateRange) ([]trend.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeOracle struct {
	groups [][]int
	calls  int
}

func (f *fakeOracle) GroupSimilar(_ context.Context, _ []group.Candidate) ([][]int, error) {
	f.calls++
	return f.groups, nil
}

func testService(t *testing.T, sources []collector.Source, oracle group.Oracle) *Service {
	t.Helper()

	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	c, err := cache.New(store, cache.Options{TTL: time.Hour, MaxEntries: 100})
	require.NoError(t, err)

	grouper := group.New(oracle, nil, nil, group.Config{
		MinOriginSpan: 2,
		CallTimeout:   time.Second,
		Retry:         retry.Policy{MaxRetries: 1, Delay: time.Millisecond},
	}, nil)

	return New(sources, grouper, c, nil, metrics.New(), Options{
		RecencyWindow: 24 * time.Hour,
		CacheTTL:      time.Hour,
		Collect: collector.Options{
			Retry:       retry.Policy{MaxRetries: 0, Delay: time.Millisecond},
			CallTimeout: time.Second,
		},
	}, nil)
}

func TestDedupeAndScoreRanks(t *testing.T) {
	svc := testService(t, nil, nil)

	now := time.Now()
	items := []trend.Item{
		{Title: "Markets rally", Body: "no match here", Origin: "US", Published: now},
		{Title: "Tesla stock soars", Body: "tesla tesla", Origin: "US", Published: now},
		{Title: "Markets rally", Body: "no match here", Origin: "US", Published: now}, // duplicate
		{Title: "tesla mentioned once", Body: "tesla", Origin: "KR", Published: now},
	}

	scored, err := svc.DedupeAndScore(items, "tesla")
	require.NoError(t, err)
	require.Len(t, scored, 3, "duplicate removed")

	assert.Equal(t, "Tesla stock soars", scored[0].Title)
	assert.Equal(t, "tesla mentioned once", scored[1].Title)
	assert.Equal(t, "Markets rally", scored[2].Title)
	assert.Greater(t, scored[0].Relevance, scored[1].Relevance)
}

func TestDedupeAndScoreRejectsEmpty(t *testing.T) {
	svc := testService(t, nil, nil)
	_, err := svc.DedupeAndScore(nil, "tesla")
	assert.ErrorIs(t, err, trend.ErrEmptyBatch)
}

func TestGroupAcrossSourcesScenario(t *testing.T) {
	svc := testService(t, nil, &fakeOracle{groups: [][]int{{0, 1}}})

	items := []trend.Item{
		{Title: "Tesla stock soars", Origin: "US"},
		{Title: "테슬라 주가 급등", Origin: "KR"},
		{Title: "Apple unveils phone", Origin: "US"},
	}

	groups, err := svc.GroupAcrossSources(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"KR", "US"}, groups[0].Origins)
	assert.Len(t, groups[0].MemberIDs, 2)
}

func TestCachedEntryPoint(t *testing.T) {
	svc := testService(t, nil, nil)

	calls := 0
	producer := func() (any, error) {
		calls++
		return "expensive", nil
	}

	v1, err := svc.Cached("report", time.Hour, producer)
	require.NoError(t, err)
	v2, err := svc.Cached("report", time.Hour, producer)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestCachedAccountingMatchesProducerRuns(t *testing.T) {
	svc := testService(t, nil, nil)

	producer := func() (any, error) { return 42.0, nil }

	_, err := svc.Cached("k", time.Hour, producer)
	require.NoError(t, err)
	_, err = svc.Cached("k", time.Hour, producer)
	require.NoError(t, err)

	assert.EqualValues(t, 1, svc.metrics.CacheMisses, "only the producing call is a miss")
	assert.EqualValues(t, 1, svc.metrics.CacheHits)
}

func TestRunFallsBackToSamples(t *testing.T) {
	sources := []collector.Source{
		&fakeSource{origin: "US", err: errors.New("down")},
		&fakeSource{origin: "KR", err: errors.New("down")},
	}
	svc := testService(t, sources, &fakeOracle{})

	report, err := svc.Run(context.Background(), "technology")
	require.NoError(t, err, "total collection failure must degrade, not error")
	assert.True(t, report.Degraded)
	assert.NotEmpty(t, report.Scored)
}

func TestRunMemoizesGrouping(t *testing.T) {
	now := time.Now()
	sources := []collector.Source{
		&fakeSource{origin: "US", items: []trend.Item{{Title: "Tesla stock soars", Origin: "US", Published: now}}},
		&fakeSource{origin: "KR", items: []trend.Item{{Title: "테슬라 주가 급등", Origin: "KR", Published: now}}},
	}
	oracle := &fakeOracle{groups: [][]int{{0, 1}}}
	svc := testService(t, sources, oracle)

	r1, err := svc.Run(context.Background(), "tesla")
	require.NoError(t, err)
	r2, err := svc.Run(context.Background(), "tesla")
	require.NoError(t, err)

	assert.Equal(t, 1, oracle.calls, "second run for the same batch hits the cache")
	assert.Equal(t, r1.Groups, r2.Groups)
	assert.False(t, r1.Degraded)
}
