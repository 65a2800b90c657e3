package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts Options) (*Cache, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c, err := New(store, opts)
	require.NoError(t, err)
	return c, store
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Minute, MaxEntries: 10})

	require.NoError(t, c.Set("k", map[string]string{"hello": "world"}))

	raw, ok := c.Get("k")
	require.True(t, ok)

	var v map[string]string
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, "world", v["hello"])
}

func TestExpiredEntryIsMissAndRemoved(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Minute, MaxEntries: 10})

	require.NoError(t, c.Set("k", "value"))

	// move the clock past the TTL instead of sleeping
	now := time.Now()
	c.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry must be physically removed")

	// still gone with the real clock: the durable record was deleted too
	c.now = time.Now
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestInsertionOrderEviction(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Hour, MaxEntries: 2})

	base := time.Now()
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	require.NoError(t, c.Set("A", 1))
	require.NoError(t, c.Set("B", 2))
	require.NoError(t, c.Set("C", 3))

	_, okA := c.Get("A")
	_, okB := c.Get("B")
	_, okC := c.Get("C")

	assert.False(t, okA, "oldest insertion must be evicted")
	assert.True(t, okB)
	assert.True(t, okC)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Hour, MaxEntries: 2})

	require.NoError(t, c.Set("A", 1))
	require.NoError(t, c.Set("B", 2))
	require.NoError(t, c.Set("A", 3))

	_, okA := c.Get("A")
	_, okB := c.Get("B")
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestCorruptRecordIsMissAndDeleted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	rec := Record{Key: "k", CreatedAt: time.Now(), Value: json.RawMessage(`"v"`)}
	require.NoError(t, store.Write(rec))

	// clobber the record on disk
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := filepath.Join(dir, entries[0].Name())
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c, err := New(store, Options{TTL: time.Hour, MaxEntries: 10})
	require.NoError(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "corrupt record must be deleted")
}

func TestEntriesSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	c1, err := New(store, Options{TTL: time.Hour, MaxEntries: 10})
	require.NoError(t, err)
	require.NoError(t, c1.Set("k", "persisted"))

	// a fresh instance over the same store sees the entry
	store2, err := NewFileStore(dir)
	require.NoError(t, err)
	c2, err := New(store2, Options{TTL: time.Hour, MaxEntries: 10})
	require.NoError(t, err)

	raw, ok := c2.Get("k")
	require.True(t, ok)

	var v string
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, "persisted", v)
}

func TestCachedMemoizesProducer(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Hour, MaxEntries: 10})

	calls := 0
	producer := func() ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	v1, err := Cached(c, "k", time.Hour, producer)
	require.NoError(t, err)
	v2, err := Cached(c, "k", time.Hour, producer)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls, "second call must be served from cache")
}

func TestCachedReturnsCopies(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Hour, MaxEntries: 10})

	v1, err := Cached(c, "k", time.Hour, func() ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)

	v1[0] = "mutated"

	v2, err := Cached(c, "k", time.Hour, func() ([]string, error) {
		t.Fatal("producer must not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", v2[0], "caller mutation must not leak into the cache")
}

func TestConcurrentSetAndGet(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Hour, MaxEntries: 8})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%4))
			for j := 0; j < 50; j++ {
				_ = c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8)
}

func TestNewRejectsBadOptions(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = New(store, Options{TTL: 0, MaxEntries: 10})
	assert.Error(t, err)
	_, err = New(store, Options{TTL: time.Minute, MaxEntries: 0})
	assert.Error(t, err)
}
