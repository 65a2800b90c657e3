package trend

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	a := Item{Title: "Tesla Stock Soars!", Origin: "US"}
	b := Item{Title: "  tesla   stock soars ", Origin: "US"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesOrigins(t *testing.T) {
	a := Item{Title: "Tesla stock soars", Origin: "US"}
	b := Item{Title: "Tesla stock soars", Origin: "KR"}

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello,   World!", "hello world"},
		{"<b>Breaking</b> news", "breaking news"},
		{"테슬라 주가 급등", "테슬라 주가 급등"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestDedupeFirstSeenWins(t *testing.T) {
	items := []Item{
		{Title: "Tesla stock soars", Origin: "US", URL: "https://a.example"},
		{Title: "Apple unveils phone", Origin: "US"},
		{Title: "tesla stock soars", Origin: "US", URL: "https://b.example"},
	}

	out := Dedupe(items)
	require.Len(t, out, 2)
	assert.Equal(t, "https://a.example", out[0].URL)
	assert.Equal(t, "Apple unveils phone", out[1].Title)
}

func TestDedupeIdempotent(t *testing.T) {
	items := []Item{
		{Title: "one", Origin: "US"},
		{Title: "two", Origin: "KR"},
		{Title: "one", Origin: "US"},
		{Title: "one", Origin: "KR"},
	}

	once := Dedupe(items)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
}

func TestDedupeKeepsDistinctOrigins(t *testing.T) {
	items := []Item{
		{Title: "same headline", Origin: "US"},
		{Title: "same headline", Origin: "KR"},
	}

	assert.Len(t, Dedupe(items), 2)
}

func TestScorePolicy(t *testing.T) {
	now := time.Now()
	window := RecencyWindow{MaxAge: 24 * time.Hour, Now: func() time.Time { return now }}

	tests := []struct {
		name string
		item Item
		want float64
	}{
		{
			name: "title match only",
			item: Item{Title: "Tesla stock soars", Origin: "US"},
			want: 10.0,
		},
		{
			name: "title and two body occurrences",
			item: Item{Title: "Tesla stock soars", Body: "Tesla is up. Analysts expect tesla to keep climbing.", Origin: "US"},
			want: 14.0,
		},
		{
			name: "body only",
			item: Item{Title: "Markets rally", Body: "tesla tesla tesla", Origin: "US"},
			want: 6.0,
		},
		{
			name: "recent item gets bonus",
			item: Item{Title: "Tesla stock soars", Origin: "US", Published: now.Add(-time.Hour)},
			want: 15.0,
		},
		{
			name: "stale item gets no bonus",
			item: Item{Title: "Tesla stock soars", Origin: "US", Published: now.Add(-48 * time.Hour)},
			want: 10.0,
		},
		{
			name: "no match",
			item: Item{Title: "Apple unveils phone", Origin: "US"},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.item, "tesla", window), 1e-9)
		})
	}
}

func TestScoreMonotonicInBodyOccurrences(t *testing.T) {
	var prev float64
	for n := 0; n < 10; n++ {
		body := ""
		for i := 0; i < n; i++ {
			body += "tesla "
		}
		got := Score(Item{Title: "irrelevant", Body: body, Origin: "US"}, "tesla", RecencyWindow{})
		assert.GreaterOrEqual(t, got, prev, "score dropped at %d occurrences", n)
		prev = got
	}
}

func TestScoreCaseFolded(t *testing.T) {
	it := Item{Title: "TESLA Stock Soars", Body: "TESLA tesla TeSlA", Origin: "US"}
	assert.InDelta(t, 16.0, Score(it, "Tesla", RecencyWindow{}), 1e-9)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrEmptyBatch)
	assert.ErrorIs(t, Validate([]Item{{Title: "no origin"}}), ErrMissingField)
	assert.ErrorIs(t, Validate([]Item{{Origin: "US"}}), ErrMissingField)
	assert.NoError(t, Validate([]Item{{Title: "ok", Origin: "US"}}))
}

func TestFingerprintLength(t *testing.T) {
	fp := Fingerprint(Item{Title: fmt.Sprintf("title-%d", time.Now().UnixNano()), Origin: "US"})
	assert.Len(t, fp, 16)
}
