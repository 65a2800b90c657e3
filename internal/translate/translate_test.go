package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoogleResponse(t *testing.T) {
	body := []byte(`[[["Tesla stock surges","테슬라 주가 급등",null,null,3]],null,"ko"]`)

	got, err := ParseGoogleResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Tesla stock surges", got)
}

func TestParseGoogleResponseMultipleSegments(t *testing.T) {
	body := []byte(`[[["Hello ","안녕 ",null],["world","세상",null]],null,"ko"]`)

	got, err := ParseGoogleResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestParseGoogleResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>error</html>"},
		{"empty array", "[]"},
		{"wrong shape", `{"translated": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGoogleResponse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLooksEnglish(t *testing.T) {
	assert.True(t, looksEnglish("Tesla stock soars"))
	assert.False(t, looksEnglish("테슬라 주가 급등"))
	assert.False(t, looksEnglish("héllo"))
}

func TestToEnglishShortCircuitsASCII(t *testing.T) {
	// ASCII input must return unchanged without any network call
	s := New("")
	got, err := s.ToEnglish(context.Background(), "already english")
	require.NoError(t, err)
	assert.Equal(t, "already english", got)
}
