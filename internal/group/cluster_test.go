package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"dimension mismatch", []float32{1}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestConnectedComponentsTransitive(t *testing.T) {
	// 0~1 and 1~2 are similar but 0~2 is not; connected components still
	// put all three together
	sim := [][]float64{
		{1.0, 0.9, 0.5},
		{0.9, 1.0, 0.9},
		{0.5, 0.9, 1.0},
	}

	components := connectedComponents(sim, 0.8)
	assert.Equal(t, [][]int{{0, 1, 2}}, components)
}

func TestConnectedComponentsSplits(t *testing.T) {
	sim := [][]float64{
		{1.0, 0.9, 0.1, 0.1},
		{0.9, 1.0, 0.1, 0.1},
		{0.1, 0.1, 1.0, 0.95},
		{0.1, 0.1, 0.95, 1.0},
	}

	components := connectedComponents(sim, 0.8)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, components)
}

func TestConnectedComponentsSingletons(t *testing.T) {
	sim := [][]float64{
		{1.0, 0.1},
		{0.1, 1.0},
	}

	components := connectedComponents(sim, 0.8)
	assert.Equal(t, [][]int{{0}, {1}}, components)
}
