package group

import "math"

// cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude or the dimensions disagree.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// similarityMatrix computes the full pairwise cosine matrix.
func similarityMatrix(vectors [][]float32) [][]float64 {
	n := len(vectors)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := cosine(vectors[i], vectors[j])
			m[i][j] = s
			m[j][i] = s
		}
	}
	return m
}

// connectedComponents clusters indices 0..n-1 as connected components of the
// graph with an edge wherever similarity >= threshold. Components are
// returned in order of their smallest member, members in ascending order.
func connectedComponents(sim [][]float64, threshold float64) [][]int {
	n := len(sim)
	visited := make([]bool, n)
	var components [][]int

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		component := []int{i}
		visited[i] = true
		queue := []int{i}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for j := 0; j < n; j++ {
				if !visited[j] && sim[cur][j] >= threshold {
					visited[j] = true
					component = append(component, j)
					queue = append(queue, j)
				}
			}
		}
		components = append(components, component)
	}
	return components
}
