package store

import (
	"math"
	"sort"
)

// cosineSimilarity computes dot(a,b) / (|a| * |b|). Degenerate inputs
// (zero vectors, mismatched dimensions) score 0 rather than failing.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, magA, magB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}

// sortMatches orders matches by descending similarity, breaking ties by
// ascending message ID so results are stable across runs.
func sortMatches(matches []VectorMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].MessageID < matches[j].MessageID
	})
}
