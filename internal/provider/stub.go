package provider

import (
	"context"
	"crypto/sha256"
	"math"
)

// StubEmbedder is a deterministic embedder for testing. The vector for a
// given text is derived from its content hash, so equal texts embed equally
// and different texts almost always differ.
type StubEmbedder struct {
	// Dim is the vector length. Defaults to 8 when zero.
	Dim int
	// Err, when set, is returned by every Embed call.
	Err error
	// Unavailable makes Available report false.
	Unavailable bool
}

func NewStubEmbedder() *StubEmbedder {
	return &StubEmbedder{Dim: 8}
}

func (m *StubEmbedder) Name() string {
	return "stub"
}

func (m *StubEmbedder) Available() bool {
	return !m.Unavailable
}

func (m *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		vec[i] = float32(sum[i%len(sum)]) + 1
		norm += float64(vec[i]) * float64(vec[i])
	}

	// Unit-normalize so cosine similarities land in [0,1].
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
