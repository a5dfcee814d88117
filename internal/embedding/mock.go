package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockClient produces deterministic bag-of-words vectors so that texts
// sharing words land near each other.
type MockClient struct {
	Err error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	vec := make([]float32, Dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,;:!?\"'()")))
		vec[h.Sum32()%Dimensions] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
