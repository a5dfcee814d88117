package embedding

import (
	"context"
	"testing"
)

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	a, err := c.Embed(ctx, "Pricing policy update")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, _ := c.Embed(ctx, "pricing policy update")
	if len(a) != Dimensions {
		t.Fatalf("expected %d dims, got %d", Dimensions, len(a))
	}
	if d := dot(a, b); d < 0.999 {
		t.Fatalf("expected identical vectors, dot=%f", d)
	}
}

func TestMockClient_SimilarTextsCloser(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	q, _ := c.Embed(ctx, "infra reliability")
	near, _ := c.Embed(ctx, "reliability of infra on call")
	far, _ := c.Embed(ctx, "company picnic friday")

	if dot(q, near) <= dot(q, far) {
		t.Fatal("expected overlapping text to score higher")
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(ProviderOpenAI, ""); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewClient(ProviderMock, ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
