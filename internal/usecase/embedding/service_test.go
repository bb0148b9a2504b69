package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/vibesearch/internal/domain"
)

func TestService_Embed(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := NewService(inner, time.Second, 3)

	vec, err := svc.Embed(context.Background(), "sunny loft")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 values, got %d", len(vec))
	}
}

func TestService_Deterministic(t *testing.T) {
	inner := &mockEmbedder{embedFn: func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
	}}
	svc := NewService(inner, 0, 2)

	a, _ := svc.Embed(context.Background(), "cozy")
	b, _ := svc.Embed(context.Background(), "cozy")
	if a[0] != b[0] || a[1] != b[1] {
		t.Errorf("same text produced %v and %v", a, b)
	}
}

func TestService_EmptyTextIsNotSpecial(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	inner := &mockEmbedder{embedFn: func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		mu.Lock()
		seen = append(seen, text)
		mu.Unlock()
		return domain.EmbeddingResult{Embedding: []float32{0}}, nil
	}}
	svc := NewService(inner, 0, 0)

	if _, err := svc.Embed(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 1 || seen[0] != "" {
		t.Errorf("empty text must reach the model, seen %q", seen)
	}
}

func TestService_Failures(t *testing.T) {
	tests := []struct {
		name  string
		inner *mockEmbedder
		dims  int
		cause error
	}{
		{
			name:  "provider error",
			inner: &mockEmbedder{err: domain.ErrEmbeddingProviderError},
			cause: domain.ErrEmbeddingProviderError,
		},
		{
			name:  "dimension mismatch",
			inner: &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}},
			dims:  384,
			cause: domain.ErrVectorDimMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.inner, time.Second, tt.dims).Embed(context.Background(), "x")
			if !errors.Is(err, domain.ErrEmbeddingFailed) {
				t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("expected cause %v to be preserved, got %v", tt.cause, err)
			}
		})
	}
}

func TestService_Timeout(t *testing.T) {
	inner := &mockEmbedder{embedFn: func(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}}
	svc := NewService(inner, 20*time.Millisecond, 0)

	start := time.Now()
	_, err := svc.Embed(context.Background(), "slow")
	if !errors.Is(err, domain.ErrEmbeddingFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout was not applied")
	}
}

func TestService_HealthCheck(t *testing.T) {
	svc := NewService(&mockEmbedder{healthErr: errors.New("down")}, 0, 0)
	if err := svc.HealthCheck(context.Background()); err == nil {
		t.Error("expected delegated health error")
	}
	if err := NewService(plainEmbedder{}, 0, 0).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestService_RecordsUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 7}}
	svc := NewService(inner, 0, 2)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Embed(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Embed(ctx, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usage.Used || usage.TotalTokens != 14 {
		t.Errorf("usage = %+v, want 14 tokens", usage)
	}

	// no collector in context is fine
	if _, err := svc.Embed(context.Background(), "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
