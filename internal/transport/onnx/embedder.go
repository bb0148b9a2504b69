//go:build cgo

package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
)

const provider = "onnx"

// Embedder produces mean-pooled, L2-normalized sentence embeddings.
// Inference is serialized over one pre-allocated session.
type Embedder struct {
	cfg       Config
	tokenizer *WordPiece
	logger    *zap.Logger

	mu            sync.Mutex
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	hidden        *ort.Tensor[float32]
}

// NewEmbedder loads the vocabulary and model and allocates the session tensors.
func NewEmbedder(cfg *Config, logger *zap.Logger) (*Embedder, error) {
	c := cfg.withDefaults()
	if c.ModelPath == "" || c.VocabPath == "" {
		return nil, errors.New("onnx: model path and vocab path are required")
	}

	tok, err := LoadVocab(c.VocabPath)
	if err != nil {
		return nil, err
	}

	if !ort.IsInitialized() {
		if c.LibraryPath != "" {
			ort.SetSharedLibraryPath(c.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	e := &Embedder{cfg: c, tokenizer: tok, logger: logger}
	if err := e.allocate(); err != nil {
		e.Close()
		return nil, err
	}

	logger.Info("ONNX embedder ready",
		zap.String("model_path", c.ModelPath),
		zap.Int("dimensions", c.Dimensions),
		zap.Int("max_tokens", c.MaxTokens),
	)
	return e, nil
}

func (e *Embedder) allocate() error {
	seq := int64(e.cfg.MaxTokens)
	inputShape := ort.NewShape(1, seq)

	var err error
	if e.inputIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return fmt.Errorf("create input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return fmt.Errorf("create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	if e.hidden, err = ort.NewEmptyTensor[float32](ort.NewShape(1, seq, int64(e.cfg.Dimensions))); err != nil {
		return fmt.Errorf("create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		e.cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{e.cfg.OutputName},
		[]ort.ArbitraryTensor{e.inputIDs, e.attentionMask, e.tokenTypeIDs},
		[]ort.ArbitraryTensor{e.hidden},
		nil,
	)
	if err != nil {
		return fmt.Errorf("create onnx session: %w", err)
	}
	return nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	enc := e.tokenizer.Encode(text, e.cfg.MaxTokens)

	start := time.Now()
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return domain.EmbeddingResult{}, fmt.Errorf("onnx session closed: %w", domain.ErrEmbeddingProviderError)
	}
	copy(e.inputIDs.GetData(), enc.InputIDs)
	copy(e.attentionMask.GetData(), enc.AttentionMask)
	copy(e.tokenTypeIDs.GetData(), enc.TokenTypeIDs)
	err := e.session.Run()
	var vec []float32
	if err == nil {
		vec = meanPool(e.hidden.GetData(), enc.AttentionMask, e.cfg.Dimensions)
	}
	e.mu.Unlock()

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.cfg.Model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.cfg.Model, "inference").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("onnx inference: %v: %w", err, domain.ErrEmbeddingProviderError)
	}

	normalizeL2(vec)
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.cfg.Model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.cfg.Model).Observe(time.Since(start).Seconds())
	metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.cfg.Model, "total").Add(float64(enc.Tokens))

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: enc.Tokens,
		TotalTokens:  enc.Tokens,
	}, nil
}

// HealthCheck reports whether the session is still open.
func (e *Embedder) HealthCheck(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return errors.New("onnx session closed")
	}
	return nil
}

// Close destroys the session and its tensors.
func (e *Embedder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			e.logger.Warn("Failed to destroy onnx session", zap.Error(err))
		}
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.attentionMask, e.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.hidden != nil {
		_ = e.hidden.Destroy()
	}
	e.inputIDs, e.attentionMask, e.tokenTypeIDs, e.hidden = nil, nil, nil, nil
}
