// Package resolver turns a text and/or image query into one vector.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/logger"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
)

// Strategy names, also used as metric labels.
const (
	StrategyVision = "vision"
	StrategyText   = "text"
)

type query struct {
	text   string
	images []string
}

// strategy is one way of producing a vector. Strategies run in order until one succeeds.
type strategy struct {
	name    string
	applies func(q query) bool
	resolve func(ctx context.Context, q query) ([]float32, error)
}

// Config tunes the vision step.
type Config struct {
	VisionTimeout time.Duration
	MaxImages     int
}

// Resolver picks the first strategy that yields a vector.
type Resolver struct {
	embed      Embedder
	describe   Describer
	cfg        Config
	strategies []strategy
}

// New creates a Resolver. describe may be nil, which disables image queries.
func New(embed Embedder, describe Describer, cfg Config) *Resolver {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = domain.MaxVisionImages
	}
	r := &Resolver{embed: embed, describe: describe, cfg: cfg}
	r.strategies = []strategy{
		{
			name:    StrategyVision,
			applies: func(q query) bool { return len(q.images) > 0 && r.describe != nil },
			resolve: r.resolveVision,
		},
		{
			name:    StrategyText,
			applies: func(q query) bool { return q.text != "" },
			resolve: r.resolveText,
		},
	}
	return r
}

// Resolve returns the query vector. Images, when present, are described first and the
// description is embedded (prefixed by the text when both are given). If that fails the
// text alone is embedded. With nothing left to try the error wraps domain.ErrQueryUnresolvable.
func (r *Resolver) Resolve(ctx context.Context, text string, imageRefs []string) ([]float32, error) {
	q := query{text: strings.TrimSpace(text), images: imageRefs}
	log := logger.FromContext(ctx)

	var lastErr error
	for _, s := range r.strategies {
		if !s.applies(q) {
			continue
		}
		vec, err := s.resolve(ctx, q)
		if err == nil {
			metrics.ResolverStrategyTotal.WithLabelValues(s.name, "success").Inc()
			return vec, nil
		}
		metrics.ResolverStrategyTotal.WithLabelValues(s.name, "failed").Inc()
		log.Warn("Query strategy failed",
			zap.String("strategy", s.name),
			zap.Int("images", len(q.images)),
			zap.Bool("has_text", q.text != ""),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no strategy applies")
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrQueryUnresolvable, lastErr)
}

func (r *Resolver) resolveVision(ctx context.Context, q query) ([]float32, error) {
	images := q.images
	if len(images) > r.cfg.MaxImages {
		images = images[:r.cfg.MaxImages]
	}

	desc, err := r.describeWithTimeout(ctx, images, q.text)
	if err != nil {
		return nil, err
	}

	combined := desc
	if q.text != "" {
		combined = q.text + " " + desc
	}
	return r.embed.Embed(ctx, combined) //nolint:wrapcheck // already wrapped by the embedding service
}

func (r *Resolver) describeWithTimeout(ctx context.Context, images []string, text string) (string, error) {
	if r.cfg.VisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.VisionTimeout)
		defer cancel()
	}

	desc, err := r.describe.Describe(ctx, images, text)
	if err != nil {
		if errors.Is(err, domain.ErrVisionFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrVisionFailed, err)
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", fmt.Errorf("empty description: %w", domain.ErrVisionFailed)
	}
	return desc, nil
}

func (r *Resolver) resolveText(ctx context.Context, q query) ([]float32, error) {
	return r.embed.Embed(ctx, q.text) //nolint:wrapcheck // already wrapped by the embedding service
}
