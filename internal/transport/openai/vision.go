package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
)

const (
	defaultVisionModel     = "gpt-4o"
	defaultVisionMaxTokens = 100

	visionSystemPrompt = "You are a helpful assistant that generates semantic search descriptions for apartment listings. Follow the prompt format exactly."
	imagesOnlyPrompt   = "In less than 20 words, describe the attached image(s) in a way that would help match other similar apartment images. Focus on aesthetics and design."
	withQueryPrompt    = "Based on these images and the user's query: '%s', generate a concise search description focusing on visual aspects, style, and aesthetic preferences visible in the images. Keep it under 20 words."
)

// Describer turns apartment photos into a short search description via chat completions.
type Describer struct {
	client    *openai.Client
	model     string
	maxTokens int
	maxImages int
	logger    *zap.Logger
}

// NewDescriber creates a vision describer. MaxTokens <= 0 means 100.
func NewDescriber(cfg *Config, maxImages int) *Describer {
	model := cfg.Model
	if model == "" {
		model = defaultVisionModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultVisionMaxTokens
	}
	if maxImages <= 0 {
		maxImages = domain.MaxVisionImages
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Describer{
		client:    newClient(cfg),
		model:     model,
		maxTokens: maxTokens,
		maxImages: maxImages,
		logger:    logger,
	}
}

// Describe implements domain.Describer. Images beyond the limit are dropped silently.
// Every failure, including an empty answer, wraps domain.ErrVisionFailed.
func (d *Describer) Describe(ctx context.Context, imageURLs []string, userText string) (string, error) {
	if len(imageURLs) == 0 {
		return "", fmt.Errorf("no images to describe: %w", domain.ErrVisionFailed)
	}
	if len(imageURLs) > d.maxImages {
		imageURLs = imageURLs[:d.maxImages]
	}

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, d.buildRequest(imageURLs, userText))
	metrics.VisionRequestDuration.WithLabelValues(d.model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(d.model, "error").Inc()
		return "", fmt.Errorf("%w: %w", domain.ErrVisionFailed, parseAPIError("vision", err))
	}

	var answer string
	if len(resp.Choices) > 0 {
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if answer == "" {
		metrics.VisionRequestsTotal.WithLabelValues(d.model, "empty").Inc()
		return "", fmt.Errorf("empty description: %w", domain.ErrVisionFailed)
	}

	metrics.VisionRequestsTotal.WithLabelValues(d.model, "success").Inc()
	d.logger.Debug("Images described",
		zap.Int("images", len(imageURLs)),
		zap.Bool("with_query", userText != ""),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return answer, nil
}

func (d *Describer) buildRequest(imageURLs []string, userText string) openai.ChatCompletionRequest {
	prompt := imagesOnlyPrompt
	if userText = strings.TrimSpace(userText); userText != "" {
		prompt = fmt.Sprintf(withQueryPrompt, userText)
	}

	parts := make([]openai.ChatMessagePart, 0, len(imageURLs)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})
	for _, u := range imageURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: u},
		})
	}

	return openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
}
