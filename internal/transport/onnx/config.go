// Package onnx runs a sentence-transformers MiniLM model in-process through ONNX Runtime.
package onnx

import "github.com/kailas-cloud/vibesearch/internal/domain"

// Config holds the local model settings.
type Config struct {
	ModelPath   string
	VocabPath   string
	LibraryPath string // onnxruntime shared library; empty uses the platform default
	OutputName  string // defaults to last_hidden_state
	Model       string // label for metrics
	Dimensions  int
	MaxTokens   int
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.OutputName == "" {
		out.OutputName = "last_hidden_state"
	}
	if out.Model == "" {
		out.Model = "all-MiniLM-L6-v2"
	}
	def := domain.DefaultVectorConfig()
	if out.Dimensions <= 0 {
		out.Dimensions = def.Dimensions
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = def.MaxTokens
	}
	return out
}
