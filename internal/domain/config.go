package domain

// KeyPrefix namespaces every key vibesearch reads or writes in the KV store.
const KeyPrefix = "vibesearch:"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	MaxTokens      int
	DistanceMetric string
}

// DefaultVectorConfig returns the configuration the listing and image indexes were built with.
// Query vectors are only comparable to index vectors produced by the same model.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "sentence-transformers/all-MiniLM-L6-v2",
		Dimensions:     384,
		MaxTokens:      256,
		DistanceMetric: "cosine",
	}
}
