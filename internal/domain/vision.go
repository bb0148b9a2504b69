package domain

import "context"

// MaxVisionImages bounds how many images are sent to the description model per request.
const MaxVisionImages = 5

// Describer turns images into a short text description suitable for embedding.
// userText is optional context; empty means describe the images alone.
type Describer interface {
	Describe(ctx context.Context, imageURLs []string, userText string) (string, error)
}
