package mode

// Mode is the input modality of a search query.
type Mode string

// Query modalities.
const (
	Text   Mode = "text"
	Images Mode = "images"
	// Blended carries both text and images; the text is used as vision context.
	Blended Mode = "blended"
	// None has neither text nor images and cannot be resolved.
	None Mode = "none"
)

// Of classifies a query by which inputs are present.
func Of(hasText, hasImages bool) Mode {
	switch {
	case hasText && hasImages:
		return Blended
	case hasImages:
		return Images
	case hasText:
		return Text
	default:
		return None
	}
}

// IsValid checks if the mode is one a resolver can act on.
func (m Mode) IsValid() bool {
	return m == Text || m == Images || m == Blended
}

// UsesVision reports whether resolving the mode involves image description.
func (m Mode) UsesVision() bool {
	return m == Images || m == Blended
}
