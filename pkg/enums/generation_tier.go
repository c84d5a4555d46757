package enums

import "fmt"

// GenerationTier is the quality tier an asset was generated at. Sketches are cheap drafts and always eligible for compression.
type GenerationTier string

const (
	GenerationTierSketch GenerationTier = "SKETCH"
	GenerationTierRender GenerationTier = "RENDER"
)

var validGenerationTiers = []GenerationTier{
	GenerationTierSketch,
	GenerationTierRender,
}

// String implements fmt.Stringer.
func (g GenerationTier) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GenerationTier.
func (g GenerationTier) IsValid() bool {
	for _, candidate := range validGenerationTiers {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGenerationTier converts raw input into a GenerationTier.
func ParseGenerationTier(value string) (GenerationTier, error) {
	for _, candidate := range validGenerationTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation tier %q", value)
}
