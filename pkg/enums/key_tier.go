package enums

import "fmt"

// KeyTier records whether a generation was billed against a free or a paid key.
type KeyTier string

const (
	KeyTierFree KeyTier = "FREE"
	KeyTierPaid KeyTier = "PAID"
)

var validKeyTiers = []KeyTier{
	KeyTierFree,
	KeyTierPaid,
}

// String implements fmt.Stringer.
func (k KeyTier) String() string {
	return string(k)
}

// IsValid reports whether the value is a known KeyTier.
func (k KeyTier) IsValid() bool {
	for _, candidate := range validKeyTiers {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKeyTier converts raw input into a KeyTier.
func ParseKeyTier(value string) (KeyTier, error) {
	for _, candidate := range validKeyTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid key tier %q", value)
}
