package enums

import "fmt"

// WorkspaceKind names the studio surface a preset belongs to.
type WorkspaceKind string

const (
	WorkspaceStudio WorkspaceKind = "STUDIO"
	WorkspaceInfluencer WorkspaceKind = "INFLUENCER"
	WorkspaceMotion WorkspaceKind = "MOTION"
)

var validWorkspaceKinds = []WorkspaceKind{
	WorkspaceStudio,
	WorkspaceInfluencer,
	WorkspaceMotion,
}

// String implements fmt.Stringer.
func (w WorkspaceKind) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WorkspaceKind.
func (w WorkspaceKind) IsValid() bool {
	for _, candidate := range validWorkspaceKinds {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWorkspaceKind converts raw input into a WorkspaceKind.
func ParseWorkspaceKind(value string) (WorkspaceKind, error) {
	for _, candidate := range validWorkspaceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workspace %q", value)
}
