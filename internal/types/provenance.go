// Package types provides shared types used across multiple packages.
// This package has no dependencies on other brochure packages to avoid import cycles.
package types

// MatchSource indicates how an image was associated with a unit.
type MatchSource string

const (
	// MatchLinked indicates the page analysis linked the image to a unit type directly.
	MatchLinked MatchSource = "linked"
	// MatchSingleUnit indicates the page had exactly one unit, so every floor plan on it belongs to that unit.
	MatchSingleUnit MatchSource = "single_unit"
	// MatchPositional indicates index-aligned pairing of floor plans and units on one page.
	MatchPositional MatchSource = "positional"
	// MatchPage indicates the image came from one of the unit's source pages.
	MatchPage MatchSource = "page"
	// MatchProportional indicates the approximate proportional fallback was used.
	MatchProportional MatchSource = "proportional"
	// MatchUnlinked indicates no association could be made.
	MatchUnlinked MatchSource = "unlinked"
)

// IsApproximate reports whether the association is a best-effort guess.
func (s MatchSource) IsApproximate() bool {
	switch s {
	case MatchProportional, MatchUnlinked:
		return true
	default:
		return false
	}
}

// ConfidenceLevel indicates the confidence of an association.
type ConfidenceLevel string

const (
	// ConfidenceHigh indicates high confidence in the association.
	ConfidenceHigh ConfidenceLevel = "high"
	// ConfidenceMedium indicates medium confidence in the association.
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceLow indicates low confidence in the association.
	ConfidenceLow ConfidenceLevel = "low"
)

// ConfidenceFor returns the confidence conventionally attached to a match source.
func ConfidenceFor(s MatchSource) ConfidenceLevel {
	switch s {
	case MatchLinked, MatchSingleUnit:
		return ConfidenceHigh
	case MatchPositional, MatchPage:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ParseConfidenceLevel converts a string to a ConfidenceLevel.
// Returns ConfidenceLow if the string is not recognized.
func ParseConfidenceLevel(s string) ConfidenceLevel {
	switch s {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
