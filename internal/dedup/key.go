// Package dedup canonicalizes units extracted from many pages: it derives a
// stable identity key, drops summary rows, merges duplicates, assigns towers,
// sorts, and selects the most complete payment plan.
package dedup

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jackzampolin/brochure/internal/types"
)

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)
	typePrefix    = regexp.MustCompile(`(?i)^type\s+`)
	spacedDash    = regexp.MustCompile(`\s*-\s*`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// UnitKey derives the identity of a unit. It uses TypeName, then Name, then
// "<category>_<area>sqft", normalized so that spelling variants of one type
// share a key: "DSTH - M1", "dsth-m1", and "DSTH-M1 (4 BR - MID UNIT)" all
// yield "DSTH-M1".
func UnitKey(u types.Unit) string {
	for _, candidate := range []string{u.TypeName, u.Name} {
		if key := normalizeKey(candidate); key != "" {
			return key
		}
	}
	category := strings.TrimSpace(u.Category)
	if category == "" {
		category = "unit"
	}
	return normalizeKey(fmt.Sprintf("%s_%dsqft", category, int64(math.Round(u.Area))))
}

func normalizeKey(s string) string {
	s = parenthetical.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = typePrefix.ReplaceAllString(s, "")
	s = spacedDash.ReplaceAllString(s, "-")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.ToUpper(s)
}

var summaryWords = []string{"overall", "summary", "total"}

// IsValid reports whether u describes a real unit type. Summary rows,
// entries without a positive area, and entries without a bedroom count are invalid.
func IsValid(u types.Unit) bool {
	if u.Area <= 0 || u.Bedrooms == nil {
		return false
	}
	name := strings.ToLower(u.TypeName + " " + u.Name)
	for _, w := range summaryWords {
		if strings.Contains(name, w) {
			return false
		}
	}
	return true
}

var (
	towerPrefix = regexp.MustCompile(`^([A-Z])-\d`)
	lowRise     = regexp.MustCompile(`(?i)villa|-V\d|townhouse|TH-\d`)
)

// ExtractBuildingGroup derives a tower from a type name of the form
// "A-1B-A.1" ("Tower A"). Villas and townhouses never get a tower.
func ExtractBuildingGroup(typeName string) string {
	name := strings.TrimSpace(typeName)
	if name == "" || lowRise.MatchString(name) {
		return ""
	}
	m := towerPrefix.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return "Tower " + m[1]
}
