package dedup

import (
	"sort"
	"strings"

	"github.com/jackzampolin/brochure/internal/types"
)

// Merge combines two records of the same unit type.
//
// TypeName keeps the cleaner spelling (fewer spaces, then shorter). Unit
// numbers, features, floor plans, and source pages are unioned; unit counts
// are summed; the longer orientation wins; differing prices are averaged.
// Every other field is filled only when empty.
func Merge(a, b types.Unit) types.Unit {
	out := a.Clone()

	out.TypeName = cleanerName(a.TypeName, b.TypeName)
	fillString(&out.Name, b.Name)
	fillString(&out.Category, b.Category)
	fillString(&out.AreaUnit, b.AreaUnit)
	fillString(&out.Tower, b.Tower)
	if out.Area <= 0 {
		out.Area = b.Area
	}
	if out.Bedrooms == nil && b.Bedrooms != nil {
		v := *b.Bedrooms
		out.Bedrooms = &v
	}
	if out.Bathrooms == nil && b.Bathrooms != nil {
		v := *b.Bathrooms
		out.Bathrooms = &v
	}
	if out.ImageMatch == nil && b.ImageMatch != nil {
		m := *b.ImageMatch
		out.ImageMatch = &m
	}

	out.UnitNumbers = unionSorted(a.UnitNumbers, b.UnitNumbers)
	out.Features = unionFold(a.Features, b.Features)
	out.SourcePages = unionInts(a.SourcePages, b.SourcePages)

	if len(strings.TrimSpace(b.Orientation)) > len(strings.TrimSpace(out.Orientation)) {
		out.Orientation = strings.TrimSpace(b.Orientation)
	}

	switch {
	case a.UnitCount != nil && b.UnitCount != nil:
		v := *a.UnitCount + *b.UnitCount
		out.UnitCount = &v
	case b.UnitCount != nil:
		v := *b.UnitCount
		out.UnitCount = &v
	}

	switch {
	case a.Price != nil && b.Price != nil && *a.Price != *b.Price:
		v := (*a.Price + *b.Price) / 2
		out.Price = &v
	case out.Price == nil && b.Price != nil:
		v := *b.Price
		out.Price = &v
	}

	plans := unionOrdered(floorPlans(a), floorPlans(b))
	out.FloorPlanImages = plans
	out.FloorPlanImage = ""
	if len(plans) > 0 {
		out.FloorPlanImage = plans[0]
	}
	return out
}

// cleanerName prefers fewer spaces, then the shorter string, then the
// lexically smaller one.
func cleanerName(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	sa, sb := strings.Count(a, " "), strings.Count(b, " ")
	if sa != sb {
		if sa < sb {
			return a
		}
		return b
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return a
		}
		return b
	}
	if b < a {
		return b
	}
	return a
}

func fillString(dst *string, src string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(src)
	}
}

func floorPlans(u types.Unit) []string {
	var out []string
	if u.FloorPlanImage != "" {
		out = append(out, u.FloorPlanImage)
	}
	return append(out, u.FloorPlanImages...)
}

func unionOrdered(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func unionSorted(a, b []string) []string {
	out := unionOrdered(a, b)
	sort.Strings(out)
	return out
}

// unionFold unions case-insensitively, keeping the first spelling.
func unionFold(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func unionInts(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, v := range append(append([]int(nil), a...), b...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
