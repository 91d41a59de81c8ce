package dedup

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/jackzampolin/brochure/internal/types"
)

// Deduplicate filters invalid units, merges units sharing a key, assigns
// towers, and sorts the result. The output does not depend on input order,
// and Deduplicate(Deduplicate(x)) equals Deduplicate(x).
func Deduplicate(units []types.Unit) []types.Unit {
	groups := make(map[string][]types.Unit)
	for _, u := range units {
		if !IsValid(u) {
			continue
		}
		key := UnitKey(u)
		groups[key] = append(groups[key], u)
	}

	out := make([]types.Unit, 0, len(groups))
	for _, group := range groups {
		out = append(out, mergeGroup(group))
	}
	SortUnits(out)
	return out
}

// mergeGroup folds same-key units in a canonical order so the result does
// not depend on arrival order. Price is the mean of every priced member.
func mergeGroup(group []types.Unit) types.Unit {
	sort.SliceStable(group, func(i, j int) bool { return canonicalLess(group[i], group[j]) })

	merged := group[0].Clone()
	for _, u := range group[1:] {
		merged = Merge(merged, u)
	}

	var sum float64
	var n int
	for _, u := range group {
		if u.Price != nil {
			sum += *u.Price
			n++
		}
	}
	if n > 0 {
		mean := sum / float64(n)
		merged.Price = &mean
	}

	if merged.Tower == "" {
		merged.Tower = ExtractBuildingGroup(merged.DisplayName())
	}
	return merged
}

func canonicalLess(a, b types.Unit) bool {
	pa, pb := firstPage(a), firstPage(b)
	if pa != pb {
		return pa < pb
	}
	if a.TypeName != b.TypeName {
		return a.TypeName < b.TypeName
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return string(ja) < string(jb)
}

func firstPage(u types.Unit) int {
	if len(u.SourcePages) == 0 {
		return int(^uint(0) >> 1)
	}
	first := u.SourcePages[0]
	for _, p := range u.SourcePages[1:] {
		first = min(first, p)
	}
	return first
}

var bedroomCategory = regexp.MustCompile(`^([1-5])(br|bed|bhk|bedroom)`)

// categoryOrder ranks unit categories: Studio, 1-5 BR, Penthouse, Duplex,
// Townhouse, then everything else.
func categoryOrder(category string) int {
	c := strings.ToLower(category)
	c = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(c)
	switch {
	case c == "studio":
		return 0
	case strings.HasPrefix(c, "penthouse"):
		return 6
	case strings.HasPrefix(c, "duplex"):
		return 7
	case strings.HasPrefix(c, "townhouse"):
		return 8
	}
	if m := bedroomCategory.FindStringSubmatch(c); m != nil {
		return int(m[1][0] - '0')
	}
	return 99
}

// SortUnits orders units by tower (units with a tower first, alphabetically),
// then category, then type name.
func SortUnits(units []types.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		ta, tb := strings.ToLower(a.Tower), strings.ToLower(b.Tower)
		if (ta == "") != (tb == "") {
			return ta != ""
		}
		if ta != tb {
			return ta < tb
		}
		if ca, cb := categoryOrder(a.Category), categoryOrder(b.Category); ca != cb {
			return ca < cb
		}
		na, nb := strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())
		if na != nb {
			return na < nb
		}
		return UnitKey(a) < UnitKey(b)
	})
}
