// Package matcher attaches floor plan images to units that have none.
//
// Strategies run in order of certainty: an image linked to the unit's type on
// its own page, then a floor plan from one of the unit's source pages, then a
// proportional guess over the image list. Every match records which strategy
// produced it so callers can separate certain associations from approximate ones.
package matcher

import (
	"github.com/jackzampolin/brochure/internal/dedup"
	"github.com/jackzampolin/brochure/internal/types"
)

// Stats counts matches per strategy.
type Stats struct {
	Linked       int `json:"linked"`
	Page         int `json:"page"`
	Proportional int `json:"proportional"`
	Unmatched    int `json:"unmatched"`
	Preexisting  int `json:"preexisting"`
}

// Match returns a copy of units with floor plans attached from images.
// Only floor plan images are considered. Units that already carry a floor
// plan are left unchanged.
func Match(units []types.Unit, images []types.ImageInfo) ([]types.Unit, Stats) {
	var stats Stats
	plans := floorPlanImages(images)

	byKey := make(map[string][]types.ImageInfo)
	for _, img := range plans {
		if img.LinkedUnitType == "" {
			continue
		}
		key := dedup.UnitKey(types.Unit{TypeName: img.LinkedUnitType})
		byKey[key] = append(byKey[key], img)
	}

	used := make(map[string]bool)
	out := make([]types.Unit, len(units))
	for i, u := range units {
		out[i] = u.Clone()
		if u.HasFloorPlan() {
			stats.Preexisting++
			for _, url := range u.FloorPlanImages {
				used[url] = true
			}
			used[u.FloorPlanImage] = true
		}
	}

	for i := range out {
		u := &out[i]
		if u.HasFloorPlan() {
			continue
		}

		if linked := byKey[dedup.UnitKey(*u)]; len(linked) > 0 {
			attach(u, linked, types.MatchLinked)
			markUsed(used, linked)
			stats.Linked++
			continue
		}

		if img, ok := pageMatch(u, plans, used); ok {
			attach(u, []types.ImageInfo{img}, types.MatchPage)
			used[img.URL] = true
			stats.Page++
			continue
		}

		if len(plans) > 0 {
			idx := i * len(plans) / len(out)
			attach(u, []types.ImageInfo{plans[idx]}, types.MatchProportional)
			stats.Proportional++
			continue
		}
		stats.Unmatched++
	}
	return out, stats
}

func floorPlanImages(images []types.ImageInfo) []types.ImageInfo {
	var out []types.ImageInfo
	for _, img := range images {
		if img.Category == types.ImageFloorPlan && img.URL != "" {
			out = append(out, img)
		}
	}
	return out
}

// pageMatch finds a floor plan on one of the unit's source pages, preferring
// one not yet given to another unit.
func pageMatch(u *types.Unit, plans []types.ImageInfo, used map[string]bool) (types.ImageInfo, bool) {
	pages := make(map[int]bool, len(u.SourcePages))
	for _, p := range u.SourcePages {
		pages[p] = true
	}

	var fallback *types.ImageInfo
	for i := range plans {
		if !pages[plans[i].PageNumber] {
			continue
		}
		if !used[plans[i].URL] {
			return plans[i], true
		}
		if fallback == nil {
			fallback = &plans[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return types.ImageInfo{}, false
}

func attach(u *types.Unit, images []types.ImageInfo, by types.MatchSource) {
	seen := make(map[string]bool, len(images))
	u.FloorPlanImages = nil
	for _, img := range images {
		if seen[img.URL] {
			continue
		}
		seen[img.URL] = true
		u.FloorPlanImages = append(u.FloorPlanImages, img.URL)
	}
	u.FloorPlanImage = u.FloorPlanImages[0]
	u.ImageMatch = &types.ImageMatch{
		MatchedBy:  by,
		Confidence: types.ConfidenceFor(by),
		PageNumber: images[0].PageNumber,
	}
}

func markUsed(used map[string]bool, images []types.ImageInfo) {
	for _, img := range images {
		used[img.URL] = true
	}
}
