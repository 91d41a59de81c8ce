// Package classify assigns image categories to analyzed pages, links floor
// plans to units on the same page, and folds a chunk's pages into ChunkData.
package classify

import (
	"strings"

	"github.com/jackzampolin/brochure/internal/types"
)

var facilityWords = []string{
	"gym", "fitness", "pool", "spa", "sauna", "clubhouse", "club house", "lobby",
	"lounge", "cinema", "playground", "kids", "tennis", "court", "jacuzzi", "reception",
}

var environmentWords = []string{
	"garden", "park", "beach", "landscape", "view", "waterfront", "lake", "green",
	"skyline", "sunset", "marina", "golf",
}

// CategoryFor maps a page classification and its content to an image category.
// It is total and deterministic.
func CategoryFor(classification, content string) types.ImageCategory {
	c := strings.ToLower(classification)
	switch {
	case strings.Contains(c, "floor plan"), strings.Contains(c, "floor_plan"), strings.Contains(c, "floorplan"):
		return types.ImageFloorPlan
	case strings.Contains(c, "rendering"):
		return types.ImageProjectExterior
	case strings.Contains(c, "cover"):
		return types.ImageCover
	case strings.Contains(c, "amenit"):
		return types.ImageAmenity
	case strings.Contains(c, "map"), strings.Contains(c, "location"):
		return types.ImageLocationMap
	}

	text := strings.ToLower(content)
	if containsAny(text, facilityWords) {
		return types.ImageFacility
	}
	if containsAny(text, environmentWords) {
		return types.ImageProjectEnvironment
	}
	return types.ImageOther
}

// PageImageCategory picks the category for a page. The free-text
// classification is tried first, then the page category name, and only then
// the content keywords.
func PageImageCategory(page *types.PageMetadata) types.ImageCategory {
	if cat := CategoryFor(page.Classification, ""); cat != types.ImageOther {
		return cat
	}
	return CategoryFor(strings.ReplaceAll(string(page.Category), "_", " "), page.Content)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
