package classify

import (
	"fmt"

	"github.com/jackzampolin/brochure/internal/types"
)

const multipleUnitsNote = "multiple units on this page"

// PageImages builds the categorized images for one page. Floor plan pages
// yield one image per drawing, linked to units where the page makes the
// association unambiguous.
func PageImages(page *types.PageMetadata) []types.ImageInfo {
	if page == nil || page.Images.Original == "" {
		return nil
	}

	category := PageImageCategory(page)
	base := types.ImageInfo{
		PageNumber:  page.PageNumber,
		URL:         page.Images.Original,
		Variants:    page.Images,
		Category:    category,
		Confidence:  types.ConfidenceHigh,
		Description: page.Classification,
	}
	if category != types.ImageFloorPlan {
		return []types.ImageInfo{base}
	}

	count := max(page.FloorPlanCount, 1)
	images := make([]types.ImageInfo, count)
	for i := range images {
		images[i] = base
	}
	LinkFloorPlans(images, page.Units)
	return images
}

// LinkFloorPlans associates floor plan images with the units of the same page.
// One unit takes every image; equal counts pair by index; anything else stays unlinked.
func LinkFloorPlans(images []types.ImageInfo, units []types.Unit) {
	switch {
	case len(images) == 0:
		return
	case len(units) == 1:
		for i := range images {
			link(&images[i], units[0], types.MatchSingleUnit)
		}
	case len(units) > 0 && len(images) == len(units):
		for i := range images {
			link(&images[i], units[i], types.MatchPositional)
		}
	default:
		for i := range images {
			images[i].LinkedUnitType = ""
			images[i].MatchedBy = types.MatchUnlinked
			images[i].Confidence = types.ConfidenceFor(types.MatchUnlinked)
			if len(units) > 1 {
				images[i].Description = multipleUnitsNote
			}
		}
	}
}

func link(img *types.ImageInfo, unit types.Unit, by types.MatchSource) {
	img.LinkedUnitType = unit.DisplayName()
	img.MatchedBy = by
	img.Confidence = types.ConfidenceFor(by)
	if img.LinkedUnitType != "" {
		img.Description = fmt.Sprintf("floor plan for %s", img.LinkedUnitType)
	}
}
