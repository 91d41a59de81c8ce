package classify

import (
	"sort"
	"strings"

	"github.com/jackzampolin/brochure/internal/types"
)

// BuildChunkData folds the analyzed pages of one chunk into ChunkData.
// Pages are taken in page order; scalar project fields keep the first
// non-empty value and the description keeps the longest.
func BuildChunkData(chunkIndex int, pages []*types.PageMetadata) types.ChunkData {
	ordered := make([]*types.PageMetadata, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PageNumber < ordered[j].PageNumber })

	data := types.ChunkData{ChunkIndex: chunkIndex}
	seenAmenity := make(map[string]bool)

	for _, page := range ordered {
		mergeProject(&data.Project, page.Project)

		for _, u := range page.Units {
			unit := u.Clone()
			if len(unit.SourcePages) == 0 {
				unit.SourcePages = []int{page.PageNumber}
			}
			data.Units = append(data.Units, unit)
		}

		if page.PaymentPlan != nil && len(page.PaymentPlan.Milestones) > 0 {
			plan := *page.PaymentPlan
			plan.Milestones = append([]types.Milestone(nil), page.PaymentPlan.Milestones...)
			if plan.SourcePage == 0 {
				plan.SourcePage = page.PageNumber
			}
			data.PaymentPlans = append(data.PaymentPlans, plan)
		}

		for _, a := range page.Amenities {
			key := strings.ToLower(strings.TrimSpace(a))
			if key == "" || seenAmenity[key] {
				continue
			}
			seenAmenity[key] = true
			data.Amenities = append(data.Amenities, strings.TrimSpace(a))
		}

		data.Images = append(data.Images, PageImages(page)...)
	}
	return data
}

func mergeProject(dst *types.ProjectInfo, src types.ProjectInfo) {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = strings.TrimSpace(s)
		}
	}
	fill(&dst.Name, src.Name)
	fill(&dst.Developer, src.Developer)
	fill(&dst.Address, src.Address)
	fill(&dst.Area, src.Area)
	fill(&dst.LaunchDate, src.LaunchDate)
	fill(&dst.CompletionDate, src.CompletionDate)
	if d := strings.TrimSpace(src.Description); len(d) > len(dst.Description) {
		dst.Description = d
	}
}
