// Package aggregate accumulates per-chunk data into one building record and
// finalizes it.
package aggregate

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jackzampolin/brochure/internal/dedup"
	"github.com/jackzampolin/brochure/internal/matcher"
	"github.com/jackzampolin/brochure/internal/types"
)

// scalar is a project field together with the chunk that set it.
type scalar struct {
	value string
	chunk int
	set   bool
}

// offer applies first-in-document-order: the value from the lowest chunk
// index wins, whatever order chunks arrive in.
func (s *scalar) offer(value string, chunk int) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !s.set || chunk < s.chunk {
		*s = scalar{value: value, chunk: chunk, set: true}
	}
}

// offerLonger keeps the longest value; ties go to the lower chunk index.
func (s *scalar) offerLonger(value string, chunk int) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !s.set || len(value) > len(s.value) || (len(value) == len(s.value) && chunk < s.chunk) {
		*s = scalar{value: value, chunk: chunk, set: true}
	}
}

type sourcedUnit struct {
	chunk int
	unit  types.Unit
}

type sourcedPlan struct {
	chunk int
	plan  types.PaymentPlan
}

type sourcedImage struct {
	chunk int
	image types.ImageInfo
}

type amenity struct {
	name  string
	chunk int
	pos   int
}

// Aggregator holds the running record of one document.
// It is safe for concurrent Merge calls.
type Aggregator struct {
	mu sync.Mutex

	name, developer, address, area   scalar
	launchDate, completionDate, desc scalar

	units     []sourcedUnit
	plans     []sourcedPlan
	images    []sourcedImage
	amenities map[string]amenity

	chunks map[int]bool
	logger *slog.Logger
}

// New creates an empty aggregator.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		amenities: make(map[string]amenity),
		chunks:    make(map[int]bool),
		logger:    logger,
	}
}

// Merge folds one chunk's data into the running record.
func (a *Aggregator) Merge(data types.ChunkData) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := data.ChunkIndex
	if a.chunks[c] {
		a.logger.Warn("chunk merged twice", "chunk", c)
	}
	a.chunks[c] = true

	p := data.Project
	a.name.offer(p.Name, c)
	a.developer.offer(p.Developer, c)
	a.address.offer(p.Address, c)
	a.area.offer(p.Area, c)
	a.launchDate.offer(p.LaunchDate, c)
	a.completionDate.offer(p.CompletionDate, c)
	a.desc.offerLonger(p.Description, c)

	for _, u := range data.Units {
		a.units = append(a.units, sourcedUnit{chunk: c, unit: u.Clone()})
	}
	for _, pl := range data.PaymentPlans {
		pl.Milestones = append([]types.Milestone(nil), pl.Milestones...)
		a.plans = append(a.plans, sourcedPlan{chunk: c, plan: pl})
	}
	for _, img := range data.Images {
		a.images = append(a.images, sourcedImage{chunk: c, image: img})
	}
	for i, name := range data.Amenities {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if key == "" {
			continue
		}
		existing, ok := a.amenities[key]
		if !ok || c < existing.chunk {
			a.amenities[key] = amenity{name: name, chunk: c, pos: i}
		}
	}

	a.logger.Debug("chunk merged",
		"chunk", c,
		"units", len(data.Units),
		"plans", len(data.PaymentPlans),
		"images", len(data.Images))
}

// Summary describes what Finalize did.
type Summary struct {
	ChunksMerged int           `json:"chunks_merged"`
	UnitsIn      int           `json:"units_in"`
	UnitsOut     int           `json:"units_out"`
	PlansIn      int           `json:"plans_in"`
	Images       int           `json:"images"`
	Matches      matcher.Stats `json:"matches"`
}

// Finalize produces the canonical record: units are deduplicated and sorted,
// one payment plan is selected, floor plans are matched to units, and
// price/area ranges are computed. It does not modify the aggregator.
func (a *Aggregator) Finalize() (types.BuildingRecord, Summary) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := types.BuildingRecord{
		Name:           a.name.value,
		Developer:      a.developer.value,
		Address:        a.address.value,
		Area:           a.area.value,
		LaunchDate:     a.launchDate.value,
		CompletionDate: a.completionDate.value,
		Description:    a.desc.value,
		Images: types.ImageBag{
			ProjectImages:   []types.ImageInfo{},
			FloorPlanImages: []types.ImageInfo{},
			AllImages:       []types.ImageInfo{},
		},
	}

	units := make([]types.Unit, 0, len(a.units))
	for _, su := range a.units {
		units = append(units, su.unit.Clone())
	}
	units = dedup.Deduplicate(units)

	plans := append([]sourcedPlan(nil), a.plans...)
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].chunk != plans[j].chunk {
			return plans[i].chunk < plans[j].chunk
		}
		return plans[i].plan.SourcePage < plans[j].plan.SourcePage
	})
	ordered := make([]types.PaymentPlan, len(plans))
	for i, p := range plans {
		ordered[i] = p.plan
	}
	rec.PaymentPlans = dedup.SelectPaymentPlan(ordered)
	if rec.PaymentPlans == nil {
		rec.PaymentPlans = []types.PaymentPlan{}
	}

	images := append([]sourcedImage(nil), a.images...)
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].image.PageNumber != images[j].image.PageNumber {
			return images[i].image.PageNumber < images[j].image.PageNumber
		}
		return images[i].chunk < images[j].chunk
	})
	all := make([]types.ImageInfo, len(images))
	for i, si := range images {
		all[i] = si.image
		rec.Images.Add(si.image)
	}

	var stats matcher.Stats
	rec.Units, stats = matcher.Match(units, all)
	rec.Amenities = a.sortedAmenities()
	rec.MinPrice, rec.MaxPrice, rec.MinArea, rec.MaxArea = ranges(rec.Units)

	return rec, Summary{
		ChunksMerged: len(a.chunks),
		UnitsIn:      len(a.units),
		UnitsOut:     len(rec.Units),
		PlansIn:      len(a.plans),
		Images:       len(all),
		Matches:      stats,
	}
}

func (a *Aggregator) sortedAmenities() []string {
	list := make([]amenity, 0, len(a.amenities))
	for _, am := range a.amenities {
		list = append(list, am)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].chunk != list[j].chunk {
			return list[i].chunk < list[j].chunk
		}
		if list[i].pos != list[j].pos {
			return list[i].pos < list[j].pos
		}
		return list[i].name < list[j].name
	})
	out := make([]string, len(list))
	for i, am := range list {
		out[i] = am.name
	}
	return out
}

// ranges computes min/max over units that carry the attribute; nil when none do.
func ranges(units []types.Unit) (minPrice, maxPrice, minArea, maxArea *float64) {
	for _, u := range units {
		if u.Price != nil {
			minPrice = lower(minPrice, *u.Price)
			maxPrice = higher(maxPrice, *u.Price)
		}
		if u.Area > 0 {
			minArea = lower(minArea, u.Area)
			maxArea = higher(maxArea, u.Area)
		}
	}
	return
}

func lower(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}

func higher(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}
