package types

import "strings"

// Unit is one unit type offered by a project.
// Identity is derived from TypeName/Category/Area by the dedup package, never assigned.
type Unit struct {
	Category        string      `json:"category" yaml:"category"`
	TypeName        string      `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	Name            string      `json:"name,omitempty" yaml:"name,omitempty"`
	Bedrooms        *int        `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms       *float64    `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	Area            float64     `json:"area" yaml:"area"`
	AreaUnit        string      `json:"area_unit,omitempty" yaml:"area_unit,omitempty"`
	Price           *float64    `json:"price,omitempty" yaml:"price,omitempty"`
	UnitNumbers     []string    `json:"unit_numbers,omitempty" yaml:"unit_numbers,omitempty"`
	UnitCount       *int        `json:"unit_count,omitempty" yaml:"unit_count,omitempty"`
	Features        []string    `json:"features,omitempty" yaml:"features,omitempty"`
	Orientation     string      `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	FloorPlanImage  string      `json:"floor_plan_image,omitempty" yaml:"floor_plan_image,omitempty"`
	FloorPlanImages []string    `json:"floor_plan_images,omitempty" yaml:"floor_plan_images,omitempty"`
	Tower           string      `json:"tower,omitempty" yaml:"tower,omitempty"`
	SourcePages     []int       `json:"source_pages,omitempty" yaml:"source_pages,omitempty"`
	ImageMatch      *ImageMatch `json:"image_match,omitempty" yaml:"image_match,omitempty"`
}

// ImageMatch records how a unit's floor plan was chosen.
type ImageMatch struct {
	MatchedBy  MatchSource     `json:"matched_by" yaml:"matched_by"`
	Confidence ConfidenceLevel `json:"confidence" yaml:"confidence"`
	PageNumber int             `json:"page_number,omitempty" yaml:"page_number,omitempty"`
}

// DisplayName returns TypeName, falling back to Name.
func (u Unit) DisplayName() string {
	if strings.TrimSpace(u.TypeName) != "" {
		return u.TypeName
	}
	return u.Name
}

// HasFloorPlan reports whether any floor plan image is attached.
func (u Unit) HasFloorPlan() bool {
	return u.FloorPlanImage != "" || len(u.FloorPlanImages) > 0
}

// Clone returns a deep copy of the unit.
func (u Unit) Clone() Unit {
	c := u
	if u.Bedrooms != nil {
		v := *u.Bedrooms
		c.Bedrooms = &v
	}
	if u.Bathrooms != nil {
		v := *u.Bathrooms
		c.Bathrooms = &v
	}
	if u.Price != nil {
		v := *u.Price
		c.Price = &v
	}
	if u.UnitCount != nil {
		v := *u.UnitCount
		c.UnitCount = &v
	}
	if u.ImageMatch != nil {
		m := *u.ImageMatch
		c.ImageMatch = &m
	}
	c.UnitNumbers = append([]string(nil), u.UnitNumbers...)
	c.Features = append([]string(nil), u.Features...)
	c.FloorPlanImages = append([]string(nil), u.FloorPlanImages...)
	c.SourcePages = append([]int(nil), u.SourcePages...)
	return c
}

// Milestone is one installment of a payment plan.
type Milestone struct {
	Label      string  `json:"label" yaml:"label"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	DueDate    string  `json:"due_date,omitempty" yaml:"due_date,omitempty"`
}

// PaymentPlan is a schedule of milestones.
type PaymentPlan struct {
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Milestones []Milestone `json:"milestones" yaml:"milestones"`
	SourcePage int         `json:"source_page,omitempty" yaml:"source_page,omitempty"`
	// Score is the completeness score assigned when the plan was selected.
	Score int `json:"score,omitempty" yaml:"score,omitempty"`
}

// TotalPercentage sums the milestone percentages.
func (p PaymentPlan) TotalPercentage() float64 {
	total := 0.0
	for _, m := range p.Milestones {
		total += m.Percentage
	}
	return total
}

// MilestonesWithDates counts milestones that carry a due date.
func (p PaymentPlan) MilestonesWithDates() int {
	n := 0
	for _, m := range p.Milestones {
		if strings.TrimSpace(m.DueDate) != "" {
			n++
		}
	}
	return n
}
