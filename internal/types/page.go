package types

// PageCategory is the classification assigned to a page by the page analyzer.
type PageCategory string

const (
	PageCover       PageCategory = "cover"
	PageRendering   PageCategory = "rendering"
	PageFloorPlan   PageCategory = "floor_plan"
	PagePaymentPlan PageCategory = "payment_plan"
	PageLocationMap PageCategory = "location_map"
	PageGeneralText PageCategory = "general_text"
	PageAmenities   PageCategory = "amenities"
	PageUnknown     PageCategory = "unknown"
)

// PageCategories lists every valid page category.
var PageCategories = []PageCategory{
	PageCover, PageRendering, PageFloorPlan, PagePaymentPlan,
	PageLocationMap, PageGeneralText, PageAmenities, PageUnknown,
}

// ParsePageCategory normalizes a classification string into a PageCategory.
// Unrecognized values map to PageUnknown.
func ParsePageCategory(s string) PageCategory {
	for _, c := range PageCategories {
		if string(c) == s {
			return c
		}
	}
	return PageUnknown
}

// ProjectInfo holds the scalar project fields a single page may reveal.
type ProjectInfo struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Developer      string `json:"developer,omitempty" yaml:"developer,omitempty"`
	Address        string `json:"address,omitempty" yaml:"address,omitempty"`
	Area           string `json:"area,omitempty" yaml:"area,omitempty"`
	LaunchDate     string `json:"launch_date,omitempty" yaml:"launch_date,omitempty"`
	CompletionDate string `json:"completion_date,omitempty" yaml:"completion_date,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PageMetadata is the immutable analysis result for one page.
type PageMetadata struct {
	PageNumber     int          `json:"page_number" yaml:"page_number"`
	Category       PageCategory `json:"category" yaml:"category"`
	Classification string       `json:"classification,omitempty" yaml:"classification,omitempty"`
	Confidence     float64      `json:"confidence" yaml:"confidence"`
	Project        ProjectInfo  `json:"project" yaml:"project"`
	Units          []Unit       `json:"units,omitempty" yaml:"units,omitempty"`
	PaymentPlan    *PaymentPlan `json:"payment_plan,omitempty" yaml:"payment_plan,omitempty"`
	Amenities      []string     `json:"amenities,omitempty" yaml:"amenities,omitempty"`
	// FloorPlanCount is the number of distinct floor-plan drawings on the page.
	FloorPlanCount int        `json:"floor_plan_count,omitempty" yaml:"floor_plan_count,omitempty"`
	Content        string     `json:"content,omitempty" yaml:"content,omitempty"`
	Images         VariantSet `json:"images" yaml:"images"`
}
