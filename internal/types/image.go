package types

// Variant names one of the fixed resolutions of a rendered page.
type Variant string

const (
	VariantOriginal  Variant = "original"
	VariantLarge     Variant = "large"
	VariantMedium    Variant = "medium"
	VariantThumbnail Variant = "thumbnail"
)

// AllVariants lists every variant a complete VariantSet must carry.
var AllVariants = []Variant{VariantOriginal, VariantLarge, VariantMedium, VariantThumbnail}

// VariantSet holds the retrievable URL of each variant of one page.
type VariantSet struct {
	Original  string `json:"original" yaml:"original"`
	Large     string `json:"large" yaml:"large"`
	Medium    string `json:"medium" yaml:"medium"`
	Thumbnail string `json:"thumbnail" yaml:"thumbnail"`
}

// Get returns the URL for a variant.
func (v VariantSet) Get(name Variant) string {
	switch name {
	case VariantOriginal:
		return v.Original
	case VariantLarge:
		return v.Large
	case VariantMedium:
		return v.Medium
	case VariantThumbnail:
		return v.Thumbnail
	}
	return ""
}

// Set stores the URL for a variant.
func (v *VariantSet) Set(name Variant, url string) {
	switch name {
	case VariantOriginal:
		v.Original = url
	case VariantLarge:
		v.Large = url
	case VariantMedium:
		v.Medium = url
	case VariantThumbnail:
		v.Thumbnail = url
	}
}

// Complete reports whether all four variants are present.
func (v VariantSet) Complete() bool {
	for _, name := range AllVariants {
		if v.Get(name) == "" {
			return false
		}
	}
	return true
}

// ImageCategory classifies an image for the final record.
type ImageCategory string

const (
	ImageFloorPlan          ImageCategory = "floor_plan"
	ImageUnitRendering      ImageCategory = "unit_rendering"
	ImageProjectExterior    ImageCategory = "project_exterior"
	ImageProjectEnvironment ImageCategory = "project_environment"
	ImageFacility           ImageCategory = "facility"
	ImageLocationMap        ImageCategory = "location_map"
	ImageAmenity            ImageCategory = "amenity"
	ImageCover              ImageCategory = "cover"
	ImageOther              ImageCategory = "other"
)

// IsProjectImage reports whether images of this category describe the project as a whole.
func (c ImageCategory) IsProjectImage() bool {
	switch c {
	case ImageProjectExterior, ImageProjectEnvironment, ImageFacility, ImageAmenity, ImageCover, ImageLocationMap:
		return true
	default:
		return false
	}
}

// ImageInfo describes one categorized image taken from a page.
type ImageInfo struct {
	PageNumber     int             `json:"page_number" yaml:"page_number"`
	URL            string          `json:"url" yaml:"url"`
	Variants       VariantSet      `json:"variants" yaml:"variants"`
	Category       ImageCategory   `json:"category" yaml:"category"`
	LinkedUnitType string          `json:"linked_unit_type,omitempty" yaml:"linked_unit_type,omitempty"`
	Confidence     ConfidenceLevel `json:"confidence" yaml:"confidence"`
	MatchedBy      MatchSource     `json:"matched_by,omitempty" yaml:"matched_by,omitempty"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// ImageBag groups the images collected for a building.
type ImageBag struct {
	ProjectImages   []ImageInfo `json:"project_images" yaml:"project_images"`
	FloorPlanImages []ImageInfo `json:"floor_plan_images" yaml:"floor_plan_images"`
	AllImages       []ImageInfo `json:"all_images" yaml:"all_images"`
}

// Add files an image into AllImages and its category bucket.
func (b *ImageBag) Add(img ImageInfo) {
	b.AllImages = append(b.AllImages, img)
	switch {
	case img.Category == ImageFloorPlan:
		b.FloorPlanImages = append(b.FloorPlanImages, img)
	case img.Category.IsProjectImage():
		b.ProjectImages = append(b.ProjectImages, img)
	}
}
