package types

// BuildingRecord is the canonical record assembled for one document.
// MinPrice/MaxPrice/MinArea/MaxArea are nil when no unit carries the attribute.
type BuildingRecord struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Developer      string `json:"developer,omitempty" yaml:"developer,omitempty"`
	Address        string `json:"address,omitempty" yaml:"address,omitempty"`
	Area           string `json:"area,omitempty" yaml:"area,omitempty"`
	LaunchDate     string `json:"launch_date,omitempty" yaml:"launch_date,omitempty"`
	CompletionDate string `json:"completion_date,omitempty" yaml:"completion_date,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`

	Units        []Unit        `json:"units" yaml:"units"`
	PaymentPlans []PaymentPlan `json:"payment_plans" yaml:"payment_plans"`
	Amenities    []string      `json:"amenities" yaml:"amenities"`
	Images       ImageBag      `json:"images" yaml:"images"`

	MinPrice *float64 `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	MinArea  *float64 `json:"min_area,omitempty" yaml:"min_area,omitempty"`
	MaxArea  *float64 `json:"max_area,omitempty" yaml:"max_area,omitempty"`
}

// ChunkData is the partial building data extracted from one chunk.
type ChunkData struct {
	ChunkIndex   int
	Project      ProjectInfo
	Units        []Unit
	PaymentPlans []PaymentPlan
	Amenities    []string
	Images       []ImageInfo
}
