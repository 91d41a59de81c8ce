package analyzer

import (
	"encoding/json"
	"sort"

	"github.com/jackzampolin/brochure/internal/providers"
)

func nullable(t string, description string) map[string]any {
	return map[string]any{"type": []string{t, "null"}, "description": description}
}

func stringArray(description string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": description}
}

func object(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for k := range properties {
		required = append(required, k)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

var unitSchema = object(map[string]any{
	"category":     map[string]any{"type": "string", "description": "studio, 1br, 2br, 3br, 4br, 5br, penthouse, duplex, townhouse, or villa"},
	"type_name":    nullable("string", "Unit type label exactly as printed"),
	"name":         nullable("string", "Marketing name of the unit, if different from the type label"),
	"bedrooms":     nullable("integer", "Bedroom count; 0 for studios"),
	"bathrooms":    nullable("number", "Bathroom count"),
	"area":         nullable("number", "Total area"),
	"area_unit":    nullable("string", "sqft or sqm"),
	"price":        nullable("number", "Starting price"),
	"unit_numbers": stringArray("Unit numbers of this type"),
	"unit_count":   nullable("integer", "Number of units of this type"),
	"features":     stringArray("Notable features"),
	"orientation":  nullable("string", "View or orientation"),
	"tower":        nullable("string", "Tower or building name"),
})

var milestoneSchema = object(map[string]any{
	"label":      map[string]any{"type": "string"},
	"percentage": map[string]any{"type": "number"},
	"due_date":   nullable("string", "Due date or trigger as printed"),
})

// PageSchema is the JSON schema for page analysis output.
var PageSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "brochure_page",
		"strict": true,
		"schema": object(map[string]any{
			"category": map[string]any{
				"type": "string",
				"enum": []string{"cover", "rendering", "floor_plan", "payment_plan", "location_map", "general_text", "amenities", "unknown"},
			},
			"classification": map[string]any{"type": "string", "description": "Free-text description of what the page shows"},
			"confidence":     map[string]any{"type": "number", "description": "Confidence in the category, 0 to 1"},
			"project": object(map[string]any{
				"name":            nullable("string", "Project name"),
				"developer":       nullable("string", "Developer name"),
				"address":         nullable("string", "Street address"),
				"area":            nullable("string", "District or community"),
				"launch_date":     nullable("string", "Launch date"),
				"completion_date": nullable("string", "Handover or completion date"),
				"description":     nullable("string", "Short project description"),
			}),
			"units": map[string]any{"type": "array", "items": unitSchema},
			"payment_plan": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "null"},
					object(map[string]any{
						"name":       nullable("string", "Plan name"),
						"milestones": map[string]any{"type": "array", "items": milestoneSchema},
					}),
				},
			},
			"amenities":        stringArray("Amenity names"),
			"floor_plan_count": map[string]any{"type": "integer", "description": "Distinct floor plan drawings on the page"},
			"content":          map[string]any{"type": "string", "description": "Short summary of page text"},
		}),
	},
}

var responseFormat = buildResponseFormat()

func buildResponseFormat() *providers.ResponseFormat {
	jsonSchema, _ := json.Marshal(PageSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}
