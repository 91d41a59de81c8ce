package analyzer

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/brochure/internal/providers"
	"github.com/jackzampolin/brochure/internal/types"
)

const floorPlanPage = `{
  "category": "floor_plan",
  "classification": "Floor plan of Type A two bedroom",
  "confidence": 0.92,
  "project": {"name": "Marina Heights", "developer": null, "address": null, "area": "Dubai Marina",
              "launch_date": null, "completion_date": "Q4 2026", "description": null},
  "units": [{
    "category": "2BR", "type_name": " Type A ", "name": null, "bedrooms": 2, "bathrooms": 2.5,
    "area": 1250.5, "area_unit": "sqft", "price": 1800000, "unit_numbers": ["101", " 201 "],
    "unit_count": 2, "features": ["Balcony"], "orientation": "Sea view", "tower": null
  }],
  "payment_plan": {"name": "60/40", "milestones": [
    {"label": "Booking", "percentage": 20, "due_date": "On booking"},
    {"label": "Handover", "percentage": 80, "due_date": null}
  ]},
  "amenities": ["Pool", " "],
  "floor_plan_count": 1,
  "content": "Type A layout"
}`

func TestParseResult(t *testing.T) {
	meta, err := ParseResult(json.RawMessage(floorPlanPage), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, meta.PageNumber)
	assert.Equal(t, types.PageFloorPlan, meta.Category)
	assert.Equal(t, "Dubai Marina", meta.Project.Area)
	assert.Equal(t, "", meta.Project.Developer)
	assert.Equal(t, []string{"Pool"}, meta.Amenities)
	assert.Equal(t, 1, meta.FloorPlanCount)

	require.Len(t, meta.Units, 1)
	u := meta.Units[0]
	assert.Equal(t, "2br", u.Category)
	assert.Equal(t, "Type A", u.TypeName)
	assert.Equal(t, 1250.5, u.Area)
	assert.Equal(t, []string{"101", "201"}, u.UnitNumbers)
	assert.Equal(t, []int{7}, u.SourcePages)
	require.NotNil(t, u.Bedrooms)
	assert.Equal(t, 2, *u.Bedrooms)

	require.NotNil(t, meta.PaymentPlan)
	assert.Equal(t, 7, meta.PaymentPlan.SourcePage)
	assert.Equal(t, 100.0, meta.PaymentPlan.TotalPercentage())
	assert.Equal(t, 1, meta.PaymentPlan.MilestonesWithDates())
}

func TestParseResultEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, meta *types.PageMetadata)
	}{
		{
			name:  "unknown category",
			input: `{"category":"brochure","confidence":1.7}`,
			check: func(t *testing.T, meta *types.PageMetadata) {
				assert.Equal(t, types.PageUnknown, meta.Category)
				assert.Equal(t, 1.0, meta.Confidence)
				assert.Equal(t, "unknown", meta.Classification)
			},
		},
		{
			name:  "empty payment plan dropped",
			input: `{"category":"payment_plan","payment_plan":{"name":"x","milestones":[]}}`,
			check: func(t *testing.T, meta *types.PageMetadata) {
				assert.Nil(t, meta.PaymentPlan)
			},
		},
		{
			name:  "null area unit",
			input: `{"category":"floor_plan","units":[{"category":"studio","area":null,"bedrooms":0}]}`,
			check: func(t *testing.T, meta *types.PageMetadata) {
				require.Len(t, meta.Units, 1)
				assert.Equal(t, 0.0, meta.Units[0].Area)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseResult(json.RawMessage(tt.input), 3)
			require.NoError(t, err)
			tt.check(t, meta)
		})
	}

	_, err := ParseResult(json.RawMessage(`not json`), 1)
	assert.Error(t, err)
}

func TestLLMAnalyzer(t *testing.T) {
	t.Run("analyzes page with image", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ResponseText = floorPlanPage
		a, err := NewLLMAnalyzer(Config{Client: client, Model: "vision-model"})
		require.NoError(t, err)

		var mu sync.Mutex
		var calls []Call
		ctx := WithCallObserver(context.Background(), func(c Call) {
			mu.Lock()
			calls = append(calls, c)
			mu.Unlock()
		})

		meta, err := a.Analyze(ctx, PageRequest{ImageURL: "https://img/p4.jpg", PageNumber: 4, SourceID: "abc"})
		require.NoError(t, err)
		assert.Equal(t, 4, meta.PageNumber)
		assert.Equal(t, []int{4}, meta.Units[0].SourcePages)

		reqs := client.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "vision-model", reqs[0].Model)
		assert.Equal(t, []string{"https://img/p4.jpg"}, reqs[0].Messages[1].ImageURLs)
		assert.True(t, strings.Contains(reqs[0].Messages[1].Content, "page 4"))

		require.Len(t, calls, 1)
		assert.Equal(t, 4, calls[0].PageNumber)
		assert.NoError(t, calls[0].Err)
	})

	t.Run("sends configured temperature", func(t *testing.T) {
		for _, temp := range []float64{0, 0.7} {
			client := providers.NewMockClient()
			client.ResponseText = floorPlanPage
			a, err := NewLLMAnalyzer(Config{Client: client, Temperature: temp})
			require.NoError(t, err)

			_, err = a.Analyze(context.Background(), PageRequest{ImageURL: "https://img/p4.jpg", PageNumber: 4})
			require.NoError(t, err)

			reqs := client.Requests()
			require.Len(t, reqs, 1)
			require.NotNil(t, reqs[0].Temperature)
			assert.Equal(t, temp, *reqs[0].Temperature)
		}
	})

	t.Run("client failure", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ShouldFail = true
		a, err := NewLLMAnalyzer(Config{Client: client})
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), PageRequest{ImageURL: "u", PageNumber: 2})
		assert.Error(t, err)
	})

	t.Run("missing url", func(t *testing.T) {
		a, err := NewLLMAnalyzer(Config{Client: providers.NewMockClient()})
		require.NoError(t, err)
		_, err = a.Analyze(context.Background(), PageRequest{PageNumber: 2})
		assert.Error(t, err)
	})
}

func TestPageSchemaAcceptsFixture(t *testing.T) {
	client := providers.NewMockClient()
	client.ResponseText = floorPlanPage
	res, err := providers.ChatStructured(context.Background(), client, &providers.ChatRequest{
		Messages:       []providers.Message{{Role: "user", Content: "x"}},
		ResponseFormat: responseFormat,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.RequestCount())
	assert.True(t, res.Success)
}
