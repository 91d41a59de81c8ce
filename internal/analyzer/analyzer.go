// Package analyzer turns one rendered page image into structured page metadata.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/brochure/internal/providers"
	"github.com/jackzampolin/brochure/internal/types"
)

// PageRequest identifies one page image to analyze.
type PageRequest struct {
	ImageURL   string
	PageNumber int
	SourceID   string
}

// PageAnalyzer classifies a page and extracts its data.
// Implementations must be safe for concurrent use.
type PageAnalyzer interface {
	Analyze(ctx context.Context, req PageRequest) (*types.PageMetadata, error)
}

// Call describes one model call made while analyzing a page.
type Call struct {
	PageNumber int
	SourceID   string
	Result     *providers.ChatResult
	Err        error
}

type observerKey struct{}

// WithCallObserver returns a context whose analyzer calls are reported to fn.
func WithCallObserver(ctx context.Context, fn func(Call)) context.Context {
	return context.WithValue(ctx, observerKey{}, fn)
}

func observe(ctx context.Context, call Call) {
	if fn, ok := ctx.Value(observerKey{}).(func(Call)); ok && fn != nil {
		fn(call)
	}
}

// Config configures an LLMAnalyzer.
type Config struct {
	Client      providers.LLMClient
	Model       string
	MaxTokens   int
	// Temperature is sent as configured, including zero.
	Temperature float64
	Logger      *slog.Logger
}

// LLMAnalyzer analyzes pages with a vision-capable chat model.
type LLMAnalyzer struct {
	client      providers.LLMClient
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewLLMAnalyzer creates an analyzer.
func NewLLMAnalyzer(cfg Config) (*LLMAnalyzer, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLMAnalyzer{
		client:      cfg.Client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}, nil
}

// Analyze sends the page image to the model and parses the structured answer.
func (a *LLMAnalyzer) Analyze(ctx context.Context, req PageRequest) (*types.PageMetadata, error) {
	if req.ImageURL == "" {
		return nil, fmt.Errorf("page %d: image URL is required", req.PageNumber)
	}

	temperature := a.temperature
	chatReq := &providers.ChatRequest{
		Model: a.model,
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(req), ImageURLs: []string{req.ImageURL}},
		},
		ResponseFormat: responseFormat,
		Temperature:    &temperature,
		MaxTokens:      a.maxTokens,
	}

	result, err := providers.ChatStructured(ctx, a.client, chatReq)
	observe(ctx, Call{PageNumber: req.PageNumber, SourceID: req.SourceID, Result: result, Err: err})
	if err != nil {
		return nil, fmt.Errorf("page %d: analysis failed: %w", req.PageNumber, err)
	}

	meta, err := ParseResult(result.ParsedJSON, req.PageNumber)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", req.PageNumber, err)
	}

	a.logger.Debug("page analyzed",
		"page", req.PageNumber,
		"category", meta.Category,
		"units", len(meta.Units),
		"floor_plans", meta.FloorPlanCount)
	return meta, nil
}

// pageResponse mirrors PageSchema.
type pageResponse struct {
	Category       string  `json:"category"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Project        struct {
		Name           *string `json:"name"`
		Developer      *string `json:"developer"`
		Address        *string `json:"address"`
		Area           *string `json:"area"`
		LaunchDate     *string `json:"launch_date"`
		CompletionDate *string `json:"completion_date"`
		Description    *string `json:"description"`
	} `json:"project"`
	Units       []unitResponse `json:"units"`
	PaymentPlan *struct {
		Name       *string `json:"name"`
		Milestones []struct {
			Label      string  `json:"label"`
			Percentage float64 `json:"percentage"`
			DueDate    *string `json:"due_date"`
		} `json:"milestones"`
	} `json:"payment_plan"`
	Amenities      []string `json:"amenities"`
	FloorPlanCount int      `json:"floor_plan_count"`
	Content        string   `json:"content"`
}

type unitResponse struct {
	Category    string   `json:"category"`
	TypeName    *string  `json:"type_name"`
	Name        *string  `json:"name"`
	Bedrooms    *int     `json:"bedrooms"`
	Bathrooms   *float64 `json:"bathrooms"`
	Area        *float64 `json:"area"`
	AreaUnit    *string  `json:"area_unit"`
	Price       *float64 `json:"price"`
	UnitNumbers []string `json:"unit_numbers"`
	UnitCount   *int     `json:"unit_count"`
	Features    []string `json:"features"`
	Orientation *string  `json:"orientation"`
	Tower       *string  `json:"tower"`
}

// ParseResult converts the model's JSON answer into page metadata.
// Every extracted unit records pageNumber as its source page.
func ParseResult(raw json.RawMessage, pageNumber int) (*types.PageMetadata, error) {
	var resp pageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode page analysis: %w", err)
	}

	meta := &types.PageMetadata{
		PageNumber:     pageNumber,
		Category:       types.ParsePageCategory(strings.ToLower(strings.TrimSpace(resp.Category))),
		Classification: strings.TrimSpace(resp.Classification),
		Confidence:     clamp01(resp.Confidence),
		Project: types.ProjectInfo{
			Name:           str(resp.Project.Name),
			Developer:      str(resp.Project.Developer),
			Address:        str(resp.Project.Address),
			Area:           str(resp.Project.Area),
			LaunchDate:     str(resp.Project.LaunchDate),
			CompletionDate: str(resp.Project.CompletionDate),
			Description:    str(resp.Project.Description),
		},
		FloorPlanCount: max(resp.FloorPlanCount, 0),
		Content:        strings.TrimSpace(resp.Content),
	}
	if meta.Classification == "" {
		meta.Classification = string(meta.Category)
	}

	for _, a := range resp.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			meta.Amenities = append(meta.Amenities, a)
		}
	}

	for _, u := range resp.Units {
		unit := types.Unit{
			Category:    strings.ToLower(strings.TrimSpace(u.Category)),
			TypeName:    str(u.TypeName),
			Name:        str(u.Name),
			Bedrooms:    u.Bedrooms,
			Bathrooms:   u.Bathrooms,
			AreaUnit:    str(u.AreaUnit),
			Price:       u.Price,
			UnitNumbers: trimAll(u.UnitNumbers),
			UnitCount:   u.UnitCount,
			Features:    trimAll(u.Features),
			Orientation: str(u.Orientation),
			Tower:       str(u.Tower),
			SourcePages: []int{pageNumber},
		}
		if u.Area != nil {
			unit.Area = *u.Area
		}
		meta.Units = append(meta.Units, unit)
	}

	if resp.PaymentPlan != nil && len(resp.PaymentPlan.Milestones) > 0 {
		plan := &types.PaymentPlan{Name: str(resp.PaymentPlan.Name), SourcePage: pageNumber}
		for _, m := range resp.PaymentPlan.Milestones {
			plan.Milestones = append(plan.Milestones, types.Milestone{
				Label:      strings.TrimSpace(m.Label),
				Percentage: m.Percentage,
				DueDate:    str(m.DueDate),
			})
		}
		meta.PaymentPlan = plan
	}

	return meta, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

var _ PageAnalyzer = (*LLMAnalyzer)(nil)

// Func adapts a function to PageAnalyzer.
type Func func(ctx context.Context, req PageRequest) (*types.PageMetadata, error)

func (f Func) Analyze(ctx context.Context, req PageRequest) (*types.PageMetadata, error) {
	return f(ctx, req)
}
