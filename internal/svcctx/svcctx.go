// Package svcctx provides service context for dependency injection via context.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/brochure/internal/analyzer"
	"github.com/jackzampolin/brochure/internal/config"
	"github.com/jackzampolin/brochure/internal/home"
	"github.com/jackzampolin/brochure/internal/pipeline"
	"github.com/jackzampolin/brochure/internal/providers"
	"github.com/jackzampolin/brochure/internal/storage"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Logger    *slog.Logger
	Home      *home.Dir
	Config    *config.Manager
	DB        *storage.DB
	Index     storage.Index
	Store     storage.ImageStore
	Client    providers.LLMClient
	Analyzer  analyzer.PageAnalyzer
	Processor *pipeline.Processor
}

// Close releases resources held by the services.
func (s *Services) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// IndexFrom extracts the image cache index from context.
func IndexFrom(ctx context.Context) storage.Index {
	if s := ServicesFrom(ctx); s != nil {
		return s.Index
	}
	return nil
}

// DBFrom extracts the badger database from context.
func DBFrom(ctx context.Context) *storage.DB {
	if s := ServicesFrom(ctx); s != nil {
		return s.DB
	}
	return nil
}

// ProcessorFrom extracts the extraction processor from context.
func ProcessorFrom(ctx context.Context) *pipeline.Processor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Processor
	}
	return nil
}
