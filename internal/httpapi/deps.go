package httpapi

import (
	"context"
	"log/slog"

	"jobagent/internal/bus"
	"jobagent/internal/events"
	"jobagent/internal/store"
)

// Commander is the Redis side the handlers need. *bus.Bus implements it.
type Commander interface {
	Crawling(ctx context.Context) (bool, error)
	StartCrawl(ctx context.Context, cmd bus.StartCrawl) error
	Generate(ctx context.Context, cmd bus.Generate) error
}

type Deps struct {
	Store store.Store
	Hub   *events.Hub
	Bus   Commander

	AuthToken      string
	AllowedOrigins []string

	Logger *slog.Logger
}
