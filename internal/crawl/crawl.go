package crawl

import (
	"context"
	"fmt"
	"time"

	"holdup/internal/domain"
)

// Request carries all parameters for one provider fetch.
type Request struct {
	Ticker  string
	Since   time.Time
	Until   time.Time
	Limit   int
	Options map[string]string
}

// Crawler is a single provider strategy (Alpaca, Finviz, etc.).
type Crawler interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]domain.RawArticle, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	crawlers map[string]Crawler
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{crawlers: map[string]Crawler{}}
}

// Register adds or replaces a crawler implementation.
func (r *Registry) Register(c Crawler) {
	if r.crawlers == nil {
		r.crawlers = map[string]Crawler{}
	}
	r.crawlers[c.Name()] = c
}

// Resolve returns a crawler by provider name or an error if it is absent.
func (r *Registry) Resolve(name string) (Crawler, error) {
	if c, ok := r.crawlers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("crawler %s is not registered", name)
}
