// Package extractor dispatches input URLs to site-specific extractors.
package extractor

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/logger"
	"github.com/ytget/ytfetch/types"
)

// Extractor turns a recognized URL into video metadata.
type Extractor interface {
	// Name identifies the extractor in logs and errors.
	Name() string
	// Suitable reports whether this extractor handles the URL.
	Suitable(u *url.URL) bool
	// Extract fetches and assembles metadata for the URL.
	Extract(ctx context.Context, u *url.URL) (*types.VideoMetadata, error)
}

// Registry holds extractors in registration order. Overlapping
// predicates resolve to the first registered match, so register
// most-specific extractors first.
type Registry struct {
	extractors []Extractor
	log        *logger.ComponentLogger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{log: logger.WithComponent(logger.ComponentRegistry)}
}

// Register appends an extractor.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Dispatch parses rawURL and delegates to the first suitable extractor.
func (r *Registry) Dispatch(ctx context.Context, rawURL string) (*types.VideoMetadata, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidURL, rawURL)
	}

	for _, e := range r.extractors {
		if e.Suitable(u) {
			r.log.Debug("dispatching", map[string]any{"extractor": e.Name(), "url": rawURL})
			return e.Extract(ctx, u)
		}
	}
	return nil, fmt.Errorf("%w: %s", errs.ErrNoExtractor, rawURL)
}
