package engine

import (
	"log/slog"

	"github.com/gitcas/gitcas/internal/metrics"
	"github.com/gitcas/gitcas/pkg/types"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithBlobStore injects the store used for chunked and external
// payloads. Defaults to an in-memory store.
func WithBlobStore(store types.BlobStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLogger injects the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCollector injects a metrics collector, overriding the one built
// from configuration.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// PutOption adjusts a single PutObject call.
type PutOption func(*putOptions)

type putOptions struct {
	kind      types.ObjectKind
	similarTo *types.Hash
}

// WithKind tags the object with a version-control kind. Defaults to
// blob.
func WithKind(kind types.ObjectKind) PutOption {
	return func(o *putOptions) { o.kind = kind }
}

// WithSimilarityHint names an already-stored object the new content
// resembles, making it a delta-encoding candidate. A hint that does
// not resolve is ignored.
func WithSimilarityHint(base types.Hash) PutOption {
	return func(o *putOptions) {
		h := base
		o.similarTo = &h
	}
}
