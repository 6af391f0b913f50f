package retrieval

import (
	"context"

	"github.com/poiesic/policyqa/core"
)

// Retriever returns the passages most relevant to a query, in retrieval order.
// An empty result is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, opts ...RetrieveOption) ([]core.Candidate, error)
}

// RetrieveOptions holds per-call retrieval settings.
type RetrieveOptions struct {
	// UseMMR diversifies results with maximal marginal relevance.
	UseMMR bool
}

// RetrieveOption configures a single Retrieve call.
type RetrieveOption func(*RetrieveOptions)

// WithMMR turns MMR diversification on or off for one call.
// Default is on.
func WithMMR(enabled bool) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.UseMMR = enabled
	}
}

// ResolveOptions applies opts over the defaults.
func ResolveOptions(opts ...RetrieveOption) RetrieveOptions {
	o := RetrieveOptions{UseMMR: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
