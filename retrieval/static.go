package retrieval

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/policyqa/core"
)

// StaticRetriever returns a fixed candidate list regardless of the query.
// It records each call so tests can check what the pipeline asked for.
type StaticRetriever struct {
	Candidates []core.Candidate
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls []StaticCall
}

// StaticCall is one recorded Retrieve call.
type StaticCall struct {
	Query   string
	K       int
	Options RetrieveOptions
}

// NewStaticRetriever returns a retriever serving candidates in order.
func NewStaticRetriever(candidates ...core.Candidate) *StaticRetriever {
	return &StaticRetriever{Candidates: candidates}
}

// Retrieve returns the first k candidates.
func (s *StaticRetriever) Retrieve(ctx context.Context, query string, k int, opts ...RetrieveOption) ([]core.Candidate, error) {
	s.mu.Lock()
	s.calls = append(s.calls, StaticCall{Query: query, K: k, Options: ResolveOptions(opts...)})
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	return slices.Clone(s.Candidates[:min(k, len(s.Candidates))]), nil
}

// Calls returns a copy of the recorded calls.
func (s *StaticRetriever) Calls() []StaticCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

var _ Retriever = (*StaticRetriever)(nil)
