package secondary

import (
	"context"

	"gitlab.com/offlinejudge.net/internal/domain"
)

// ProblemRepository is the read side of the problem catalog
type ProblemRepository interface {
	// GetProblem returns errs.ErrProblemNotFound for unknown ids
	GetProblem(ctx context.Context, problemID string) (*domain.ProblemSpec, error)

	// ListProblems returns summaries in catalog order
	ListProblems(ctx context.Context) ([]domain.ProblemSummary, error)
}

// ProblemWriter seeds a catalog
type ProblemWriter interface {
	SaveProblem(ctx context.Context, problem *domain.ProblemSpec, position int) error
}

// ProblemCache holds recently read problems. Get returns nil, nil on a miss.
type ProblemCache interface {
	Get(ctx context.Context, problemID string) (*domain.ProblemSpec, error)
	Set(ctx context.Context, problem *domain.ProblemSpec) error
	Purge(ctx context.Context) error
}

// Reloadable is a catalog source that can pick up changes at runtime
type Reloadable interface {
	// Reload reports whether the catalog content changed
	Reload(ctx context.Context) (bool, error)
}
