package catalog

import (
	"context"

	"gitlab.com/offlinejudge.net/internal/domain"
)

// ICatalogService defines the read path of the problem catalog
type ICatalogService interface {
	// GetProblem retrieves a problem by ID, reading through the caches
	GetProblem(ctx context.Context, problemID string) (*domain.ProblemSpec, error)

	// ListProblems retrieves the summaries in catalog order
	ListProblems(ctx context.Context) ([]domain.ProblemSummary, error)

	// Invalidate drops every cached problem
	Invalidate(ctx context.Context) error
}
