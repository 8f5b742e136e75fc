package catalog

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var (
	_ ICatalogService             = (*CatalogService)(nil)
	_ secondary.ProblemRepository = (*CatalogService)(nil)
)

// CatalogService implements the ICatalogService interface
type CatalogService struct {
	repo   secondary.ProblemRepository
	caches []secondary.ProblemCache
	logger primary.Logger
}

// NewCatalogService creates a catalog reading through caches in the given
// order, nearest first
func NewCatalogService(
	repo secondary.ProblemRepository,
	logger primary.Logger,
	caches ...secondary.ProblemCache,
) *CatalogService {
	return &CatalogService{
		repo:   repo,
		caches: caches,
		logger: logger,
	}
}

// GetProblem retrieves a problem by ID
func (s *CatalogService) GetProblem(ctx context.Context, problemID string) (*domain.ProblemSpec, error) {
	for i, cache := range s.caches {
		problem, err := cache.Get(ctx, problemID)
		if err != nil {
			// a broken cache tier must not take the catalog down
			s.logger.Warn("Problem cache read failed", "problemId", problemID, "tier", i, "error", err)
			continue
		}
		if problem != nil {
			s.fill(ctx, problem, s.caches[:i])
			return problem, nil
		}
	}

	problem, err := s.repo.GetProblem(ctx, problemID)
	if err != nil {
		if errors.Is(err, errs.ErrProblemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get problem %s: %w", problemID, err)
	}
	s.fill(ctx, problem, s.caches)
	return problem, nil
}

func (s *CatalogService) fill(ctx context.Context, problem *domain.ProblemSpec, caches []secondary.ProblemCache) {
	for _, cache := range caches {
		if err := cache.Set(ctx, problem); err != nil {
			s.logger.Warn("Problem cache write failed", "problemId", problem.ID, "error", err)
		}
	}
}

// ListProblems retrieves the problem summaries
func (s *CatalogService) ListProblems(ctx context.Context) ([]domain.ProblemSummary, error) {
	summaries, err := s.repo.ListProblems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	return summaries, nil
}

// Invalidate purges every cache tier
func (s *CatalogService) Invalidate(ctx context.Context) error {
	var errList []error
	for _, cache := range s.caches {
		if err := cache.Purge(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if len(errList) > 0 {
		return fmt.Errorf("failed to purge problem caches: %w", errors.Join(errList...))
	}
	s.logger.Info("Problem caches purged", "tiers", len(s.caches))
	return nil
}
