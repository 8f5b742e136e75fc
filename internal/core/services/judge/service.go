package judge

import (
	"context"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/domain"
)

// IJudgeService grades candidates against catalog problems
type IJudgeService interface {
	primary.Judge

	// RunCandidateObserved is RunCandidate with per-test notifications
	RunCandidateObserved(ctx context.Context, problemID string, source string, observer primary.RunObserver) (*domain.RunReport, error)

	// Evaluate grades a candidate against an already resolved problem
	Evaluate(ctx context.Context, problem *domain.ProblemSpec, source string, observer primary.RunObserver) (*domain.RunReport, error)
}
