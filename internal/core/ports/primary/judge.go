package primary

import (
	"context"

	"gitlab.com/offlinejudge.net/internal/domain"
)

// Judge grades a candidate against a catalog problem. Every graded run,
// including one whose source does not compile, yields a report; an error
// means no run took place (unknown problem, rejected request, cancellation).
type Judge interface {
	RunCandidate(ctx context.Context, problemID string, source string) (*domain.RunReport, error)
}

// RunObserver receives each test result as soon as it is decided.
// Implementations must be safe for concurrent use.
type RunObserver interface {
	OnTestResult(ctx context.Context, result domain.TestResult)
}

type RunObserverFunc func(ctx context.Context, result domain.TestResult)

func (f RunObserverFunc) OnTestResult(ctx context.Context, result domain.TestResult) {
	f(ctx, result)
}
