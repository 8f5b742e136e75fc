package judge

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var _ IJudgeService = (*JudgeService)(nil)

// JudgeService implements the IJudgeService interface. It keeps no state
// between runs, so one instance serves concurrent callers.
type JudgeService struct {
	problems secondary.ProblemRepository
	loader   secondary.CandidateLoader
	cfg      *config.JudgeConfig
	logger   primary.Logger
}

// NewJudgeService creates a new judge service
func NewJudgeService(
	problems secondary.ProblemRepository,
	loader secondary.CandidateLoader,
	cfg *config.JudgeConfig,
	logger primary.Logger,
) *JudgeService {
	return &JudgeService{
		problems: problems,
		loader:   loader,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunCandidate grades source against the problem's test cases
func (s *JudgeService) RunCandidate(ctx context.Context, problemID string, source string) (*domain.RunReport, error) {
	return s.RunCandidateObserved(ctx, problemID, source, nil)
}

func (s *JudgeService) RunCandidateObserved(ctx context.Context, problemID string, source string, observer primary.RunObserver) (*domain.RunReport, error) {
	if err := s.checkSource(source); err != nil {
		return nil, err
	}

	problem, err := s.problems.GetProblem(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}

	return s.Evaluate(ctx, problem, source, observer)
}

func (s *JudgeService) checkSource(source string) error {
	if s.cfg.MaxSourceBytes > 0 && len(source) > s.cfg.MaxSourceBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", errs.ErrSourceTooLarge, len(source), s.cfg.MaxSourceBytes)
	}
	return nil
}

func (s *JudgeService) Evaluate(ctx context.Context, problem *domain.ProblemSpec, source string, observer primary.RunObserver) (*domain.RunReport, error) {
	if err := s.checkSource(source); err != nil {
		return nil, err
	}
	submission := domain.NewSubmission(problem.ID, source)
	start := time.Now()

	s.logger.Info("Run started",
		"runId", submission.ID,
		"problemId", problem.ID,
		"tests", len(problem.TestCases),
		"sourceBytes", len(source))

	r := &run{
		problem:    problem,
		submission: submission,
		loader:     s.loader,
		cfg:        s.cfg,
		observer:   observer,
		logger:     s.logger,
	}
	report, err := r.execute(ctx)
	if err != nil {
		s.logger.Warn("Run aborted",
			"runId", submission.ID,
			"problemId", problem.ID,
			"error", err)
		return nil, err
	}

	if report.GlobalError != nil {
		s.logger.Info("Run finished with global error",
			"runId", submission.ID,
			"problemId", problem.ID,
			"kind", report.GlobalErrorKind,
			"duration", time.Since(start))
		return report, nil
	}

	s.logger.Info("Run finished",
		"runId", submission.ID,
		"problemId", problem.ID,
		"passed", report.PassedCount,
		"total", report.TotalCount,
		"duration", time.Since(start))
	return report, nil
}
