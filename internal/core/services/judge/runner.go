package judge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

// testState tracks one test case: pending -> invoking -> succeeded | raised
type testState int

const (
	statePending testState = iota
	stateInvoking
	stateSucceeded
	stateRaised
)

func (s testState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateInvoking:
		return "invoking"
	case stateSucceeded:
		return "succeeded"
	case stateRaised:
		return "raised"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s testState) terminal() bool {
	return s == stateSucceeded || s == stateRaised
}

type outcome struct {
	state  testState
	result domain.Value
	stdout string
	fault  *domain.JudgeError
	// abandoned is set when the candidate ignored cancellation; its scope
	// must not be invoked again
	abandoned bool
}

// run is one grading pass of one submission
type run struct {
	problem    *domain.ProblemSpec
	submission *domain.Submission
	loader     secondary.CandidateLoader
	cfg        *config.JudgeConfig
	observer   primary.RunObserver
	logger     primary.Logger
}

func (r *run) execute(ctx context.Context) (*domain.RunReport, error) {
	candidate, err := r.load(ctx)
	if err != nil {
		if abort := abortErr(ctx, err); abort != nil {
			return nil, abort
		}
		return AssembleGlobalError(domain.AsJudgeError(err)), nil
	}

	var results []domain.TestResult
	if r.cfg.Parallelism > 1 && len(r.problem.TestCases) > 1 {
		results, err = r.runParallel(ctx, candidate)
	} else {
		results, err = r.runSequential(ctx, candidate)
	}
	if err != nil {
		return nil, err
	}
	return AssembleReport(results), nil
}

func (r *run) load(ctx context.Context) (secondary.Candidate, error) {
	candidate, abandoned, err := bounded(ctx, r.cfg.LoadTimeout, r.cfg.GracePeriod, func() (secondary.Candidate, error) {
		return r.loader.Load(ctx, r.submission.Code, r.problem.FunctionName)
	})
	if abandoned {
		return nil, domain.NewTimeoutError("module initialisation did not finish within %v", r.cfg.LoadTimeout)
	}
	return candidate, err
}

func (r *run) runSequential(ctx context.Context, candidate secondary.Candidate) ([]domain.TestResult, error) {
	defer func() { release(candidate) }()

	results := make([]domain.TestResult, 0, len(r.problem.TestCases))
	for i, tc := range r.problem.TestCases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var out outcome
		if candidate == nil {
			// previous scope was abandoned
			c, err := r.load(ctx)
			if err != nil {
				if abort := abortErr(ctx, err); abort != nil {
					return nil, abort
				}
				out = outcome{state: stateRaised, fault: domain.AsJudgeError(err)}
			}
			candidate = c
		}
		if candidate != nil {
			out = r.invoke(ctx, i, candidate, tc)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if out.abandoned {
				release(candidate)
				candidate = nil
			}
		}

		res := grade(i, tc, out)
		r.notify(ctx, res)
		results = append(results, res)
	}
	return results, nil
}

// runParallel gives every test its own freshly loaded scope. The first load,
// already done by execute, serves test 1.
func (r *run) runParallel(ctx context.Context, first secondary.Candidate) ([]domain.TestResult, error) {
	tests := r.problem.TestCases
	results := make([]domain.TestResult, len(tests))

	defer release(first)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for i, tc := range tests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidate := first
			if i > 0 {
				c, err := r.load(gctx)
				if err != nil {
					if abort := abortErr(ctx, err); abort != nil {
						return abort
					}
					results[i] = grade(i, tc, outcome{state: stateRaised, fault: domain.AsJudgeError(err)})
					r.notify(ctx, results[i])
					return nil
				}
				candidate = c
				defer release(c)
			}

			out := r.invoke(gctx, i, candidate, tc)
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = grade(i, tc, out)
			r.notify(ctx, results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *run) invoke(ctx context.Context, index int, candidate secondary.Candidate, tc domain.TestCase) outcome {
	out := outcome{state: statePending}

	args := tc.Input
	observe := secondary.ObserveReturn
	if tc.InPlace {
		if len(tc.Input) == 0 {
			out.state = stateRaised
			out.fault = domain.NewRuntimeFault(fmt.Errorf("in-place test has no argument to observe"))
			return out
		}
		args = make([]domain.Value, len(tc.Input))
		copy(args, tc.Input)
		args[0] = tc.Input[0].Clone()
		observe = 0
	}

	testCtx := ctx
	if r.cfg.TestTimeout > 0 {
		var cancel context.CancelFunc
		testCtx, cancel = context.WithTimeout(ctx, r.cfg.TestTimeout)
		defer cancel()
	}

	start := time.Now()
	out.state = stateInvoking
	inv, abandoned, err := bounded(testCtx, r.cfg.TestTimeout, r.cfg.GracePeriod, func() (secondary.Invocation, error) {
		return candidate.Call(testCtx, args, observe)
	})
	switch {
	case abandoned:
		out.state = stateRaised
		out.abandoned = true
		out.fault = domain.NewTimeoutError("test did not finish within %v", r.cfg.TestTimeout)
		r.logger.Warn("Candidate ignored cancellation, scope abandoned",
			"runId", r.submission.ID,
			"test", index+1)
	case err != nil:
		out.state = stateRaised
		out.fault = domain.AsJudgeError(err)
		out.stdout = inv.Stdout
	default:
		out.state = stateSucceeded
		out.result = inv.Result
		out.stdout = inv.Stdout
	}

	r.logger.Debug("Test invoked",
		"runId", r.submission.ID,
		"test", index+1,
		"state", out.state,
		"duration", time.Since(start))
	return out
}

func (r *run) notify(ctx context.Context, res domain.TestResult) {
	if r.observer != nil {
		r.observer.OnTestResult(ctx, res)
	}
}

// abortErr returns the error that ends the whole run rather than one test:
// cancellation, or an interpreter that cannot be started at all
func abortErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, errs.ErrRuntimeUnavailable) {
		return err
	}
	return nil
}

// release frees a candidate that holds resources, such as an interpreter
// process
func release(candidate secondary.Candidate) {
	if closer, ok := candidate.(io.Closer); ok {
		_ = closer.Close()
	}
}

// grade turns a terminal outcome into the reported result
func grade(index int, tc domain.TestCase, out outcome) domain.TestResult {
	input := make([]domain.Value, len(tc.Input))
	copy(input, tc.Input)
	res := domain.TestResult{
		Index:    index + 1,
		Input:    input,
		Expected: tc.ExpectedOutput,
		Stdout:   out.stdout,
	}

	if out.state == stateSucceeded {
		actual := out.result
		res.Actual = &actual
		res.Passed = domain.Equal(actual, tc.ExpectedOutput)
		return res
	}

	fault := out.fault
	if !out.state.terminal() || fault == nil {
		fault = domain.NewRuntimeFault(fmt.Errorf("test ended in state %s", out.state))
	}
	msg := fault.Message
	res.Error = &msg
	res.Fault = fault.Kind
	return res
}

// bounded runs fn and waits for it at most limit plus grace, or grace past
// the end of ctx. A call still running after that is abandoned and reported
// through the second result. A panic in fn becomes a runtime fault.
func bounded[T any](ctx context.Context, limit, grace time.Duration, fn func() (T, error)) (T, bool, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				var zero T
				ch <- result{val: zero, err: domain.NewRuntimeFault(fmt.Errorf("panic: %v", rec))}
			}
		}()
		val, err := fn()
		ch <- result{val: val, err: err}
	}()

	var expired <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit + grace)
		defer timer.Stop()
		expired = timer.C
	}

	var zero T
	select {
	case res := <-ch:
		return res.val, false, res.err
	case <-expired:
		return zero, true, nil
	case <-ctx.Done():
	}

	select {
	case res := <-ch:
		return res.val, false, res.err
	case <-time.After(grace):
		return zero, true, nil
	}
}
