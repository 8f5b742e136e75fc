package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
)

const (
	sourceFileName = "solution.star"

	// DefaultMaxOutput caps the print output kept per invocation
	DefaultMaxOutput = 64 * 1024
)

var _ secondary.CandidateLoader = (*StarlarkLoader)(nil)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// predeclared is the allow-list of modules visible to candidates on top of
// the Starlark universe.
func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"math": math.Module,
		"json": json.Module,
	}
}

// StarlarkLoader executes candidate source as a Starlark module
type StarlarkLoader struct {
	loadTimeout time.Duration
	maxSteps    uint64
	maxOutput   int
	logger      primary.Logger
}

func NewStarlarkLoader(cfg *config.JudgeConfig, logger primary.Logger) *StarlarkLoader {
	return &StarlarkLoader{
		loadTimeout: cfg.LoadTimeout,
		maxSteps:    cfg.MaxSteps,
		maxOutput:   DefaultMaxOutput,
		logger:      logger,
	}
}

func (l *StarlarkLoader) Load(ctx context.Context, source string, functionName string) (_ secondary.Candidate, err error) {
	if l.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.loadTimeout)
		defer cancel()
	}

	out := newOutputBuffer(l.maxOutput)
	thread := newThread("load/"+functionName, out)
	guard := watch(ctx, thread, l.maxSteps)
	defer guard.stop()

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Interpreter panic while loading candidate", "function", functionName, "panic", r)
			err = domain.NewCompileError(fmt.Errorf("interpreter panic: %v", r))
		}
	}()

	globals, execErr := starlark.ExecFileOptions(fileOptions, thread, sourceFileName, source, predeclared())
	if execErr != nil {
		if guard.stepsExceeded() {
			return nil, domain.NewTimeoutError("module initialisation exceeded the budget of %d execution steps", l.maxSteps)
		}
		if guard.interrupted() {
			return nil, domain.NewTimeoutError("module initialisation did not finish within %v", l.loadTimeout)
		}
		if _, ok := execErr.(*starlark.EvalError); ok {
			return nil, domain.NewCompileError(fmt.Errorf("module initialisation failed: %w", execErr))
		}
		return nil, domain.NewCompileError(execErr)
	}

	sym, ok := globals[functionName]
	if !ok {
		return nil, domain.NewMissingSymbolError("function %q is not defined", functionName)
	}
	fn, ok := sym.(starlark.Callable)
	if !ok {
		return nil, domain.NewMissingSymbolError("%q is a %s, not a function", functionName, sym.Type())
	}

	return &starlarkCandidate{
		fn:        fn,
		name:      functionName,
		maxSteps:  l.maxSteps,
		maxOutput: l.maxOutput,
	}, nil
}

type starlarkCandidate struct {
	fn        starlark.Callable
	name      string
	maxSteps  uint64
	maxOutput int
}

func (c *starlarkCandidate) Call(ctx context.Context, args []domain.Value, observe int) (inv secondary.Invocation, err error) {
	if observe >= len(args) {
		return inv, domain.NewRuntimeFault(fmt.Errorf("argument %d cannot be observed, only %d given", observe, len(args)))
	}

	sargs := make(starlark.Tuple, len(args))
	for i, a := range args {
		sargs[i] = toStarlark(a)
	}

	out := newOutputBuffer(c.maxOutput)
	thread := newThread(c.name, out)
	guard := watch(ctx, thread, c.maxSteps)
	defer guard.stop()

	defer func() {
		if r := recover(); r != nil {
			inv.Stdout = out.String()
			err = domain.NewRuntimeFault(fmt.Errorf("interpreter panic: %v", r))
		}
	}()

	ret, callErr := starlark.Call(thread, c.fn, sargs, nil)
	inv.Stdout = out.String()
	if callErr != nil {
		switch {
		case guard.stepsExceeded():
			return inv, domain.NewTimeoutError("exceeded the budget of %d execution steps", c.maxSteps)
		case guard.interrupted():
			return inv, domain.NewTimeoutError("execution was cancelled: %v", ctx.Err())
		}
		return inv, domain.NewRuntimeFault(unwrapEval(callErr))
	}

	observed := ret
	if observe >= 0 {
		observed = sargs[observe]
	}
	result, convErr := fromStarlark(observed, 0)
	if convErr != nil {
		return inv, domain.NewRuntimeFault(fmt.Errorf("unsupported result: %w", convErr))
	}
	inv.Result = result
	return inv, nil
}

func newThread(name string, out *outputBuffer) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteLine(msg)
		},
	}
}

// unwrapEval keeps only the message of an evaluation error; the backtrace
// would leak interpreter frames into the report.
func unwrapEval(err error) error {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		return fmt.Errorf("%s", evalErr.Msg)
	}
	return err
}
