package secondary

import (
	"context"

	"gitlab.com/offlinejudge.net/internal/domain"
)

// ObserveReturn selects the return value as the invocation result.
const ObserveReturn = -1

// CandidateLoader turns source text into a callable candidate. Each call
// builds a fresh scope that shares nothing with earlier loads.
type CandidateLoader interface {
	// Load fails with a *domain.JudgeError of kind CompileError,
	// MissingSymbolError or TimeoutError, or with errs.ErrRuntimeUnavailable
	// when the interpreter itself cannot run
	Load(ctx context.Context, source string, functionName string) (Candidate, error)
}

// Candidate is a loaded solution function. A candidate holding resources
// outside the Go heap also implements io.Closer, and the engine closes it
// once its tests are done.
type Candidate interface {
	// Call invokes the function with args as positional arguments. When
	// observe is an argument index the post-call state of that argument
	// becomes the result, otherwise the return value does. Faults are
	// reported as *domain.JudgeError of kind RuntimeFault or TimeoutError.
	Call(ctx context.Context, args []domain.Value, observe int) (Invocation, error)
}

// Invocation is what one call produced.
type Invocation struct {
	Result domain.Value
	Stdout string
}
