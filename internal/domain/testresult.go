package domain

import (
	"errors"
	"fmt"
)

// FaultKind classifies why a candidate could not produce a gradable value
type FaultKind string

const (
	FaultNone          FaultKind = ""
	FaultCompile       FaultKind = "CompileError"
	FaultMissingSymbol FaultKind = "MissingSymbolError"
	FaultTimeout       FaultKind = "TimeoutError"
	FaultRuntime       FaultKind = "RuntimeFault"
)

// IsGlobal reports whether the fault aborts the whole run.
func (k FaultKind) IsGlobal() bool {
	return k == FaultCompile || k == FaultMissingSymbol
}

// JudgeError is a classified candidate fault
type JudgeError struct {
	Kind    FaultKind
	Message string
	Err     error
}

func (e *JudgeError) Error() string {
	return e.Message
}

func (e *JudgeError) Unwrap() error {
	return e.Err
}

func NewCompileError(err error) *JudgeError {
	return &JudgeError{Kind: FaultCompile, Message: fmt.Sprintf("Syntax Error: %v", err), Err: err}
}

func NewMissingSymbolError(format string, args ...interface{}) *JudgeError {
	return &JudgeError{Kind: FaultMissingSymbol, Message: fmt.Sprintf(format, args...)}
}

func NewTimeoutError(format string, args ...interface{}) *JudgeError {
	return &JudgeError{Kind: FaultTimeout, Message: "Time Limit Exceeded: " + fmt.Sprintf(format, args...)}
}

func NewRuntimeFault(err error) *JudgeError {
	return &JudgeError{Kind: FaultRuntime, Message: fmt.Sprintf("Runtime Error: %v", err), Err: err}
}

// AsJudgeError classifies any error, treating unknown errors as runtime faults.
func AsJudgeError(err error) *JudgeError {
	var jerr *JudgeError
	if errors.As(err, &jerr) {
		return jerr
	}
	return NewRuntimeFault(err)
}

// TestResult is the verdict for one test case
type TestResult struct {
	Index    int       `json:"index"`
	Passed   bool      `json:"passed"`
	Input    []Value   `json:"input"`
	Expected Value     `json:"expected"`
	Actual   *Value    `json:"actual"`
	Error    *string   `json:"error"`
	Fault    FaultKind `json:"fault,omitempty"`
	Stdout   string    `json:"stdout,omitempty"`
}

// RunReport is the verdict for one run
type RunReport struct {
	TestResults     []TestResult `json:"testResults"`
	AllPassed       bool         `json:"allPassed"`
	GlobalError     *string      `json:"globalError"`
	GlobalErrorKind FaultKind    `json:"globalErrorKind,omitempty"`
	PassedCount     int          `json:"passedCount"`
	TotalCount      int          `json:"totalCount"`
}

// RestoreNonFinite applies Value.RestoreNonFinite to every value of a report
// decoded from JSON
func (r *RunReport) RestoreNonFinite() {
	for i := range r.TestResults {
		res := &r.TestResults[i]
		for j := range res.Input {
			res.Input[j] = res.Input[j].RestoreNonFinite()
		}
		res.Expected = res.Expected.RestoreNonFinite()
		if res.Actual != nil {
			actual := res.Actual.RestoreNonFinite()
			res.Actual = &actual
		}
	}
}
