package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/offlinejudge.net/internal/adapter/logging"
	"gitlab.com/offlinejudge.net/internal/adapter/sandbox"
	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

type fakeProblems map[string]*domain.ProblemSpec

func (f fakeProblems) GetProblem(_ context.Context, id string) (*domain.ProblemSpec, error) {
	p, ok := f[id]
	if !ok {
		return nil, errs.ErrProblemNotFound
	}
	return p, nil
}

func (f fakeProblems) ListProblems(context.Context) ([]domain.ProblemSummary, error) {
	var out []domain.ProblemSummary
	for _, p := range f {
		out = append(out, p.Summary())
	}
	return out, nil
}

func ints(xs ...int64) domain.Value {
	items := make([]domain.Value, len(xs))
	for i, x := range xs {
		items[i] = domain.Int(x)
	}
	return domain.List(items...)
}

func strs(xs ...string) domain.Value {
	items := make([]domain.Value, len(xs))
	for i, x := range xs {
		items[i] = domain.Str(x)
	}
	return domain.List(items...)
}

func twoSumProblem() *domain.ProblemSpec {
	return &domain.ProblemSpec{
		ID:           "two-sum",
		Title:        "Two Sum",
		Difficulty:   domain.DifficultyEasy,
		FunctionName: "twoSum",
		TestCases: []domain.TestCase{
			{Input: []domain.Value{ints(2, 7, 11, 15), domain.Int(9)}, ExpectedOutput: ints(0, 1)},
			{Input: []domain.Value{ints(3, 2, 4), domain.Int(6)}, ExpectedOutput: ints(1, 2)},
			{Input: []domain.Value{ints(3, 3), domain.Int(6)}, ExpectedOutput: ints(0, 1)},
		},
	}
}

func reverseStringProblem() *domain.ProblemSpec {
	return &domain.ProblemSpec{
		ID:           "reverse-string",
		Title:        "Reverse String",
		Difficulty:   domain.DifficultyEasy,
		FunctionName: "reverseString",
		TestCases: []domain.TestCase{
			{Input: []domain.Value{strs("h", "e", "l", "l", "o")}, ExpectedOutput: strs("o", "l", "l", "e", "h"), InPlace: true},
			{Input: []domain.Value{strs("H", "a", "n", "n", "a", "h")}, ExpectedOutput: strs("h", "a", "n", "n", "a", "H"), InPlace: true},
		},
	}
}

func identityProblem(n int) *domain.ProblemSpec {
	p := &domain.ProblemSpec{ID: "identity", Title: "Identity", Difficulty: domain.DifficultyEasy, FunctionName: "f"}
	for i := 1; i <= n; i++ {
		p.TestCases = append(p.TestCases, domain.TestCase{
			Input:          []domain.Value{domain.Int(int64(i))},
			ExpectedOutput: domain.Int(int64(i)),
		})
	}
	return p
}

const twoSumSolution = `
def twoSum(nums, target):
    seen = {}
    for i, n in enumerate(nums):
        if target - n in seen:
            return [seen[target - n], i]
        seen[n] = i
    return []
`

const reverseSolution = `
def reverseString(s):
    i, j = 0, len(s) - 1
    while i < j:
        s[i], s[j] = s[j], s[i]
        i += 1
        j -= 1
`

func testConfig() *config.JudgeConfig {
	return &config.JudgeConfig{
		TestTimeout:    time.Second,
		LoadTimeout:    time.Second,
		GracePeriod:    100 * time.Millisecond,
		MaxSteps:       1_000_000,
		Parallelism:    1,
		MaxSourceBytes: 64 * 1024,
	}
}

func newTestService(cfg *config.JudgeConfig, problems ...*domain.ProblemSpec) *JudgeService {
	repo := fakeProblems{}
	for _, p := range problems {
		repo[p.ID] = p
	}
	logger := logging.NewNopLogger()
	return NewJudgeService(repo, sandbox.NewStarlarkLoader(cfg, logger), cfg, logger)
}

func TestTwoSumScenario(t *testing.T) {
	svc := newTestService(testConfig(), twoSumProblem())
	report, err := svc.RunCandidate(context.Background(), "two-sum", twoSumSolution)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if !report.AllPassed || report.PassedCount != 3 || report.TotalCount != 3 {
		t.Fatalf("report = %+v", report)
	}
	for i, res := range report.TestResults {
		if res.Index != i+1 || res.Error != nil || res.Actual == nil {
			t.Errorf("result %d = %+v", i, res)
		}
	}
}

func TestReverseStringInPlace(t *testing.T) {
	problem := reverseStringProblem()
	before := problem.TestCases[0].Input[0].String()
	svc := newTestService(testConfig(), problem)

	report, err := svc.RunCandidate(context.Background(), "reverse-string", reverseSolution)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if !report.AllPassed {
		t.Fatalf("report = %+v", report)
	}
	if got := problem.TestCases[0].Input[0].String(); got != before {
		t.Errorf("stored input changed: %s -> %s", before, got)
	}
	if got := report.TestResults[0].Input[0].String(); got != before {
		t.Errorf("reported input = %s, want original %s", got, before)
	}
}

func TestInPlaceGradesArgumentNotReturn(t *testing.T) {
	source := "def reverseString(s):\n    return list(reversed(s))\n"
	svc := newTestService(testConfig(), reverseStringProblem())
	report, err := svc.RunCandidate(context.Background(), "reverse-string", source)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	res := report.TestResults[0]
	if res.Passed {
		t.Fatal("returning a new list must not pass an in-place test")
	}
	if res.Actual == nil || res.Actual.String() != `["h","e","l","l","o"]` {
		t.Errorf("actual = %v, want the unmodified argument", res.Actual)
	}
}

func TestFaultContainment(t *testing.T) {
	source := "def f(x):\n    if x == 2:\n        fail(\"boom\")\n    return x\n"
	svc := newTestService(testConfig(), identityProblem(4))
	report, err := svc.RunCandidate(context.Background(), "identity", source)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if report.TotalCount != 4 || report.PassedCount != 3 || report.AllPassed {
		t.Fatalf("report = %+v", report)
	}
	failed := report.TestResults[1]
	if failed.Passed || failed.Actual != nil || failed.Error == nil || failed.Fault != domain.FaultRuntime {
		t.Errorf("test 2 = %+v", failed)
	}
	for _, i := range []int{0, 2, 3} {
		if !report.TestResults[i].Passed {
			t.Errorf("test %d should pass", i+1)
		}
	}
}

func TestGlobalErrorShortCircuits(t *testing.T) {
	cases := []struct {
		name   string
		source string
		kind   domain.FaultKind
	}{
		{"syntax", "def twoSum(nums, target)\n    return []\n", domain.FaultCompile},
		{"missing", "def other():\n    pass\n", domain.FaultMissingSymbol},
		{"empty", "", domain.FaultMissingSymbol},
	}
	svc := newTestService(testConfig(), twoSumProblem())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report, err := svc.RunCandidate(context.Background(), "two-sum", tc.source)
			if err != nil {
				t.Fatalf("RunCandidate: %v", err)
			}
			if report.GlobalError == nil || report.GlobalErrorKind != tc.kind {
				t.Fatalf("report = %+v", report)
			}
			if report.TestResults == nil || len(report.TestResults) != 0 || report.AllPassed {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestOrderSensitive(t *testing.T) {
	source := "def twoSum(nums, target):\n    return [1, 0]\n"
	svc := newTestService(testConfig(), twoSumProblem())
	report, err := svc.RunCandidate(context.Background(), "two-sum", source)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if report.TestResults[0].Passed {
		t.Error("[1,0] must not equal [0,1]")
	}
}

func TestDeterministicReports(t *testing.T) {
	source := "def f(x):\n    print(x)\n    if x == 3:\n        fail(\"odd\")\n    return x\n"
	svc := newTestService(testConfig(), identityProblem(4))
	var previous []byte
	for i := 0; i < 3; i++ {
		report, err := svc.RunCandidate(context.Background(), "identity", source)
		if err != nil {
			t.Fatalf("RunCandidate: %v", err)
		}
		data, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if previous != nil && string(previous) != string(data) {
			t.Fatalf("run %d differs:\n%s\n%s", i, previous, data)
		}
		previous = data
	}
}

func TestPerTestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.TestTimeout = 100 * time.Millisecond
	cfg.MaxSteps = 0
	source := "def f(x):\n    if x == 1:\n        while True:\n            pass\n    return x\n"
	svc := newTestService(cfg, identityProblem(3))

	report, err := svc.RunCandidate(context.Background(), "identity", source)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if report.TestResults[0].Fault != domain.FaultTimeout {
		t.Errorf("test 1 = %+v", report.TestResults[0])
	}
	if !report.TestResults[1].Passed || !report.TestResults[2].Passed {
		t.Errorf("later tests should pass: %+v", report.TestResults)
	}
}

func TestCallerCancellation(t *testing.T) {
	svc := newTestService(testConfig(), twoSumProblem())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := svc.RunCandidate(ctx, "two-sum", twoSumSolution)
	if !errors.Is(err, context.Canceled) || report != nil {
		t.Fatalf("report = %v, err = %v", report, err)
	}
}

func TestRejectsOversizedSource(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSourceBytes = 16
	svc := newTestService(cfg, twoSumProblem())
	_, err := svc.RunCandidate(context.Background(), "two-sum", twoSumSolution)
	if !errors.Is(err, errs.ErrSourceTooLarge) {
		t.Fatalf("err = %v", err)
	}
}

func TestUnknownProblem(t *testing.T) {
	svc := newTestService(testConfig())
	_, err := svc.RunCandidate(context.Background(), "nope", twoSumSolution)
	if !errors.Is(err, errs.ErrProblemNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestParallelKeepsOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 4
	svc := newTestService(cfg, identityProblem(8))

	var mu sync.Mutex
	seen := map[int]bool{}
	observer := primary.RunObserverFunc(func(_ context.Context, res domain.TestResult) {
		mu.Lock()
		defer mu.Unlock()
		seen[res.Index] = true
	})

	report, err := svc.RunCandidateObserved(context.Background(), "identity", "def f(x):\n    return x\n", observer)
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if !report.AllPassed || report.TotalCount != 8 {
		t.Fatalf("report = %+v", report)
	}
	for i, res := range report.TestResults {
		if res.Index != i+1 {
			t.Errorf("position %d holds test %d", i, res.Index)
		}
	}
	if len(seen) != 8 {
		t.Errorf("observer saw %d results", len(seen))
	}
}

func TestObserverSequentialOrder(t *testing.T) {
	svc := newTestService(testConfig(), identityProblem(3))
	var got []int
	observer := primary.RunObserverFunc(func(_ context.Context, res domain.TestResult) {
		got = append(got, res.Index)
	})
	if _, err := svc.RunCandidateObserved(context.Background(), "identity", "def f(x):\n    return x\n", observer); err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("observer order = %v", got)
	}
}

// stuckLoader hands out candidates whose first call never returns
type stuckLoader struct {
	loads   atomic.Int32
	release chan struct{}
}

func (l *stuckLoader) Load(context.Context, string, string) (secondary.Candidate, error) {
	n := l.loads.Add(1)
	return &stuckCandidate{stuck: n == 1, release: l.release}, nil
}

type stuckCandidate struct {
	stuck   bool
	release chan struct{}
}

func (c *stuckCandidate) Call(_ context.Context, args []domain.Value, _ int) (secondary.Invocation, error) {
	if c.stuck {
		<-c.release
	}
	return secondary.Invocation{Result: args[0]}, nil
}

func TestAbandonedScopeIsReplaced(t *testing.T) {
	cfg := testConfig()
	cfg.TestTimeout = 50 * time.Millisecond
	cfg.GracePeriod = 10 * time.Millisecond
	loader := &stuckLoader{release: make(chan struct{})}
	defer close(loader.release)

	problem := identityProblem(3)
	svc := NewJudgeService(fakeProblems{problem.ID: problem}, loader, cfg, logging.NewNopLogger())
	report, err := svc.RunCandidate(context.Background(), problem.ID, "ignored")
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if report.TestResults[0].Fault != domain.FaultTimeout {
		t.Errorf("test 1 = %+v", report.TestResults[0])
	}
	if !report.TestResults[1].Passed || !report.TestResults[2].Passed {
		t.Errorf("later tests = %+v", report.TestResults[1:])
	}
	if got := loader.loads.Load(); got != 2 {
		t.Errorf("loads = %d, want 2", got)
	}
}

type panicLoader struct{}

func (panicLoader) Load(context.Context, string, string) (secondary.Candidate, error) {
	return panicCandidate{}, nil
}

type panicCandidate struct{}

func (panicCandidate) Call(context.Context, []domain.Value, int) (secondary.Invocation, error) {
	panic("interpreter bug")
}

func TestPanicBecomesRuntimeFault(t *testing.T) {
	problem := identityProblem(2)
	svc := NewJudgeService(fakeProblems{problem.ID: problem}, panicLoader{}, testConfig(), logging.NewNopLogger())
	report, err := svc.RunCandidate(context.Background(), problem.ID, "ignored")
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	for _, res := range report.TestResults {
		if res.Fault != domain.FaultRuntime || res.Error == nil {
			t.Errorf("result = %+v", res)
		}
	}
}

// closingLoader counts how many of its candidates were released
type closingLoader struct {
	loads  atomic.Int32
	closes atomic.Int32
}

func (l *closingLoader) Load(context.Context, string, string) (secondary.Candidate, error) {
	l.loads.Add(1)
	return &closingCandidate{loader: l}, nil
}

type closingCandidate struct {
	loader *closingLoader
}

func (c *closingCandidate) Call(_ context.Context, args []domain.Value, _ int) (secondary.Invocation, error) {
	return secondary.Invocation{Result: args[0]}, nil
}

func (c *closingCandidate) Close() error {
	c.loader.closes.Add(1)
	return nil
}

func TestCandidatesAreReleased(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		cfg := testConfig()
		cfg.Parallelism = parallelism
		loader := &closingLoader{}
		problem := identityProblem(4)
		svc := NewJudgeService(fakeProblems{problem.ID: problem}, loader, cfg, logging.NewNopLogger())
		report, err := svc.RunCandidate(context.Background(), problem.ID, "ignored")
		if err != nil {
			t.Fatalf("RunCandidate: %v", err)
		}
		if !report.AllPassed {
			t.Errorf("parallelism %d: report = %+v", parallelism, report)
		}
		if loads, closes := loader.loads.Load(), loader.closes.Load(); loads != closes {
			t.Errorf("parallelism %d: %d loads, %d closes", parallelism, loads, closes)
		}
	}
}

type unavailableLoader struct{}

func (unavailableLoader) Load(context.Context, string, string) (secondary.Candidate, error) {
	return nil, fmt.Errorf("%w: exec: \"python3\": executable file not found", errs.ErrRuntimeUnavailable)
}

func TestUnavailableRuntimeIsNotGraded(t *testing.T) {
	problem := identityProblem(2)
	svc := NewJudgeService(fakeProblems{problem.ID: problem}, unavailableLoader{}, testConfig(), logging.NewNopLogger())
	report, err := svc.RunCandidate(context.Background(), problem.ID, "def f(x):\n    return x\n")
	if !errors.Is(err, errs.ErrRuntimeUnavailable) || report != nil {
		t.Errorf("report = %+v, err = %v", report, err)
	}
}
