package sandbox

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"strings"
	"testing"
	"time"

	"gitlab.com/offlinejudge.net/internal/adapter/catalog/builtin"
	"gitlab.com/offlinejudge.net/internal/adapter/logging"
	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/core/services/judge"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

func skipIfNoPython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
}

func newPythonLoader(t *testing.T) *PythonLoader {
	t.Helper()
	skipIfNoPython(t)
	return NewPythonLoader(&config.JudgeConfig{LoadTimeout: 5 * time.Second}, logging.NewNopLogger())
}

func loadPython(t *testing.T, loader *PythonLoader, source, fn string) secondary.Candidate {
	t.Helper()
	c, err := loader.Load(context.Background(), source, fn)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { _ = c.(*pythonCandidate).Close() })
	return c
}

func callPython(t *testing.T, c secondary.Candidate, observe int, args ...domain.Value) (secondary.Invocation, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Call(ctx, args, observe)
}

func TestPythonReverseInPlaceScenario(t *testing.T) {
	skipIfNoPython(t)
	logger := logging.NewNopLogger()
	problems, err := builtin.New()
	if err != nil {
		t.Fatalf("builtin catalog: %v", err)
	}
	cfg := &config.JudgeConfig{
		TestTimeout:    5 * time.Second,
		LoadTimeout:    5 * time.Second,
		GracePeriod:    time.Second,
		Parallelism:    1,
		MaxSourceBytes: 64 * 1024,
	}
	svc := judge.NewJudgeService(problems, NewPythonLoader(cfg, logger), cfg, logger)

	report, err := svc.RunCandidate(context.Background(), "reverseString", "def reverseString(s):\n    s.reverse()\n")
	if err != nil {
		t.Fatalf("RunCandidate: %v", err)
	}
	if !report.AllPassed {
		t.Fatalf("report = %+v", report)
	}

	problem, _ := problems.GetProblem(context.Background(), "reverseString")
	if got := problem.TestCases[0].Input[0].String(); got != `["h","e","l","l","o"]` {
		t.Errorf("stored input changed: %s", got)
	}
}

func TestPythonEverydayIdioms(t *testing.T) {
	loader := newPythonLoader(t)
	nums := domain.List(domain.Int(3), domain.Int(1), domain.Int(2))

	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"solution class", "class Solution:\n    def f(self, nums):\n        return sorted(nums)\n", `[1,2,3]`},
		{"list sort", "def f(nums):\n    nums.sort()\n    return nums\n", `[1,2,3]`},
		{"try except", "def f(nums):\n    try:\n        return nums[10]\n    except IndexError:\n        return -1\n", `-1`},
		{"module level memo", "memo = {}\ndef f(nums):\n    memo[len(nums)] = True\n    return len(memo)\n", `1`},
		{"typing names", "def f(nums: List[int]) -> Optional[int]:\n    return max(nums)\n", `3`},
		{"tuple and set", "def f(nums):\n    return (min(nums), {max(nums)})\n", `[1,[3]]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := loadPython(t, loader, tc.source, "f")
			inv, err := callPython(t, c, secondary.ObserveReturn, nums)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if got := inv.Result.String(); got != tc.want {
				t.Errorf("result = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestPythonLoadFaults(t *testing.T) {
	loader := newPythonLoader(t)
	cases := []struct {
		name   string
		source string
		want   domain.FaultKind
	}{
		{"syntax error", "def twoSum(nums, target:\n    pass\n", domain.FaultCompile},
		{"top level raises", "x = 1 // 0\ndef twoSum(nums, target):\n    return []\n", domain.FaultCompile},
		{"top level exit", "import sys\nsys.exit(3)\n", domain.FaultCompile},
		{"missing function", "def solve(nums, target):\n    return []\n", domain.FaultMissingSymbol},
		{"solution without method", "class Solution:\n    pass\n", domain.FaultMissingSymbol},
		{"not callable", "twoSum = [0, 1]\n", domain.FaultMissingSymbol},
		{"empty source", "", domain.FaultMissingSymbol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loader.Load(context.Background(), tc.source, "twoSum")
			if err == nil {
				t.Fatal("expected load error")
			}
			if got := faultOf(t, err); got != tc.want {
				t.Errorf("fault = %s, want %s (%v)", got, tc.want, err)
			}
		})
	}

	_, err := loader.Load(context.Background(), "x = 1 // 0\n", "f")
	if err == nil || !strings.HasPrefix(err.Error(), "Syntax Error: module initialisation failed: ZeroDivisionError") {
		t.Errorf("init failure = %v", err)
	}
}

func TestPythonLoadTimeout(t *testing.T) {
	skipIfNoPython(t)
	loader := NewPythonLoader(&config.JudgeConfig{LoadTimeout: 200 * time.Millisecond}, logging.NewNopLogger())
	_, err := loader.Load(context.Background(), "while True:\n    pass\n", "f")
	if got := faultOf(t, err); got != domain.FaultTimeout {
		t.Fatalf("fault = %s, want TimeoutError", got)
	}
}

func TestPythonMissingInterpreter(t *testing.T) {
	loader := NewPythonLoader(&config.JudgeConfig{PythonPath: "/nonexistent/python3"}, logging.NewNopLogger())
	_, err := loader.Load(context.Background(), "def f():\n    return 1\n", "f")
	if !errors.Is(err, errs.ErrRuntimeUnavailable) {
		t.Errorf("err = %v, want ErrRuntimeUnavailable", err)
	}
}

func TestPythonCallFaults(t *testing.T) {
	loader := newPythonLoader(t)
	c := loadPython(t, loader, "def f(a):\n    print('before')\n    return a[10]\n", "f")
	inv, err := callPython(t, c, secondary.ObserveReturn, domain.List(domain.Int(1)))
	if got := faultOf(t, err); got != domain.FaultRuntime {
		t.Fatalf("fault = %s, want RuntimeFault", got)
	}
	if err.Error() != "Runtime Error: IndexError: list index out of range" {
		t.Errorf("message = %q", err.Error())
	}
	if inv.Stdout != "before\n" {
		t.Errorf("stdout = %q", inv.Stdout)
	}

	unsupported := []string{
		"def f():\n    return len\n",
		"def f():\n    return 1 << 70\n",
		"def f():\n    return {1: 'a', '1': 'b'}\n",
		"def f():\n    x = []\n    x.append(x)\n    return x\n",
	}
	for _, source := range unsupported {
		c := loadPython(t, loader, source, "f")
		if _, err := callPython(t, c, secondary.ObserveReturn); faultOf(t, err) != domain.FaultRuntime {
			t.Errorf("%q: err = %v, want RuntimeFault", source, err)
		}
	}
}

func TestPythonValueKinds(t *testing.T) {
	loader := newPythonLoader(t)
	c := loadPython(t, loader, "def f(x):\n    return x\n", "f")

	in := domain.List(
		domain.Int(1),
		domain.Float(1),
		domain.Float(math.Inf(-1)),
		domain.Str("s"),
		domain.Bool(true),
		domain.Null(),
		domain.Map(map[string]domain.Value{"k": domain.Int(2)}),
	)
	inv, err := callPython(t, c, secondary.ObserveReturn, in)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	items := inv.Result.Items()
	if items[0].Kind() != domain.KindInt || items[1].Kind() != domain.KindFloat {
		t.Errorf("kinds = %s, %s", items[0].Kind(), items[1].Kind())
	}
	if !math.IsInf(items[2].FloatVal(), -1) {
		t.Errorf("infinity = %s", items[2])
	}
	if !domain.Equal(inv.Result, in) {
		t.Errorf("result = %s, want %s", inv.Result, in)
	}
}

func TestPythonTimeoutStartsFreshInterpreter(t *testing.T) {
	loader := newPythonLoader(t)
	source := "calls = []\ndef f(spin):\n    calls.append(1)\n    while spin:\n        pass\n    return len(calls)\n"
	c := loadPython(t, loader, source, "f")

	if inv, err := callPython(t, c, secondary.ObserveReturn, domain.Bool(false)); err != nil || inv.Result.IntVal() != 1 {
		t.Fatalf("first call = %v, %v", inv.Result, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Call(ctx, []domain.Value{domain.Bool(true)}, secondary.ObserveReturn)
	if got := faultOf(t, err); got != domain.FaultTimeout {
		t.Fatalf("fault = %s, want TimeoutError", got)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("call took %v after deadline", elapsed)
	}

	// the module scope was rebuilt with the new interpreter
	inv, err := callPython(t, c, secondary.ObserveReturn, domain.Bool(false))
	if err != nil {
		t.Fatalf("call after timeout: %v", err)
	}
	if inv.Result.IntVal() != 1 {
		t.Errorf("calls = %s, want a fresh scope", inv.Result)
	}
}

func TestPythonInterpreterExit(t *testing.T) {
	loader := newPythonLoader(t)
	c := loadPython(t, loader, "import os\ndef f(die):\n    if die:\n        os._exit(7)\n    return 'ok'\n", "f")

	_, err := callPython(t, c, secondary.ObserveReturn, domain.Bool(true))
	if got := faultOf(t, err); got != domain.FaultRuntime {
		t.Fatalf("fault = %s, want RuntimeFault", got)
	}
	if !strings.Contains(err.Error(), "interpreter exited") {
		t.Errorf("message = %q", err.Error())
	}

	inv, err := callPython(t, c, secondary.ObserveReturn, domain.Bool(false))
	if err != nil || inv.Result.StrVal() != "ok" {
		t.Errorf("call after exit = %v, %v", inv.Result, err)
	}
}

func TestPythonOutputStaysOffProtocol(t *testing.T) {
	loader := newPythonLoader(t)
	source := "import os, sys\nprint('loading')\ndef f():\n    os.write(1, b'raw\\n')\n    print('x' * 100000)\n    print('err', file=sys.stderr)\n    return 5\n"
	c := loadPython(t, loader, source, "f")
	inv, err := callPython(t, c, secondary.ObserveReturn)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if inv.Result.IntVal() != 5 {
		t.Errorf("result = %s", inv.Result)
	}
	if !strings.HasSuffix(inv.Stdout, truncatedMarker) || len(inv.Stdout) > DefaultMaxOutput+len(truncatedMarker) {
		t.Errorf("stdout length %d not truncated", len(inv.Stdout))
	}
}

func TestPythonLoadsAreIndependent(t *testing.T) {
	loader := newPythonLoader(t)
	first := loadPython(t, loader, "k = 1\ndef f():\n    return k\n", "f")
	second := loadPython(t, loader, "k = 2\ndef f():\n    return k\n", "f")
	for i, c := range []secondary.Candidate{first, second} {
		inv, err := callPython(t, c, secondary.ObserveReturn)
		if err != nil {
			t.Fatalf("call: %v", err)
		}
		if inv.Result.IntVal() != int64(i+1) {
			t.Errorf("candidate %d returned %s", i, inv.Result)
		}
	}
}

func TestPythonCallAfterClose(t *testing.T) {
	loader := newPythonLoader(t)
	c := loadPython(t, loader, "def f():\n    return 1\n", "f")
	_ = c.(*pythonCandidate).Close()
	if _, err := callPython(t, c, secondary.ObserveReturn); faultOf(t, err) != domain.FaultRuntime {
		t.Errorf("err = %v, want RuntimeFault", err)
	}
}
