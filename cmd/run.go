package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/offlinejudge.net/internal/client"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/domain"
)

var (
	serverFlag  string
	tokenFlag   string
	timeoutFlag time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <id> <file>",
	Short: "Grade a solution file against a problem",
	Long: `Grade a solution file against the test cases of a problem. The file must
define the function named by the problem. Under the default python runtime
it may also be a method of a Solution class.

Examples:
  judge run twoSum twoSum.py
  JUDGE_RUNTIME=starlark judge run twoSum twoSum.star
  judge run twoSum twoSum.py --server http://localhost:8082 --token $TOKEN`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&serverFlag, "server", "", "Grade on a running judge server instead of locally")
	runCmd.Flags().StringVar(&tokenFlag, "token", "", "Bearer token for the server")
	runCmd.Flags().DurationVar(&timeoutFlag, "timeout", time.Minute, "Request timeout when using --server")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	problemID, path := args[0], args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading solution: %w", err)
	}

	out := cmd.OutOrStdout()
	var report *domain.RunReport
	if serverFlag != "" {
		report, err = client.NewRemoteJudge(serverFlag, tokenFlag, timeoutFlag).
			RunCandidate(cmd.Context(), problemID, string(source))
		if err != nil {
			return err
		}
		for _, res := range report.TestResults {
			printResult(out, res)
		}
	} else {
		report, err = runLocal(cmd.Context(), out, problemID, string(source))
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(out, strings.Repeat("-", 40))
	if report.GlobalError != nil {
		fmt.Fprintf(out, "%s: %s\n", report.GlobalErrorKind, *report.GlobalError)
	} else {
		fmt.Fprintf(out, "Passed %d/%d\n", report.PassedCount, report.TotalCount)
	}
	if !report.AllPassed {
		return fmt.Errorf("run failed")
	}
	return nil
}

// runLocal prints each result as soon as its test finishes
func runLocal(ctx context.Context, out io.Writer, problemID, source string) (*domain.RunReport, error) {
	a, err := newApp(ctx, false)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	problem, err := a.catalogSvc.GetProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Running tests for: %s\n%s\n", problem.Title, strings.Repeat("-", 40))
	printer := &resultPrinter{out: out, next: 1, pending: make(map[int]domain.TestResult)}
	return a.judgeSvc.Evaluate(ctx, problem, source, printer)
}

var _ primary.RunObserver = (*resultPrinter)(nil)

// resultPrinter prints results in index order while tests may finish in any
// order on several goroutines
type resultPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	next    int
	pending map[int]domain.TestResult
}

func (p *resultPrinter) OnTestResult(_ context.Context, res domain.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[res.Index] = res
	for {
		ready, ok := p.pending[p.next]
		if !ok {
			return
		}
		delete(p.pending, p.next)
		p.next++
		printResult(p.out, ready)
	}
}

func printResult(out io.Writer, res domain.TestResult) {
	if res.Passed {
		fmt.Fprintf(out, "PASS Test %d\n", res.Index)
	} else if res.Error != nil {
		fmt.Fprintf(out, "FAIL Test %d: %s -> %s\n", res.Index, res.Fault, *res.Error)
	} else {
		fmt.Fprintf(out, "FAIL Test %d\n", res.Index)
		fmt.Fprintf(out, "   Input:    %s\n", formatArgs(res.Input))
		fmt.Fprintf(out, "   Expected: %s\n", res.Expected)
		if res.Actual != nil {
			fmt.Fprintf(out, "   Got:      %s\n", *res.Actual)
		}
	}
	if res.Stdout != "" {
		fmt.Fprintf(out, "   Stdout:\n%s", indent(res.Stdout, "     "))
	}
}

func formatArgs(args []domain.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
