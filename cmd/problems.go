package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/domain"
)

var outputFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the problems in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.catalogSvc.ListProblems(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDIFFICULTY\tTITLE")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Difficulty, s.Title)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a problem description and its examples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		problem, err := a.catalogSvc.GetProblem(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printProblem(cmd, problem)
		return nil
	},
}

var genCmd = &cobra.Command{
	Use:   "gen <id>",
	Short: "Write the starter solution of a problem to a file",
	Long: `Write the starter solution of a problem to a file. The file defaults to
<id>.py (<id>.star with JUDGE_RUNTIME=starlark) and is never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		problem, err := a.catalogSvc.GetProblem(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		filename := outputFlag
		if filename == "" {
			filename = problem.ID + sourceExt(sysCfg.JudgeConfig.Runtime)
		}
		f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("file %s already exists", filename)
			}
			return err
		}
		defer f.Close()

		if _, err := fmt.Fprintf(f, "# %s (%s)\n\n%s", problem.Title, problem.Difficulty, problem.Template); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created template: %s\n", filename)
		return nil
	},
}

func init() {
	genCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file")
	rootCmd.AddCommand(listCmd, showCmd, genCmd)
}

func printProblem(cmd *cobra.Command, p *domain.ProblemSpec) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s]\n", p.Title, p.Difficulty)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	if p.Description != "" {
		fmt.Fprintln(out, strings.TrimSpace(p.Description))
		fmt.Fprintln(out)
	}
	for i, ex := range p.Examples {
		fmt.Fprintf(out, "Example %d:\n  Input:  %s\n  Output: %s\n", i+1, ex.Input, ex.Output)
		if ex.Explanation != "" {
			fmt.Fprintf(out, "  Explanation: %s\n", ex.Explanation)
		}
	}
	fmt.Fprintf(out, "Function: %s, %d test cases\n", p.FunctionName, len(p.TestCases))
}

func sourceExt(runtime string) string {
	if runtime == config.RuntimeStarlark {
		return ".star"
	}
	return ".py"
}
