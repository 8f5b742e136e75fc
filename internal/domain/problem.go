package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the display difficulty of a problem
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts any letter case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// TestCase is one graded invocation of the candidate function.
// When InPlace is set the candidate must mutate Input[0] and the mutated
// copy is graded instead of the return value.
type TestCase struct {
	Input          []Value `json:"input"`
	ExpectedOutput Value   `json:"expectedOutput"`
	InPlace        bool    `json:"inPlace,omitempty"`
}

// Example is a worked example shown next to the description
type Example struct {
	Input       string `json:"input" yaml:"input"`
	Output      string `json:"output" yaml:"output"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation"`
}

// ProblemSpec is owned by the catalog and is read-only once loaded
type ProblemSpec struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Difficulty   Difficulty `json:"difficulty"`
	Description  string     `json:"description"`
	FunctionName string     `json:"functionName"`
	Template     string     `json:"template"`
	TestCases    []TestCase `json:"testCases"`
	Examples     []Example  `json:"examples,omitempty"`
}

// ProblemSummary is the catalog listing entry
type ProblemSummary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
}

func (p *ProblemSpec) Summary() ProblemSummary {
	return ProblemSummary{
		ID:         p.ID,
		Title:      p.Title,
		Difficulty: p.Difficulty,
	}
}

// Validate checks the fields the judge depends on.
func (p *ProblemSpec) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("problem id is required")
	}
	if !isIdentifier(p.FunctionName) {
		return fmt.Errorf("problem %s: function name %q is not a valid identifier", p.ID, p.FunctionName)
	}
	if _, err := ParseDifficulty(string(p.Difficulty)); err != nil {
		return fmt.Errorf("problem %s: %w", p.ID, err)
	}
	for i, tc := range p.TestCases {
		if tc.InPlace && len(tc.Input) == 0 {
			return fmt.Errorf("problem %s: test %d is in-place but has no input", p.ID, i+1)
		}
	}
	return nil
}

// DefaultTemplate builds a starter solution when the catalog has none.
func DefaultTemplate(functionName string, params []string) string {
	return fmt.Sprintf("def %s(%s):\n    # Write your code here\n    pass\n", functionName, strings.Join(params, ", "))
}

// ParamNames returns arg1..argN for the widest test input.
func (p *ProblemSpec) ParamNames() []string {
	n := 0
	for _, tc := range p.TestCases {
		if len(tc.Input) > n {
			n = len(tc.Input)
		}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("arg%d", i+1)
	}
	return names
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
