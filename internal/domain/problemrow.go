package domain

import (
	"encoding/json"
	"fmt"
)

// ProblemRow is the stored form of a ProblemSpec. Test cases and examples
// are kept as JSON text so the same table works on every SQL driver.
type ProblemRow struct {
	ID           string `db:"id"`
	Position     int    `db:"position"`
	Title        string `db:"title"`
	Difficulty   string `db:"difficulty"`
	Description  string `db:"description"`
	FunctionName string `db:"function_name"`
	Template     string `db:"template"`
	TestCases    string `db:"test_cases"`
	Examples     string `db:"examples"`
}

type ProblemTable struct {
	ID           string
	Position     string
	Title        string
	Difficulty   string
	Description  string
	FunctionName string
	Template     string
	TestCases    string
	Examples     string
}

func GetProblemTable() ProblemTable {
	return ProblemTable{
		ID:           "id",
		Position:     "position",
		Title:        "title",
		Difficulty:   "difficulty",
		Description:  "description",
		FunctionName: "function_name",
		Template:     "template",
		TestCases:    "test_cases",
		Examples:     "examples",
	}
}

func (ProblemTable) TableName() string {
	return "problems"
}

// Columns lists every column in insert order
func (t ProblemTable) Columns() []string {
	return []string{t.ID, t.Position, t.Title, t.Difficulty, t.Description, t.FunctionName, t.Template, t.TestCases, t.Examples}
}

func NewProblemRow(p *ProblemSpec, position int) (*ProblemRow, error) {
	testCases := p.TestCases
	if testCases == nil {
		testCases = []TestCase{}
	}
	tcJSON, err := json.Marshal(testCases)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test cases: %w", err)
	}
	examples := p.Examples
	if examples == nil {
		examples = []Example{}
	}
	exJSON, err := json.Marshal(examples)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal examples: %w", err)
	}
	return &ProblemRow{
		ID:           p.ID,
		Position:     position,
		Title:        p.Title,
		Difficulty:   string(p.Difficulty),
		Description:  p.Description,
		FunctionName: p.FunctionName,
		Template:     p.Template,
		TestCases:    string(tcJSON),
		Examples:     string(exJSON),
	}, nil
}

// Values returns the row in Columns order
func (r *ProblemRow) Values() []interface{} {
	return []interface{}{r.ID, r.Position, r.Title, r.Difficulty, r.Description, r.FunctionName, r.Template, r.TestCases, r.Examples}
}

func (r *ProblemRow) ToSpec() (*ProblemSpec, error) {
	p := &ProblemSpec{
		ID:           r.ID,
		Title:        r.Title,
		Difficulty:   Difficulty(r.Difficulty),
		Description:  r.Description,
		FunctionName: r.FunctionName,
		Template:     r.Template,
	}
	if err := json.Unmarshal([]byte(r.TestCases), &p.TestCases); err != nil {
		return nil, fmt.Errorf("problem %s: failed to decode test cases: %w", r.ID, err)
	}
	if r.Examples != "" {
		if err := json.Unmarshal([]byte(r.Examples), &p.Examples); err != nil {
			return nil, fmt.Errorf("problem %s: failed to decode examples: %w", r.ID, err)
		}
	}
	if len(p.Examples) == 0 {
		p.Examples = nil
	}
	return p, nil
}
