package filestore

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

const maxAliasDepth = 64

// Parse decodes a catalog document. JSON and YAML are both accepted, in any
// of three shapes: a list of problems, a mapping with a "problems" list, or
// a mapping from problem id to problem.
func Parse(data []byte) ([]*domain.ProblemSpec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidProblem, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var problems []*domain.ProblemSpec
	switch root.Kind {
	case yaml.SequenceNode:
		return parseList(root)
	case yaml.MappingNode:
		if list := lookup(root, "problems"); list != nil && list.Kind == yaml.SequenceNode {
			return parseList(list)
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			p, err := parseProblem(root.Content[i+1], root.Content[i].Value)
			if err != nil {
				return nil, err
			}
			problems = append(problems, p)
		}
		return problems, nil
	default:
		return nil, fmt.Errorf("%w: catalog must be a list or a mapping (line %d)", errs.ErrInvalidProblem, root.Line)
	}
}

func parseList(list *yaml.Node) ([]*domain.ProblemSpec, error) {
	problems := make([]*domain.ProblemSpec, 0, len(list.Content))
	for _, item := range list.Content {
		p, err := parseProblem(item, "")
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, nil
}

// normalizeKey makes functionName, function_name and FunctionName the same key
func normalizeKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if normalizeKey(m.Content[i].Value) == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func parseProblem(node *yaml.Node, fallbackID string) (*domain.ProblemSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: problem at line %d is not a mapping", errs.ErrInvalidProblem, node.Line)
	}

	p := &domain.ProblemSpec{ID: fallbackID}
	var (
		checkInPlace bool
		paramNames   []string
		difficulty   string
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var err error
		switch normalizeKey(key.Value) {
		case "id":
			p.ID = val.Value
		case "title":
			p.Title = val.Value
		case "difficulty":
			difficulty = val.Value
		case "description":
			p.Description = val.Value
		case "functionname":
			p.FunctionName = val.Value
		case "template":
			p.Template = val.Value
		case "checkinplace", "inplace":
			err = val.Decode(&checkInPlace)
		case "examples":
			err = val.Decode(&p.Examples)
		case "testcases":
			p.TestCases, paramNames, err = parseTestCases(val)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: problem %q field %s (line %d): %v", errs.ErrInvalidProblem, p.ID, key.Value, key.Line, err)
		}
	}

	if checkInPlace {
		for i := range p.TestCases {
			p.TestCases[i].InPlace = true
		}
	}
	if p.Title == "" {
		p.Title = p.ID
	}
	if difficulty != "" {
		d, err := domain.ParseDifficulty(difficulty)
		if err != nil {
			return nil, fmt.Errorf("%w: problem %q: %v", errs.ErrInvalidProblem, p.ID, err)
		}
		p.Difficulty = d
	}
	if p.Template == "" && p.FunctionName != "" {
		if paramNames == nil {
			paramNames = p.ParamNames()
		}
		p.Template = domain.DefaultTemplate(p.FunctionName, paramNames)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidProblem, err)
	}
	return p, nil
}

// parseTestCases also returns the argument names when the first test case
// gives its input as a mapping
func parseTestCases(node *yaml.Node) ([]domain.TestCase, []string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("test cases must be a list")
	}
	cases := make([]domain.TestCase, 0, len(node.Content))
	var names []string
	for idx, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, nil, fmt.Errorf("test case %d is not a mapping", idx+1)
		}
		var tc domain.TestCase
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, val := item.Content[i], item.Content[i+1]
			switch normalizeKey(key.Value) {
			case "input", "inputs", "args":
				args, argNames, err := parseInput(val)
				if err != nil {
					return nil, nil, fmt.Errorf("test case %d: %w", idx+1, err)
				}
				tc.Input = args
				if idx == 0 {
					names = argNames
				}
			case "expectedoutput", "expected", "output":
				v, err := nodeValue(val, 0)
				if err != nil {
					return nil, nil, fmt.Errorf("test case %d: %w", idx+1, err)
				}
				tc.ExpectedOutput = v
			case "inplace":
				if err := val.Decode(&tc.InPlace); err != nil {
					return nil, nil, fmt.Errorf("test case %d: %w", idx+1, err)
				}
			}
		}
		if tc.Input == nil {
			tc.Input = []domain.Value{}
		}
		cases = append(cases, tc)
	}
	return cases, names, nil
}

// parseInput accepts a positional list or a mapping of named arguments kept
// in document order
func parseInput(node *yaml.Node) ([]domain.Value, []string, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		args := make([]domain.Value, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := nodeValue(item, 0)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, v)
		}
		return args, nil, nil
	case yaml.MappingNode:
		var (
			args  []domain.Value
			names []string
		)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := nodeValue(node.Content[i+1], 0)
			if err != nil {
				return nil, nil, err
			}
			names = append(names, node.Content[i].Value)
			args = append(args, v)
		}
		return args, names, nil
	default:
		v, err := nodeValue(node, 0)
		if err != nil {
			return nil, nil, err
		}
		return []domain.Value{v}, nil, nil
	}
}

// nodeValue keeps the int/float distinction of the document
func nodeValue(node *yaml.Node, depth int) (domain.Value, error) {
	if depth > maxAliasDepth {
		return domain.Null(), fmt.Errorf("value nested too deeply at line %d", node.Line)
	}
	switch node.Kind {
	case yaml.AliasNode:
		return nodeValue(node.Alias, depth+1)
	case yaml.SequenceNode:
		items := make([]domain.Value, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := nodeValue(item, depth+1)
			if err != nil {
				return domain.Null(), err
			}
			items = append(items, v)
		}
		return domain.List(items...), nil
	case yaml.MappingNode:
		entries := make(map[string]domain.Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := nodeValue(node.Content[i+1], depth+1)
			if err != nil {
				return domain.Null(), err
			}
			entries[node.Content[i].Value] = v
		}
		return domain.Map(entries), nil
	case yaml.ScalarNode:
		return scalarValue(node)
	}
	return domain.Null(), fmt.Errorf("unsupported node at line %d", node.Line)
}

func scalarValue(node *yaml.Node) (domain.Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return domain.Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return domain.Null(), err
		}
		return domain.Bool(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return domain.Int(i), nil
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return domain.Null(), err
		}
		return domain.Float(f), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return domain.Null(), err
		}
		return domain.Float(f), nil
	default:
		return domain.Str(node.Value), nil
	}
}
