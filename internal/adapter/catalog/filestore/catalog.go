package filestore

import (
	"context"
	"fmt"

	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var _ secondary.ProblemRepository = (*Catalog)(nil)

// Catalog is an immutable in-memory problem set in document order
type Catalog struct {
	problems []*domain.ProblemSpec
	index    map[string]*domain.ProblemSpec
}

func NewCatalog(problems []*domain.ProblemSpec) (*Catalog, error) {
	c := &Catalog{
		problems: problems,
		index:    make(map[string]*domain.ProblemSpec, len(problems)),
	}
	for _, p := range problems {
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate problem id %q", errs.ErrInvalidProblem, p.ID)
		}
		c.index[p.ID] = p
	}
	return c, nil
}

func (c *Catalog) GetProblem(_ context.Context, problemID string) (*domain.ProblemSpec, error) {
	p, ok := c.index[problemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrProblemNotFound, problemID)
	}
	return p, nil
}

func (c *Catalog) ListProblems(_ context.Context) ([]domain.ProblemSummary, error) {
	summaries := make([]domain.ProblemSummary, 0, len(c.problems))
	for _, p := range c.problems {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// Problems returns the full specs in document order
func (c *Catalog) Problems() []*domain.ProblemSpec {
	out := make([]*domain.ProblemSpec, len(c.problems))
	copy(out, c.problems)
	return out
}
