// Package problemcache keeps recently judged problems in process memory
package problemcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
)

var _ secondary.ProblemCache = (*ProblemCache)(nil)

// ProblemCache is a size bounded LRU whose entries also expire after ttl
type ProblemCache struct {
	lru *expirable.LRU[string, *domain.ProblemSpec]
}

func NewProblemCache(size int, ttl time.Duration) *ProblemCache {
	if size <= 0 {
		size = 1
	}
	return &ProblemCache{
		lru: expirable.NewLRU[string, *domain.ProblemSpec](size, nil, ttl),
	}
}

func (c *ProblemCache) Get(_ context.Context, problemID string) (*domain.ProblemSpec, error) {
	problem, ok := c.lru.Get(problemID)
	if !ok {
		return nil, nil
	}
	return problem, nil
}

func (c *ProblemCache) Set(_ context.Context, problem *domain.ProblemSpec) error {
	c.lru.Add(problem.ID, problem)
	return nil
}

func (c *ProblemCache) Purge(_ context.Context) error {
	c.lru.Purge()
	return nil
}

// Len reports the number of live entries
func (c *ProblemCache) Len() int {
	return c.lru.Len()
}
