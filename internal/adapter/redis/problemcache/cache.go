package problemcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
)

const (
	problemKeyPrefix = "problem:"
	scanBatch        = 100
)

var _ secondary.ProblemCache = (*ProblemCache)(nil)

// ProblemCache implements the ProblemCache interface with Redis
type ProblemCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      primary.Logger
}

// NewProblemCache creates a new Redis problem cache
func NewProblemCache(redisClient *redis.Client, ttl time.Duration, logger primary.Logger) *ProblemCache {
	return &ProblemCache{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func problemKey(problemID string) string {
	return problemKeyPrefix + problemID
}

// Get returns nil without error on a miss
func (c *ProblemCache) Get(ctx context.Context, problemID string) (*domain.ProblemSpec, error) {
	data, err := c.redisClient.Get(ctx, problemKey(problemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached problem: %w", err)
	}

	var problem domain.ProblemSpec
	if err := json.Unmarshal(data, &problem); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached problem: %w", err)
	}
	return &problem, nil
}

// Set stores the problem with the configured expiration
func (c *ProblemCache) Set(ctx context.Context, problem *domain.ProblemSpec) error {
	data, err := json.Marshal(problem)
	if err != nil {
		return fmt.Errorf("failed to marshal problem: %w", err)
	}
	if err := c.redisClient.Set(ctx, problemKey(problem.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache problem: %w", err)
	}
	return nil
}

// Purge removes every cached problem
func (c *ProblemCache) Purge(ctx context.Context) error {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, problemKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan problem keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete problem keys: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("Redis problem cache purged", "keys", removed)
	return nil
}
