package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/core/services/catalog"
)

const warmWorkers = 2

// CatalogEngine periodically reloads the catalog source. After a change it
// purges the problem caches and warms them again.
type CatalogEngine struct {
	catalogCfg *config.CatalogConfig
	source     secondary.Reloadable
	catalogSvc catalog.ICatalogService
	logger     primary.Logger

	wg sync.WaitGroup
}

func NewCatalogEngine(
	catalogCfg *config.CatalogConfig,
	source secondary.Reloadable,
	catalogSvc catalog.ICatalogService,
	logger primary.Logger,
) *CatalogEngine {
	return &CatalogEngine{
		catalogCfg: catalogCfg,
		source:     source,
		catalogSvc: catalogSvc,
		logger:     logger,
	}
}

// Start runs the reload loop until ctx is cancelled. A zero interval
// disables it.
func (s *CatalogEngine) Start(ctx context.Context) {
	if s.catalogCfg.ReloadInterval <= 0 {
		s.logger.Info("Catalog reload disabled")
		return
	}

	ticker := time.NewTicker(s.catalogCfg.ReloadInterval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ReloadCatalog(ctx)
			}
		}
	}()
}

// Wait blocks until the reload loop has exited
func (s *CatalogEngine) Wait() {
	s.wg.Wait()
}

// ReloadCatalog reports whether the source changed
func (s *CatalogEngine) ReloadCatalog(ctx context.Context) bool {
	changed, err := s.source.Reload(ctx)
	if err != nil {
		s.logger.Error("Failed to reload catalog", "error", err)
		return false
	}
	if !changed {
		s.logger.Debug("Catalog unchanged")
		return false
	}

	if err := s.catalogSvc.Invalidate(ctx); err != nil {
		s.logger.Error("Failed to invalidate problem caches", "error", err)
	}
	s.WarmCaches(ctx)
	return true
}

// WarmCaches loads every listed problem through the catalog so the cache
// tiers are filled before the first submission
func (s *CatalogEngine) WarmCaches(ctx context.Context) {
	summaries, err := s.catalogSvc.ListProblems(ctx)
	if err != nil {
		s.logger.Error("Failed to list problems", "error", err)
		return
	}
	if len(summaries) == 0 {
		s.logger.Info("No problems found")
		return
	}

	idCh := make(chan string, len(summaries))
	errCh := make(chan error, len(summaries))
	for _, summary := range summaries {
		idCh <- summary.ID
	}
	close(idCh)

	var wg sync.WaitGroup
	wg.Add(warmWorkers)
	for i := 0; i < warmWorkers; i++ {
		go func() {
			defer wg.Done()
			for id := range idCh {
				if _, err := s.catalogSvc.GetProblem(ctx, id); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	failed := 0
	for err := range errCh {
		failed++
		s.logger.Error("Failed to warm problem", "error", err)
	}
	s.logger.Info("Problem caches warmed", "count", len(summaries)-failed, "failed", failed)
}
