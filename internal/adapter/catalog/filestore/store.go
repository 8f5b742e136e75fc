package filestore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
)

var (
	_ secondary.ProblemRepository = (*FileStore)(nil)
	_ secondary.Reloadable        = (*FileStore)(nil)
)

// FileStore serves a catalog file and picks up edits on Reload
type FileStore struct {
	path   string
	logger primary.Logger

	mu      sync.RWMutex
	catalog *Catalog
	modTime time.Time
	size    int64
}

// Open reads the catalog file once; later changes are applied by Reload
func Open(ctx context.Context, path string, logger primary.Logger) (*FileStore, error) {
	s := &FileStore{path: path, logger: logger}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file when its size or modification time changed. A
// broken file leaves the previous catalog in place.
func (s *FileStore) Reload(_ context.Context) (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("failed to stat catalog file: %w", err)
	}

	s.mu.RLock()
	unchanged := s.catalog != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("failed to read catalog file: %w", err)
	}
	problems, err := Parse(data)
	if err != nil {
		return false, fmt.Errorf("failed to parse catalog file %s: %w", s.path, err)
	}
	catalog, err := NewCatalog(problems)
	if err != nil {
		return false, fmt.Errorf("failed to load catalog file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.catalog = catalog
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.mu.Unlock()

	s.logger.Info("Catalog file loaded", "path", s.path, "problems", len(problems))
	return true, nil
}

func (s *FileStore) current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

func (s *FileStore) GetProblem(ctx context.Context, problemID string) (*domain.ProblemSpec, error) {
	return s.current().GetProblem(ctx, problemID)
}

func (s *FileStore) ListProblems(ctx context.Context) ([]domain.ProblemSummary, error) {
	return s.current().ListProblems(ctx)
}

// Problems returns the full specs of the current catalog
func (s *FileStore) Problems() []*domain.ProblemSpec {
	return s.current().Problems()
}
