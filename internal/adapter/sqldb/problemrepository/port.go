// Package problemrepository stores the problem catalog in a SQL database
package problemrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
	querybuilder "gitlab.com/offlinejudge.net/internal/utils"
)

var (
	_ secondary.ProblemRepository = (*ProblemRepository)(nil)
	_ secondary.ProblemWriter     = (*ProblemRepository)(nil)
)

// ProblemRepository implements the ProblemRepository interface with sqlx.
// It works on postgres and sqlite.
type ProblemRepository struct {
	db     *sqlx.DB
	schema string
	logger primary.Logger
}

// New creates a problem repository on the given schema
func New(db *sqlx.DB, logger primary.Logger, schema string) *ProblemRepository {
	return &ProblemRepository{
		db:     db,
		schema: schema,
		logger: logger,
	}
}

func (r *ProblemRepository) table() string {
	tbl := domain.GetProblemTable().TableName()
	if r.schema == "" {
		return tbl
	}
	return fmt.Sprintf("%s.%s", r.schema, tbl)
}

// EnsureSchema creates the problems table when missing
func (r *ProblemRepository) EnsureSchema(ctx context.Context) error {
	if r.db.DriverName() == "postgres" && r.schema != "" && r.schema != "public" {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", r.schema)); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			function_name TEXT NOT NULL,
			template TEXT NOT NULL DEFAULT '',
			test_cases TEXT NOT NULL,
			examples TEXT NOT NULL DEFAULT '[]'
		)`, r.table())
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.Error("Failed to create problems table", "error", err)
		return fmt.Errorf("failed to create problems table: %w", err)
	}
	return nil
}

func (r *ProblemRepository) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(r.db.DriverName()), query)
}

// GetProblem retrieves a problem by ID
func (r *ProblemRepository) GetProblem(ctx context.Context, problemID string) (*domain.ProblemSpec, error) {
	tbl := domain.GetProblemTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Select(tbl.Columns()...).
		From(tbl.TableName()).
		Where(fmt.Sprintf("%s = ?", tbl.ID), problemID).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build problem query: %w", err)
	}

	var row domain.ProblemRow
	if err := r.db.GetContext(ctx, &row, r.rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", errs.ErrProblemNotFound, problemID)
		}
		r.logger.Error("Failed to get problem", "problemId", problemID, "error", err)
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}

	return row.ToSpec()
}

// ListProblems retrieves the summaries ordered by position
func (r *ProblemRepository) ListProblems(ctx context.Context) ([]domain.ProblemSummary, error) {
	tbl := domain.GetProblemTable()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Select(tbl.ID, tbl.Title, tbl.Difficulty).
		From(tbl.TableName()).
		OrderBy(tbl.Position, true).
		OrderBy(tbl.ID, true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	var rows []struct {
		ID         string `db:"id"`
		Title      string `db:"title"`
		Difficulty string `db:"difficulty"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.rebind(query), args...); err != nil {
		r.logger.Error("Failed to list problems", "error", err)
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	summaries := make([]domain.ProblemSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, domain.ProblemSummary{
			ID:         row.ID,
			Title:      row.Title,
			Difficulty: domain.Difficulty(row.Difficulty),
		})
	}
	return summaries, nil
}

// SaveProblem inserts or replaces a problem
func (r *ProblemRepository) SaveProblem(ctx context.Context, problem *domain.ProblemSpec, position int) error {
	if err := problem.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidProblem, err)
	}
	row, err := domain.NewProblemRow(problem, position)
	if err != nil {
		return err
	}

	tbl := domain.GetProblemTable()
	cols := tbl.Columns()
	query, args, err := querybuilder.NewQueryBuilder(r.schema).
		Insert(cols...).
		Into(tbl.TableName()).
		Values(row.Values()...).
		OnConflict(tbl.ID).
		SetExclude(cols[1:]...).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.rebind(query), args...); err != nil {
		r.logger.Error("Failed to save problem", "problemId", problem.ID, "error", err)
		return fmt.Errorf("failed to save problem: %w", err)
	}
	return nil
}
