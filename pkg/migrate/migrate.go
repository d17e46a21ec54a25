// Package migrate applies the goose SQL migrations that define the order,
// audit, webhook and wholesale tables.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the migrations directory relative to the repository root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrate: embedded migrations: %v", err))
	}
	return sub
}

// Source picks the migration files: dir on disk when set, the embedded set otherwise.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Runner applies migrations from one source against one database.
type Runner struct {
	provider *goose.Provider
}

// NewRunner builds a goose provider over fsys for Postgres.
func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Result summarizes one applied or rolled back migration.
type Result struct {
	Version   int64
	Path      string
	Direction string
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) ([]Result, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return summarize(results), fmt.Errorf("goose up: %w", err)
	}
	return summarize(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) ([]Result, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return summarize([]*goose.MigrationResult{result}), nil
}

// Redo rolls back and reapplies the most recent migration.
func (r *Runner) Redo(ctx context.Context) ([]Result, error) {
	down, err := r.Down(ctx)
	if err != nil {
		return nil, err
	}
	up, err := r.provider.UpByOne(ctx)
	if err != nil {
		return down, fmt.Errorf("goose redo: %w", err)
	}
	return append(down, summarize([]*goose.MigrationResult{up})...), nil
}

// To migrates up or down until the database sits at version.
func (r *Runner) To(ctx context.Context, version string) ([]Result, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return summarize(results), fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return summarize(results), nil
}

// Status lists every known migration and whether it is applied.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

func summarize(results []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
		})
	}
	return out
}
