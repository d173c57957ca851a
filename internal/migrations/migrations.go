// Package migrations applies the versioned SQL schema shipped with the binary.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed sql/*.sql
var files embed.FS

// Embedded returns the schema migrations compiled into the binary. Files are
// named V<version>__<description>.sql.
func Embedded() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

type migration struct {
	Version int
	Name    string
	Path    string
}

// Apply runs every migration from source that is not yet recorded in
// schema_migrations, in version order, each inside its own transaction. It
// returns the names of the migrations it applied.
func Apply(ctx context.Context, db *sqlx.DB, source fs.FS) ([]string, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	migs, err := listMigrations(source)
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, mig := range migs {
		if applied[mig.Version] {
			continue
		}
		if err := applyMigration(ctx, db, source, mig); err != nil {
			return done, err
		}
		done = append(done, mig.Name)
	}
	return done, nil
}

func ensureTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func listMigrations(source fs.FS) ([]migration, error) {
	paths, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, err
	}
	migs := make([]migration, 0, len(paths))
	seen := make(map[int]string, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		version, ok := parseVersion(name)
		if !ok {
			return nil, fmt.Errorf("migration %s: name must start with V<version>__", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name
		migs = append(migs, migration{Version: version, Name: name, Path: p})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	return migs, nil
}

func appliedVersions(ctx context.Context, db *sqlx.DB) (map[int]bool, error) {
	var rows []int
	if err := db.SelectContext(ctx, &rows, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(rows))
	for _, v := range rows {
		applied[v] = true
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, source fs.FS, mig migration) error {
	content, err := fs.ReadFile(source, mig.Path)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply %s: %w", mig.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record %s: %w", mig.Name, err)
	}
	return tx.Commit()
}

func parseVersion(name string) (int, bool) {
	if !strings.HasPrefix(name, "V") {
		return 0, false
	}
	parts := strings.SplitN(name[1:], "__", 2)
	if len(parts) != 2 {
		return 0, false
	}
	version, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	return version, true
}
