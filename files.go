package auth

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

const migrationsDir = "data/sql/migrations"

// GetMigrationsFS returns the migration files for this package, rooted at
// the migrations directory.
func GetMigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		panic("AUTH: embedded migrations missing: " + err.Error())
	}
	return sub
}

// ApplyMigrations runs the embedded migrations. Statements use IF NOT
// EXISTS so running them twice is harmless.
func ApplyMigrations(ctx context.Context, db bun.IDB) error {
	return ApplyMigrationsFS(ctx, db, GetMigrationsFS())
}

// ApplyMigrationsFS runs every *.up.sql file at the root of fsys in name
// order.
func ApplyMigrationsFS(ctx context.Context, db bun.IDB, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return upstreamError(err, "failed to read migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return upstreamError(err, "failed to read migration "+name)
		}

		for _, stmt := range splitStatements(string(raw)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return upstreamError(err, "failed to apply migration "+name)
			}
		}
	}

	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
