package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Migrator applies the embedded schema for one SQL dialect.
type Migrator struct {
	db      *sql.DB
	dialect string
}

// NewMigrator returns a migrator for dialect "mysql" or "sqlite".
func NewMigrator(db *sql.DB, dialect string) *Migrator {
	return &Migrator{db: db, dialect: dialect}
}

// Up runs every migration file in lexical order (001_x.sql, 002_y.sql, ...).
// Files may hold several statements separated by semicolons; every
// statement is written to be idempotent so Up can run on each start.
func (m *Migrator) Up(ctx context.Context) error {
	dir := path.Join("migrations", m.dialect)
	entries, err := migrationFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read embedded migrations for %q: %w", m.dialect, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := migrationFS.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		for _, stmt := range splitStatements(string(raw)) {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

func splitStatements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";") {
		lines := make([]string, 0)
		for _, l := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(l), "--") {
				continue
			}
			lines = append(lines, l)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}
