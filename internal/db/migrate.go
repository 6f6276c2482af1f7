package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies every .sql file in name order. A non-empty dir that
// exists on disk takes precedence over the embedded set, so deployments can
// ship schema patches without rebuilding the binary.
func RunMigrations(db *sql.DB, dir string) error {
	fsys, root, err := migrationSource(dir)
	if err != nil {
		return err
	}
	names, err := sqlFiles(fsys, root)
	if err != nil {
		return err
	}
	for _, name := range names {
		stmt, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if len(stmt) == 0 {
			continue
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationSource(dir string) (fs.FS, string, error) {
	if dir != "" {
		_, err := os.Stat(dir)
		if err == nil {
			return os.DirFS(dir), ".", nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stat migrations dir: %w", err)
		}
	}
	return embeddedMigrations, "migrations", nil
}

func sqlFiles(fsys fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, path.Join(root, entry.Name()))
	}
	sort.Strings(names)
	return names, nil
}
