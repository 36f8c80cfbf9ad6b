package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named
// <YYYYMMDDHHMMSS>_<slug>.sql into dir and returns its path. A migration with
// the same slug may exist only once.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	existing, err := listSQL(dir)
	if err != nil {
		return "", err
	}
	for _, f := range existing {
		if f.Name == slug {
			return "", fmt.Errorf("migration %q already exists as %s", slug, f.Filename)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", nowFunc().UTC().Format(versionLayout), slug))
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	if _, err := fmt.Fprintf(fh, sqlTemplate, slug); err != nil {
		fh.Close()
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return "", fmt.Errorf("close migration %q: %w", path, err)
	}
	return path, nil
}
