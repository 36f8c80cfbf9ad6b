package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var requiredMarkers = []string{"-- +goose Up", "-- +goose Down"}

// ValidateDir checks that every .sql file in dir has a well formed name, a
// unique version and slug, and both goose section markers.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	files, err := listSQL(dir)
	if err != nil {
		return err
	}

	versions := make(map[string]string, len(files))
	slugs := make(map[string]string, len(files))
	for _, f := range files {
		if prev, ok := versions[f.Version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", f.Version, prev, f.Filename)
		}
		versions[f.Version] = f.Filename
		if prev, ok := slugs[f.Name]; ok {
			return fmt.Errorf("duplicate migration name %q in %q and %q", f.Name, prev, f.Filename)
		}
		slugs[f.Name] = f.Filename

		full := filepath.Join(dir, f.Filename)
		b, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read file %q: %w", full, err)
		}
		for _, marker := range requiredMarkers {
			if !strings.Contains(string(b), marker) {
				return fmt.Errorf("migration %q missing %q", f.Filename, marker)
			}
		}
	}
	return nil
}
