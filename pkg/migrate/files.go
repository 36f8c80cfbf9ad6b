package migrate

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugRe    = regexp.MustCompile(`[^a-z0-9]+`)

	nowFunc = time.Now
)

type migrationFile struct {
	Filename string
	Version  string
	Name     string
}

func parseFilename(filename string) (migrationFile, bool) {
	m := sqlFileRe.FindStringSubmatch(filename)
	if m == nil {
		return migrationFile{}, false
	}
	return migrationFile{Filename: filename, Version: m[1], Name: m[2]}, true
}

// slugify lowercases name and collapses every run of other characters to one
// underscore.
func slugify(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// listSQL returns the .sql files in dir in directory order. Non-matching
// .sql names are reported as an error.
func listSQL(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	files := make([]migrationFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		f, ok := parseFilename(e.Name())
		if !ok {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		files = append(files, f)
	}
	return files, nil
}
