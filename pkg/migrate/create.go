package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: forward statements
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: rollback statements
-- +goose StatementEnd
`

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql. A version that
// is already taken in dir is bumped by one second until it is free.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, at time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	taken, err := Versions(os.DirFS(dir))
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(taken))
	for _, v := range taken {
		used[v] = true
	}
	version := at.Format(versionLayout)
	for used[version] {
		at = at.Add(time.Second)
		version = at.Format(versionLayout)
	}

	fullpath := filepath.Join(dir, version+"_"+safe+".sql")
	if err := os.WriteFile(fullpath, []byte(fmt.Sprintf(sqlTemplate, safe)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}
