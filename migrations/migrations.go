// Package migrations embeds the SQL schema shared by PostgreSQL and SQLite.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Direction selects which half of each migration to apply.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Scripts returns the migration scripts for a direction in apply order:
// ascending for up, descending for down.
func Scripts(direction Direction) ([]string, error) {
	if direction != Up && direction != Down {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	names, err := fs.Glob(files, "*."+string(direction)+".sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	if direction == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		scripts = append(scripts, string(b))
	}
	return scripts, nil
}

// Statements splits a script into individual statements, one per Exec.
func Statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
