// Package migrations embeds the SQL schema shared by the Postgres and SQLite backends.
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

// Direction selects which half of each migration is applied
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Script is a single migration file
type Script struct {
	Name string
	SQL  string
}

// Scripts returns the migration scripts for the given direction, in the order they must run.
// Up scripts run in ascending version order, down scripts in descending order.
func Scripts(direction Direction) ([]Script, error) {
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

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		content, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		scripts = append(scripts, Script{
			Name: strings.TrimSuffix(name, ".sql"),
			SQL:  string(content),
		})
	}

	return scripts, nil
}
