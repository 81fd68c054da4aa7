package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// DiffCategory classifies one schema drift finding.
type DiffCategory string

const (
	DiffMissing      DiffCategory = "MISSING"       // in YAML, not on the server
	DiffExtra        DiffCategory = "EXTRA"         // on the server, not in YAML
	DiffTypeMismatch DiffCategory = "TYPE_MISMATCH" // same column, different type
)

// Diff is a single difference between the YAML schema and the live table.
type Diff struct {
	Category  DiffCategory
	Column    string
	YAMLValue string
	LiveValue string
}

func (d Diff) String() string {
	switch d.Category {
	case DiffMissing:
		return fmt.Sprintf("%s: column %s (%s) missing from live table", d.Category, d.Column, d.YAMLValue)
	case DiffExtra:
		return fmt.Sprintf("%s: live column %s (%s) not in schema", d.Category, d.Column, d.LiveValue)
	default:
		return fmt.Sprintf("%s: column %s is %s in schema but %s live", d.Category, d.Column, d.YAMLValue, d.LiveValue)
	}
}

// LiveColumn is one row of system.columns for the target table.
type LiveColumn struct {
	Name string
	Type string
}

// FetchLiveColumns reads the live column set for the schema's table.
func FetchLiveColumns(ctx context.Context, conn driver.Conn, s *Schema) (map[string]LiveColumn, error) {
	rows, err := conn.Query(ctx,
		"SELECT name, type FROM system.columns WHERE database = ? AND table = ?",
		s.Database, s.Table)
	if err != nil {
		return nil, fmt.Errorf("query system.columns: %w", err)
	}
	defer rows.Close()

	live := make(map[string]LiveColumn)
	for rows.Next() {
		var c LiveColumn
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan system.columns: %w", err)
		}
		live[c.Name] = c
	}
	return live, rows.Err()
}

// Compare diffs the YAML schema against a live column set. An empty diff
// list means the table matches the source of truth. Nullability mismatches
// surface as type mismatches since the Nullable wrapper is part of the type.
func Compare(s *Schema, live map[string]LiveColumn) []Diff {
	var diffs []Diff

	for _, col := range s.Columns {
		lc, ok := live[col.Name]
		if !ok {
			diffs = append(diffs, Diff{
				Category:  DiffMissing,
				Column:    col.Name,
				YAMLValue: col.Type,
			})
			continue
		}
		if !typesEqual(col.Type, lc.Type) {
			diffs = append(diffs, Diff{
				Category:  DiffTypeMismatch,
				Column:    col.Name,
				YAMLValue: col.Type,
				LiveValue: lc.Type,
			})
		}
	}

	for name, lc := range live {
		if _, ok := s.Column(name); !ok {
			diffs = append(diffs, Diff{
				Category:  DiffExtra,
				Column:    name,
				LiveValue: lc.Type,
			})
		}
	}

	return diffs
}

// typesEqual compares ClickHouse types ignoring whitespace inside
// parameterized types like DateTime64(3, 'UTC').
func typesEqual(a, b string) bool {
	norm := func(t string) string {
		return strings.ReplaceAll(t, " ", "")
	}
	return norm(a) == norm(b)
}

// Validate fetches the live columns and compares them against the schema.
func Validate(ctx context.Context, conn driver.Conn, s *Schema) (bool, []Diff, error) {
	live, err := FetchLiveColumns(ctx, conn, s)
	if err != nil {
		return false, nil, err
	}
	diffs := Compare(s, live)
	return len(diffs) == 0, diffs, nil
}
