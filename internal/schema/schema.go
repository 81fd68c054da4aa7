// Package schema makes a YAML file the single source of truth for the
// trades table: the loader parses and validates it, DDL renders the
// CREATE TABLE statement, and the introspector compares the YAML against a
// live server's system.columns to detect drift.
package schema

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column describes one table column.
type Column struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"` // ClickHouse type, e.g. "Nullable(Float64)"
	Description string `yaml:"description"`
	Derived     bool   `yaml:"derived"`  // computed from another column, not from the API
	Critical    bool   `yaml:"critical"` // identity or ordering column; never nullable
}

// Nullable reports whether the column type is wrapped in Nullable().
func (c Column) Nullable() bool {
	return strings.HasPrefix(c.Type, "Nullable(")
}

// Schema is a parsed table definition.
type Schema struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Database    string   `yaml:"database"`
	Table       string   `yaml:"table"`
	Engine      string   `yaml:"engine"`
	PartitionBy string   `yaml:"partition_by"`
	OrderBy     []string `yaml:"order_by"`
	Columns     []Column `yaml:"columns"`
}

// FullTableName returns database.table.
func (s *Schema) FullTableName() string {
	return s.Database + "." + s.Table
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DerivedColumns returns the columns computed from other fields rather than
// taken from the API.
func (s *Schema) DerivedColumns() []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Derived {
			out = append(out, c)
		}
	}
	return out
}

// Load reads and validates a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return &s, nil
}

func (s *Schema) validate() error {
	var errs []error

	if s.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if s.Table == "" {
		errs = append(errs, errors.New("table is required"))
	}
	if s.Engine == "" {
		errs = append(errs, errors.New("engine is required"))
	}
	if len(s.OrderBy) == 0 {
		errs = append(errs, errors.New("order_by must not be empty"))
	}
	if len(s.Columns) == 0 {
		errs = append(errs, errors.New("columns must not be empty"))
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			errs = append(errs, errors.New("column with empty name"))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("duplicate column %q", c.Name))
		}
		seen[c.Name] = true
		if c.Type == "" {
			errs = append(errs, fmt.Errorf("column %q has no type", c.Name))
		}
		if c.Critical && c.Nullable() {
			errs = append(errs, fmt.Errorf("critical column %q must not be nullable", c.Name))
		}
	}
	for _, key := range s.OrderBy {
		if !seen[key] {
			errs = append(errs, fmt.Errorf("order_by references unknown column %q", key))
		}
	}

	return errors.Join(errs...)
}

// DDL renders the CREATE TABLE IF NOT EXISTS statement.
func (s *Schema) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s\n(\n", s.FullTableName())
	for i, c := range s.Columns {
		fmt.Fprintf(&b, "    %s %s", c.Name, c.Type)
		if c.Description != "" {
			fmt.Fprintf(&b, " COMMENT '%s'", strings.ReplaceAll(c.Description, "'", "\\'"))
		}
		if i < len(s.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, ")\nENGINE = %s\n", s.Engine)
	if s.PartitionBy != "" {
		fmt.Fprintf(&b, "PARTITION BY %s\n", s.PartitionBy)
	}
	fmt.Fprintf(&b, "ORDER BY (%s)", strings.Join(s.OrderBy, ", "))
	return b.String()
}

// DatabaseDDL renders the CREATE DATABASE statement.
func (s *Schema) DatabaseDDL() string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.Database)
}
