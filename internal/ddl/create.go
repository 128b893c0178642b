// Package ddl defines a small model for SQL table definitions and renders
// CREATE and DROP statements from it for each supported dialect.
//
// Column types are logical (Varchar, Numeric, Serial, ...) and only become
// SQL types at render time through Dialect.Types, so one TableDef serves
// every backend.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders an idempotent CREATE TABLE statement for t in
// dialect d.
//
// Rules:
//
//   - t.Name must be non-empty and t must have at least one column.
//
//   - Each column must have a non-empty Name and a Type known to d.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//     where NOT NULL is added when Nullable == false.
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (<cols>) clause, except a Serial column in a dialect whose
//     serial type already declares the key.
//
//   - Each foreign key becomes FOREIGN KEY (<col>) REFERENCES <table> (<col>).
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	pks := make([]string, 0, 1)
	known := make(map[string]bool, len(t.Columns))

	for _, c := range t.Columns {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ, ok := d.Types[c.Type]
		if !ok || typ == "" {
			return "", fmt.Errorf("ddl: column %s: type %d has no %s mapping", cname, c.Type, d.Name)
		}
		known[cname] = true

		var sb strings.Builder
		sb.WriteString(d.Ident(cname))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		inlineKey := c.Type == Serial && d.SerialIsKey
		if !c.Nullable && !inlineKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey && !inlineKey {
			pks = append(pks, d.Ident(cname))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		if !known[fk.Column] {
			return "", fmt.Errorf("ddl: foreign key on unknown column %s in table %s", fk.Column, name)
		}
		if fk.RefTable == "" || fk.RefColumn == "" {
			return "", fmt.Errorf("ddl: foreign key %s in table %s has no target", fk.Column, name)
		}
		cols = append(cols, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Ident(fk.Column), d.Ident(fk.RefTable), d.Ident(fk.RefColumn)))
	}

	var sb strings.Builder
	if d.Guard != "" {
		sb.WriteString(fmt.Sprintf(d.Guard, name))
		sb.WriteByte('\n')
	}
	sb.WriteString("CREATE TABLE ")
	if d.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(d.Ident(name))
	sb.WriteString(" (\n  ")
	sb.WriteString(strings.Join(cols, ",\n  "))
	sb.WriteString("\n);")
	return sb.String(), nil
}
