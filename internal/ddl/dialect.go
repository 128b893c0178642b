package ddl

import (
	"fmt"
	"strings"
)

// Dialect adapts the generic table model to one SQL engine.
type Dialect struct {
	Name string
	// Types maps every logical Type to a concrete SQL type.
	Types map[Type]string
	// Quote quotes an identifier. nil emits identifiers as-is.
	Quote func(string) string
	// IfNotExists renders CREATE TABLE IF NOT EXISTS.
	IfNotExists bool
	// Guard, when set, is a format string taking the table name that is
	// prepended to CREATE TABLE to make it conditional.
	Guard string
	// SerialIsKey means the Serial type string already declares the primary
	// key (SQLite AUTOINCREMENT), so no separate constraint is emitted.
	SerialIsKey bool
}

// Ident quotes name according to the dialect.
func (d Dialect) Ident(name string) string {
	if d.Quote == nil {
		return name
	}
	return d.Quote(name)
}

// DropTableSQL renders an idempotent DROP TABLE.
func (d Dialect) DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.Ident(table))
}

var (
	// Postgres emits identifiers as-is; every table name used here is legal
	// unquoted.
	Postgres = Dialect{
		Name: "postgres",
		Types: map[Type]string{
			Varchar:   "VARCHAR",
			Text:      "VARCHAR",
			Int:       "INT",
			BigInt:    "BIGINT",
			Numeric:   "NUMERIC",
			TimeOfDay: "TIME",
			Serial:    "SERIAL",
		},
		IfNotExists: true,
	}

	// SQLServer brackets identifiers; time is a type name in T-SQL.
	SQLServer = Dialect{
		Name: "mssql",
		Types: map[Type]string{
			Varchar:   "NVARCHAR(255)",
			Text:      "NVARCHAR(MAX)",
			Int:       "INT",
			BigInt:    "BIGINT",
			Numeric:   "FLOAT",
			TimeOfDay: "TIME(6)",
			Serial:    "INT IDENTITY(1,1)",
		},
		Quote: func(s string) string { return "[" + s + "]" },
		Guard: "IF OBJECT_ID(N'%s', N'U') IS NULL",
	}

	SQLite = Dialect{
		Name: "sqlite",
		Types: map[Type]string{
			Varchar:   "TEXT",
			Text:      "TEXT",
			Int:       "INTEGER",
			BigInt:    "INTEGER",
			Numeric:   "REAL",
			TimeOfDay: "TEXT",
			Serial:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		},
		IfNotExists: true,
		SerialIsKey: true,
	}

	// MySQL backtick-quotes identifiers. DOUBLE keeps durations exact for
	// the equality lookup.
	MySQL = Dialect{
		Name: "mysql",
		Types: map[Type]string{
			Varchar:   "VARCHAR(255)",
			Text:      "TEXT",
			Int:       "INT",
			BigInt:    "BIGINT",
			Numeric:   "DOUBLE",
			TimeOfDay: "TIME(6)",
			Serial:    "INT AUTO_INCREMENT",
		},
		Quote:       quoteBacktick,
		IfNotExists: true,
	}
)

func quoteBacktick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
