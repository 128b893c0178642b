package ddl

// Type is a logical column type. Each Dialect maps it to a concrete SQL type.
type Type int

const (
	// Varchar is a short string usable as a key.
	Varchar Type = iota
	// Text is an unbounded string.
	Text
	Int
	BigInt
	// Numeric holds song durations and artist coordinates.
	Numeric
	// TimeOfDay is a time without date.
	TimeOfDay
	// Serial is an auto-incrementing integer surrogate key.
	Serial
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (unquoted; the dialect quotes it at render time)
//   - Type: logical type, mapped through Dialect.Types
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 0, CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	Type       Type
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// ForeignKey references a single column of another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableDef holds the table name, an ordered list of columns and optional
// foreign keys.
type TableDef struct {
	Name        string
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
}

// ColumnNames returns the column names in declaration order, skipping
// Serial columns, which the database fills in.
func (t TableDef) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Type == Serial {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}
