package ddl

import (
	"reflect"
	"strings"
	"testing"
)

// TestBuildCreateTableSQL checks rendering per dialect and the validation
// errors for malformed definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	keyed := TableDef{
		Name: "t",
		Columns: []ColumnDef{
			{Name: "id", Type: Serial, PrimaryKey: true},
			{Name: "name", Type: Varchar, Nullable: true},
		},
	}

	tests := []struct {
		name        string
		dialect     Dialect
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty name returns error",
			dialect:     Postgres,
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Type: Int}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns returns error",
			dialect:     Postgres,
			def:         TableDef{Name: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			dialect:     Postgres,
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: " ", Type: Int}}},
			errContains: "column with empty name",
		},
		{
			name:        "unknown type returns error",
			dialect:     Postgres,
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: "id", Type: Type(99)}}},
			errContains: "has no postgres mapping",
		},
		{
			name:    "fk on unknown column returns error",
			dialect: Postgres,
			def: TableDef{
				Name:        "t",
				Columns:     []ColumnDef{{Name: "id", Type: Int}},
				ForeignKeys: []ForeignKey{{Column: "song_id", RefTable: "songs", RefColumn: "song_id"}},
			},
			errContains: "unknown column song_id",
		},
		{
			name:    "fk without target returns error",
			dialect: Postgres,
			def: TableDef{
				Name:        "t",
				Columns:     []ColumnDef{{Name: "id", Type: Int}},
				ForeignKeys: []ForeignKey{{Column: "id"}},
			},
			errContains: "has no target",
		},
		{
			name:    "postgres serial key",
			dialect: Postgres,
			def:     keyed,
			wantSQL: "CREATE TABLE IF NOT EXISTS t (\n  id SERIAL NOT NULL,\n  name VARCHAR,\n  PRIMARY KEY (id)\n);",
		},
		{
			name:    "sqlite serial key is inline",
			dialect: SQLite,
			def:     keyed,
			wantSQL: "CREATE TABLE IF NOT EXISTS t (\n  id INTEGER PRIMARY KEY AUTOINCREMENT,\n  name TEXT\n);",
		},
		{
			name:    "mssql guard and brackets",
			dialect: SQLServer,
			def:     keyed,
			wantSQL: "IF OBJECT_ID(N't', N'U') IS NULL\nCREATE TABLE [t] (\n  [id] INT IDENTITY(1,1) NOT NULL,\n  [name] NVARCHAR(255),\n  PRIMARY KEY ([id])\n);",
		},
		{
			name:    "mysql backticks",
			dialect: MySQL,
			def:     keyed,
			wantSQL: "CREATE TABLE IF NOT EXISTS `t` (\n  `id` INT AUTO_INCREMENT NOT NULL,\n  `name` VARCHAR(255),\n  PRIMARY KEY (`id`)\n);",
		},
		{
			name:    "default expression",
			dialect: Postgres,
			def:     TableDef{Name: "t", Columns: []ColumnDef{{Name: "n", Type: Int, Default: "0"}}},
			wantSQL: "CREATE TABLE IF NOT EXISTS t (\n  n INT NOT NULL DEFAULT 0\n);",
		},
		{
			name:    "foreign key",
			dialect: Postgres,
			def: TableDef{
				Name:        "p",
				Columns:     []ColumnDef{{Name: "song_id", Type: Varchar, Nullable: true}},
				ForeignKeys: []ForeignKey{{Column: "song_id", RefTable: "songs", RefColumn: "song_id"}},
			},
			wantSQL: "CREATE TABLE IF NOT EXISTS p (\n  song_id VARCHAR,\n  FOREIGN KEY (song_id) REFERENCES songs (song_id)\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.dialect, tt.def)
			if tt.errContains != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\nwant:\n%s\n\ngot:\n%s", tt.wantSQL, got)
			}
		})
	}
}

func TestDropTableSQL(t *testing.T) {
	t.Parallel()

	if got := Postgres.DropTableSQL("time"); got != "DROP TABLE IF EXISTS time;" {
		t.Fatalf("postgres drop = %q", got)
	}
	if got := SQLServer.DropTableSQL("time"); got != "DROP TABLE IF EXISTS [time];" {
		t.Fatalf("mssql drop = %q", got)
	}
	if got := MySQL.DropTableSQL("time"); got != "DROP TABLE IF EXISTS `time`;" {
		t.Fatalf("mysql drop = %q", got)
	}
}

func TestMySQLIdentEscapesBackticks(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"simple", "`simple`"},
		{"tick`name", "`tick``name`"},
	}
	for _, tc := range cases {
		if got := MySQL.Ident(tc.in); got != tc.want {
			t.Fatalf("Ident(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColumnNamesSkipsSerial(t *testing.T) {
	t.Parallel()

	def := TableDef{Name: "time", Columns: []ColumnDef{
		{Name: "time_id", Type: Serial, PrimaryKey: true},
		{Name: "start_time", Type: TimeOfDay},
		{Name: "hour", Type: Int},
	}}
	want := []string{"start_time", "hour"}
	if got := def.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ColumnNames = %v, want %v", got, want)
	}
}
