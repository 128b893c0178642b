// Package schema holds the five table definitions of the sparkify star schema
// and renders their create and drop statements.
package schema

import (
	"fmt"

	"sparkify/internal/ddl"
)

// Table names.
const (
	Users     = "users"
	Songs     = "songs"
	Artists   = "artists"
	Time      = "time"
	SongPlays = "songplays"
)

var usersTable = ddl.TableDef{
	Name: Users,
	Columns: []ddl.ColumnDef{
		{Name: "user_id", Type: ddl.Int, PrimaryKey: true},
		{Name: "first_name", Type: ddl.Text, Nullable: true},
		{Name: "last_name", Type: ddl.Text, Nullable: true},
		{Name: "gender", Type: ddl.Varchar, Nullable: true},
		{Name: "level", Type: ddl.Varchar, Nullable: true},
	},
}

var songsTable = ddl.TableDef{
	Name: Songs,
	Columns: []ddl.ColumnDef{
		{Name: "song_id", Type: ddl.Varchar, PrimaryKey: true},
		{Name: "title", Type: ddl.Text, Nullable: true},
		{Name: "artist_id", Type: ddl.Varchar, Nullable: true},
		{Name: "year", Type: ddl.Int, Nullable: true},
		{Name: "duration", Type: ddl.Numeric, Nullable: true},
	},
}

var artistsTable = ddl.TableDef{
	Name: Artists,
	Columns: []ddl.ColumnDef{
		{Name: "artist_id", Type: ddl.Varchar, PrimaryKey: true},
		{Name: "name", Type: ddl.Text, Nullable: true},
		{Name: "location", Type: ddl.Text, Nullable: true},
		{Name: "latitude", Type: ddl.Numeric, Nullable: true},
		{Name: "longitude", Type: ddl.Numeric, Nullable: true},
	},
}

var timeTable = ddl.TableDef{
	Name: Time,
	Columns: []ddl.ColumnDef{
		{Name: "time_id", Type: ddl.Serial, PrimaryKey: true},
		{Name: "start_time", Type: ddl.TimeOfDay, Nullable: true},
		{Name: "hour", Type: ddl.Int, Nullable: true},
		{Name: "day", Type: ddl.Int, Nullable: true},
		{Name: "week", Type: ddl.Int, Nullable: true},
		{Name: "month", Type: ddl.Int, Nullable: true},
		{Name: "year", Type: ddl.Int, Nullable: true},
		{Name: "weekday", Type: ddl.Int, Nullable: true},
	},
}

var songPlaysTable = ddl.TableDef{
	Name: SongPlays,
	Columns: []ddl.ColumnDef{
		{Name: "songplay_id", Type: ddl.Serial, PrimaryKey: true},
		{Name: "start_time", Type: ddl.BigInt},
		{Name: "user_id", Type: ddl.Int},
		{Name: "level", Type: ddl.Varchar, Nullable: true},
		{Name: "song_id", Type: ddl.Varchar, Nullable: true},
		{Name: "artist_id", Type: ddl.Varchar, Nullable: true},
		{Name: "session_id", Type: ddl.Varchar, Nullable: true},
		{Name: "location", Type: ddl.Text, Nullable: true},
		{Name: "user_agent", Type: ddl.Text, Nullable: true},
	},
	ForeignKeys: []ddl.ForeignKey{
		{Column: "artist_id", RefTable: Artists, RefColumn: "artist_id"},
		{Column: "song_id", RefTable: Songs, RefColumn: "song_id"},
	},
}

// Tables returns the definitions in creation order. songplays comes last
// because it references songs and artists.
func Tables() []ddl.TableDef {
	return []ddl.TableDef{usersTable, songsTable, artistsTable, timeTable, songPlaysTable}
}

// DropOrder lists the tables in the order they can be dropped.
func DropOrder() []string {
	return []string{SongPlays, Users, Songs, Artists, Time}
}

// TimeColumns is the bulk-load column order of the time table.
func TimeColumns() []string { return timeTable.ColumnNames() }

// SongPlayColumns is the bulk-load column order of the songplays table.
func SongPlayColumns() []string { return songPlaysTable.ColumnNames() }

// CreateStatements renders one CREATE TABLE per table in creation order.
func CreateStatements(d ddl.Dialect) ([]string, error) {
	tables := Tables()
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		stmt, err := ddl.BuildCreateTableSQL(d, t)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", t.Name, err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

// DropStatements renders one DROP TABLE per table in drop order.
func DropStatements(d ddl.Dialect) []string {
	names := DropOrder()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, d.DropTableSQL(n))
	}
	return out
}
