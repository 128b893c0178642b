package storage

import (
	"context"
	"fmt"

	"sparkify/internal/schema"
)

// EnsureSchema creates any of the five tables that do not exist yet.
func EnsureSchema(ctx context.Context, db DB) error {
	stmts, err := schema.CreateStatements(db.Dialect().DDL)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// ResetSchema drops the five tables and creates them again, empty.
func ResetSchema(ctx context.Context, db DB) error {
	for _, s := range schema.DropStatements(db.Dialect().DDL) {
		if err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return EnsureSchema(ctx, db)
}
