package mysql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	driver "github.com/go-sql-driver/mysql"
)

//go:embed users.sql
var schema embed.FS

// LoadDB opens the pool, checks connectivity and creates the users table.
func LoadDB(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse MYSQL_DSN: %w", err)
	}
	// created_at is scanned into time.Time
	cfg.ParseTime = true

	connector, err := driver.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to DB: %w", err)
	}
	if err := exec(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create tables: %w", err)
	}
	return db, nil
}

func exec(ctx context.Context, db *sql.DB) error {
	files := []string{
		"users.sql",
	}
	for _, file := range files {
		query, err := schema.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(query)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file, err)
		}
	}
	return nil
}
