package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemaFS embed.FS

// Driver names the database/sql driver backing the store.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

func ParseDriver(value string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(value))) {
	case "", DriverSQLite:
		return DriverSQLite, nil
	case DriverPostgres, "postgresql":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unsupported driver %q", value)
}

// Open connects and applies the schema. For sqlite dsn is a file path or
// ":memory:"; for postgres it is a lib/pq connection string.
func Open(driver Driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db dsn is required")
	}

	source := dsn
	if driver == DriverSQLite {
		source = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(driver), source)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if err := applySchema(context.Background(), db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func applySchema(ctx context.Context, db *sql.DB, driver Driver) error {
	name := "schema_sqlite.sql"
	if driver == DriverPostgres {
		name = "schema_postgres.sql"
	}

	schemaSQL, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if driver == DriverSQLite {
		if err := ensureColumn(ctx, db, "notes", "sort_index", "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}

	return nil
}

// ensureColumn adds a column to sqlite databases created before it existed.
func ensureColumn(ctx context.Context, db *sql.DB, table, column, definition string) error {
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM pragma_table_info(?) WHERE name = ? LIMIT 1", table, column).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check %s.%s column: %w", table, column, err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}
	return nil
}
