package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the assignment store using the given driver and DSN,
// verifies the connection, and applies pool defaults.
func Open(driver, dsn string) (*sql.DB, error) {
	name, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", name, err)
	}
	SetDriver(name)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	return db, nil
}

func normalizeDriver(driver string) (string, error) {
	switch driver {
	case "mysql", "mariadb":
		return "mysql", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "":
		return "", fmt.Errorf("database driver is required")
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
