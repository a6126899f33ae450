package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Connect establishes a connection to PostgreSQL or SQLite
func Connect(driver, databaseURL string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if driver == "sqlite" {
		// single writer avoids SQLITE_BUSY under concurrent attempts
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
