package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const migrationsTable = "schema_migrations_migrate"

// RunMigrations applies the file-based migrations in dir using the postgres
// or sqlite driver. For postgres it baselines to the latest migration if the
// schema (attempts table) exists but migrate's metadata table is missing.
func RunMigrations(driverName, databaseURL, dir string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations dir: %w", err)
	}

	sqlDB, err := sql.Open(driverName, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open DB: %w", err)
	}
	defer sqlDB.Close()

	var driver database.Driver
	switch driverName {
	case "postgres":
		driver, err = pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		driver, err = sqlitemigrate.WithInstance(sqlDB, &sqlitemigrate.Config{MigrationsTable: migrationsTable})
	default:
		return fmt.Errorf("unsupported database driver %q", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(absDir), driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if driverName == "postgres" {
		baseline(sqlDB, m, absDir)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	log.Printf("[MIGRATE] Migrations applied (driver=%s, dir=%s)", driverName, absDir)
	return nil
}

// baseline forces the latest version when the schema predates migrate's metadata table.
func baseline(sqlDB *sql.DB, m *migrate.Migrate, dir string) {
	var attemptsExist bool
	row := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='attempts')")
	if err := row.Scan(&attemptsExist); err != nil || !attemptsExist {
		return
	}

	var migrateTableExist bool
	row2 := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", migrationsTable)
	if err := row2.Scan(&migrateTableExist); err != nil || migrateTableExist {
		return
	}

	latest := findLatestMigrationVersion(dir)
	if latest > 0 {
		log.Printf("[MIGRATE] Baseline DB to version %d (existing schema present)", latest)
		if ferr := m.Force(int(latest)); ferr != nil {
			log.Printf("[MIGRATE] Force to version %d failed: %v", latest, ferr)
		}
	}
}

// findLatestMigrationVersion scans the migrations directory for files that start with
// a numeric version prefix (e.g. 000001_) and returns the highest version number.
func findLatestMigrationVersion(dir string) int64 {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	re := regexp.MustCompile(`^0*([0-9]+)_`)
	var max int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		m := re.FindStringSubmatch(name)
		if len(m) < 2 {
			continue
		}
		v, _ := strconv.ParseInt(m[1], 10, 64)
		if v > max {
			max = v
		}
	}

	return max
}
