package iocache

import (
	"embed"
	"errors"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationResult reports the schema version before and after a migration.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// migrationSource returns the embedded migrations directory for a backend.
func migrationSource(backend schema.DatabaseBackend) (fs.FS, error) {
	var dir string
	switch backend {
	case schema.SQLiteBackend:
		dir = "migrations/sqlite"
	case schema.MySQLBackend:
		dir = "migrations/mysql"
	case schema.PostgreSQLBackend:
		dir = "migrations/postgres"
	default:
		return nil, eris.Errorf("iocache: no migrations for backend %q", backend)
	}
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, eris.Wrap(err, "iocache: access migrations directory")
	}
	return sub, nil
}

// MigrateHistory runs database migrations for the run history store.
//   - If targetVersion < 0, it migrates to the latest version.
//   - If targetVersion == 0, it rolls back all migrations.
//   - If targetVersion > 0, it migrates to the specified version.
func MigrateHistory(backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrationResult, error) {
	if backend == schema.NoneBackend {
		return MigrationResult{}, eris.New("iocache: migrations are not supported for the none backend")
	}

	db, _, err := openDB(backend, connStr)
	if err != nil {
		return MigrationResult{}, err
	}
	defer func() { _ = db.Close() }()

	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return MigrationResult{}, eris.Wrapf(err, "iocache: create %s migrate driver", backend)
	}

	sub, err := migrationSource(backend)
	if err != nil {
		return MigrationResult{}, err
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return MigrationResult{}, eris.Wrap(err, "iocache: create migration source")
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "envgap", driver)
	if err != nil {
		return MigrationResult{}, eris.Wrap(err, "iocache: create migrate instance")
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, eris.Wrap(err, "iocache: get current migration version")
	}
	if dirty {
		return MigrationResult{}, eris.Errorf("iocache: database is dirty at version %d; fix manually or force the version", current)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationResult{}, eris.Wrapf(err, "iocache: migrate to version %d", targetVersion)
	}

	res := MigrationResult{From: current, To: current, Changed: err == nil}
	if res.Changed {
		res.To, _, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			res.To = 0
		} else if err != nil {
			return res, eris.Wrap(err, "iocache: read new migration version")
		}
	}
	return res, nil
}
