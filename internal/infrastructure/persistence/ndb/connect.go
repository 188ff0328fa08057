package ndb

import (
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	apperrors "github.com/alignment-core/foodalign/pkg/errors"
)

// ConnectSQLite opens (and migrates, for local snapshot files) a SQLite
// NDB database. An empty path opens an in-memory database, the usual
// shape for unit tests (spec.md §8).
func ConnectSQLite(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, apperrors.NewNDBUnavailableError(err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, apperrors.NewNDBUnavailableError(err)
	}
	return db, nil
}

// ConnectPostgres opens a Postgres NDB connection. The NDB snapshot is
// expected to be pre-loaded (spec.md §4.2: "read-only, versioned
// separately from application deploys"); AutoMigrate is not run here to
// avoid clobbering a production snapshot's indexes.
//
// replicaDSNs, when non-empty, are registered as dbresolver read
// replicas and every query from this *gorm.DB is routed to one of them:
// the NDB is never written to by this service, so there is no primary
// traffic competing for the replica's bandwidth the way there would be
// for a read/write table.
func ConnectPostgres(dsn string, logLevel logger.LogLevel, replicaDSNs ...string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, apperrors.NewNDBUnavailableError(err)
	}

	if len(replicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, len(replicaDSNs))
		for i, replicaDSN := range replicaDSNs {
			replicas[i] = postgres.Open(replicaDSN)
		}
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, apperrors.NewNDBUnavailableError(err)
		}
	}

	return db, nil
}
