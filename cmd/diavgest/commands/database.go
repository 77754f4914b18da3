package commands

import (
	"database/sql"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/logger"
	"github.com/opengov-gr/diavgest/store"
)

// openDatabase opens and migrates the record cache. An empty dbPath
// resolves through the configuration chain.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := config.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := store.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}
