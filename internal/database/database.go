package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Connect opens the store with the configured driver. Production runs
// against Postgres; SQLite covers local development and the test suite.
func Connect(driver, dsn string) *sqlx.DB {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if driver == "sqlite" {
		// A single connection keeps in-memory databases coherent.
		db.SetMaxOpenConns(1)
	}
	return db
}
