package store

import (
	"golang.org/x/xerrors"
)

// Dialect describes a SQL database the store can write to.
type Dialect struct {
	// Name is the name used in configuration, e.g. "postgres".
	Name string

	// Driver is the database/sql driver name.
	Driver string

	create []string
}

var (
	// Postgres writes through the pgx driver.
	Postgres = Dialect{
		Name:   "postgres",
		Driver: "pgx",
		create: tableDefinitions("SERIAL PRIMARY KEY"),
	}

	// SQLite writes to an embedded database file, or memory with ":memory:".
	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		create: tableDefinitions("INTEGER PRIMARY KEY AUTOINCREMENT"),
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case Postgres.Name, "postgresql":
		return Postgres, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, xerrors.Errorf("unknown database driver %q", name)
	}
}
