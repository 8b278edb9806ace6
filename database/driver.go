package database

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Driver names as registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type target struct {
	driver string
	dsn    string
}

func (t target) dialect() schema.Dialect {
	if t.driver == DriverPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

// parseURL maps a database_url onto a driver and its DSN.
func parseURL(raw string) (target, error) {
	switch {
	case raw == "":
		return target{}, fmt.Errorf("empty database url")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return target{driver: DriverPostgres, dsn: raw}, nil
	case strings.HasPrefix(raw, "sqlite://"):
		return target{driver: DriverSQLite, dsn: strings.TrimPrefix(raw, "sqlite://")}, nil
	case strings.HasPrefix(raw, "sqlite:"):
		return target{driver: DriverSQLite, dsn: strings.TrimPrefix(raw, "sqlite:")}, nil
	case strings.HasPrefix(raw, "file:"), raw == ":memory:":
		return target{driver: DriverSQLite, dsn: raw}, nil
	case strings.Contains(raw, "://"):
		return target{}, fmt.Errorf("unsupported database url scheme in %q", raw)
	default:
		return target{driver: DriverSQLite, dsn: raw}, nil
	}
}
