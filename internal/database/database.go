package database

import (
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Connect opens a Postgres pool over the pgx stdlib driver and pings
// it. Callers own the DSN; normally it comes from config.DBDSN.
func Connect(dsn string) (*sqlx.DB, error) {
	return sqlx.Connect("pgx", dsn)
}
