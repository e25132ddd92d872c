package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens the PostgreSQL connection shared by the migration
// runner, the health check and the gorm layer.
func Connect(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}
