package migrate

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"inmobiliaria-portal/internal/logger"
)

//go:embed migrations/*.sql
var embeddedFS embed.FS

// Record is one applied migration as tracked in schema_migrations
type Record struct {
	Filename   string    `json:"filename"`
	Checksum   string    `json:"checksum"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Runner applies ordered, checksummed SQL migration files exactly once
// each. Files are named NNNN_description.sql and run in lexical order.
type Runner struct {
	db   *sql.DB
	fsys fs.FS
	dir  string
}

// NewRunner builds a runner over the migrations embedded in the binary
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, fsys: embeddedFS, dir: "migrations"}
}

// NewRunnerFS builds a runner over an arbitrary filesystem; dir is the
// directory holding the .sql files
func NewRunnerFS(db *sql.DB, fsys fs.FS, dir string) *Runner {
	return &Runner{db: db, fsys: fsys, dir: dir}
}

// Run brings the schema to the current version. Already-applied files
// are skipped; an applied file whose content changed is an error, not a
// re-run. Returns the number of migrations applied in this call.
func (r *Runner) Run() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}

	files, err := r.listFiles()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range files {
		data, err := fs.ReadFile(r.fsys, r.dir+"/"+name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		sum := checksum(data)

		var existing string
		err = r.db.QueryRow(
			`SELECT checksum FROM schema_migrations WHERE filename = $1`, name,
		).Scan(&existing)
		switch {
		case err == nil:
			if existing != sum {
				return applied, fmt.Errorf("migration %s was modified after being applied (checksum %s, recorded %s)", name, sum, existing)
			}
			continue
		case err != sql.ErrNoRows:
			return applied, fmt.Errorf("failed to check migration %s: %w", name, err)
		}

		if err := r.apply(name, string(data), sum); err != nil {
			return applied, err
		}
		applied++
		logger.Log.Infof("Migrate: applied %s", name)
	}

	return applied, nil
}

// Applied returns the recorded migrations in execution order
func (r *Runner) Applied() ([]Record, error) {
	rows, err := r.db.Query(
		`SELECT filename, checksum, executed_at FROM schema_migrations ORDER BY filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Filename, &rec.Checksum, &rec.ExecutedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Runner) ensureTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename VARCHAR(255) PRIMARY KEY,
			checksum VARCHAR(64) NOT NULL,
			executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (r *Runner) listFiles() ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) > 4 && name[len(name)-4:] == ".sql" {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one migration and records it inside the same transaction,
// so a crash mid-file leaves neither half applied.
func (r *Runner) apply(name, content, sum string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", name, err)
	}

	if _, err := tx.Exec(content); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %s failed: %w", name, err)
	}

	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)`,
		name, sum,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}

	return tx.Commit()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
