// Package registry records processed archives in a sqlite database so a
// re-run over the same corpus can skip inputs that already parsed.
package registry

import (
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"
)

var Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{}))

// Outcome of a processed archive.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Entry is one processed archive, keyed by content hash so a renamed or
// re-bucketed file is still recognized.
type Entry struct {
	SHA256      string
	Name        string
	RunID       string
	Outcome     string
	Systems     int
	ProcessedAt time.Time
}

// Recorder is the capability the batch runner consumes.
type Recorder interface {
	Set(entry *Entry) error
	Get(sha256 string) (*Entry, error)
	Close() error
}

var ErrEntryNotFound = errors.New("entry not found")

type Registry struct {
	db *sql.DB
	sync.Mutex
}

var createTable = `CREATE TABLE IF NOT EXISTS archives (
	sha256 TEXT PRIMARY KEY,
	name TEXT,
	run_id TEXT,
	outcome TEXT,
	systems int,
	processed_at int NOT NULL );`

func New(location string) (r *Registry, err error) {
	if location == "" {
		location = "file::memory:"
	} else {
		_, err = os.Stat(location)
		if errors.Is(err, os.ErrNotExist) {
			dir, _ := filepath.Split(location)
			if dir != "" {
				if err = os.MkdirAll(dir, 0o755); err != nil {
					return
				}
			}
			if _, err = os.Create(location); err != nil {
				return
			}
		}
	}
	db, err := sql.Open("sqlite", location)
	if err != nil {
		return
	}
	if _, err = db.Exec(createTable); err != nil {
		return
	}
	Logger.Debug("registry opened", slog.String("location", location))
	r = &Registry{db: db}
	return
}

func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) Get(sha256 string) (entry *Entry, err error) {
	r.Lock()
	defer r.Unlock()
	entry = &Entry{}
	var processedAt int64
	err = r.db.QueryRow("SELECT sha256, name, run_id, outcome, systems, processed_at FROM archives WHERE sha256 = ?", sha256).Scan(
		&entry.SHA256,
		&entry.Name,
		&entry.RunID,
		&entry.Outcome,
		&entry.Systems,
		&processedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return
	}
	entry.ProcessedAt = time.UnixMilli(processedAt)
	return
}

var Now = time.Now

func (r *Registry) Set(entry *Entry) (err error) {
	r.Lock()
	defer r.Unlock()
	if entry.ProcessedAt.UnixMilli() <= 0 {
		entry.ProcessedAt = Now()
	}
	tx, err := r.db.Begin()
	if err != nil {
		return
	}
	defer tx.Commit()
	_, err = tx.Exec(`
INSERT INTO archives (sha256, name, run_id, outcome, systems, processed_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.SHA256,
		entry.Name,
		entry.RunID,
		entry.Outcome,
		entry.Systems,
		entry.ProcessedAt.UnixMilli(),
	)
	if err == nil {
		return
	}
	if e, ok := err.(*sqlite.Error); ok && e.Code() == 1555 {
		_, err = tx.Exec(`
UPDATE archives SET name=$2, run_id=$3, outcome=$4, systems=$5, processed_at=$6
WHERE sha256 = $1`,
			entry.SHA256,
			entry.Name,
			entry.RunID,
			entry.Outcome,
			entry.Systems,
			entry.ProcessedAt.UnixMilli(),
		)
		return err
	}
	return
}
