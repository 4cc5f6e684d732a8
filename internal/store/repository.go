package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printer"
	_ "github.com/mattn/go-sqlite3"
)

// Repository is the durable, append-only reading history. The engine is the
// only writer; the viewer queries it concurrently.
type Repository interface {
	Append(ctx context.Context, reading printer.Reading) error
	Query(ctx context.Context, since time.Time, limit int) ([]printer.Reading, error)
	Recent(ctx context.Context, window time.Duration, limit int) ([]printer.Reading, error)
	Close() error
}

type sqliteRepository struct {
	db  *sql.DB
	log logger.Logger
	mu  sync.Mutex
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, errFactory.WithData(ErrStorageInit, struct {
				Phase string
				Path  string
				Error string
			}{
				Phase: "create_directory",
				Path:  cfg.DBPath,
				Error: err.Error(),
			})
		}
	}

	// WAL keeps viewer queries readable while the engine appends
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateSchema(db, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Reading store initialized")

	return &sqliteRepository{
		db:  db,
		log: log,
	}, nil
}

func (r *sqliteRepository) Append(ctx context.Context, reading printer.Reading) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		reading.Timestamp.UTC().Format(time.RFC3339),
		reading.NozzleTemp,
		reading.BedTemp,
		string(reading.PrinterStatus),
		string(reading.FilamentStatus),
		reading.PrintProgress,
	)
	if err != nil {
		return errFactory.Wrap(ErrAppendFailed, err)
	}

	return nil
}

// Query returns readings newer than since, newest first, capped at limit.
// A non-positive limit falls back to DefaultQueryLimit.
func (r *sqliteRepository) Query(ctx context.Context, since time.Time, limit int) ([]printer.Reading, error) {
	errFactory := errors.New()

	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	rows, err := r.db.QueryContext(ctx, selectReadingsSQL,
		since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var readings []printer.Reading
	for rows.Next() {
		var (
			reading        printer.Reading
			timestamp      string
			printerStatus  string
			filamentStatus string
		)
		if err := rows.Scan(
			&timestamp,
			&reading.NozzleTemp,
			&reading.BedTemp,
			&printerStatus,
			&filamentStatus,
			&reading.PrintProgress,
		); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}

		ts, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, errFactory.WithData(ErrQueryFailed, timestamp)
		}
		reading.Timestamp = ts
		reading.PrinterStatus = printer.Status(printerStatus)
		reading.FilamentStatus = printer.FilamentStatus(filamentStatus)

		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return readings, nil
}

// Recent returns the trailing window of history, newest first.
func (r *sqliteRepository) Recent(ctx context.Context, window time.Duration, limit int) ([]printer.Reading, error) {
	return r.Query(ctx, time.Now().Add(-window), limit)
}

func (r *sqliteRepository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.log.Debug().Msg("Reading store closed")

	return nil
}
