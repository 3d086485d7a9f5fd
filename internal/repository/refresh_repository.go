package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// Fixed width so that MAX() over the text column orders chronologically
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RefreshRepository defines the interface for the refresh ledger
type RefreshRepository interface {
	SaveRefresh(record entities.RefreshRecord) error
	GetLastRefresh(dataset string) (*entities.RefreshRecord, error)
	GetDatasets() ([]string, error)
	GetLastUpdateTime() (time.Time, error)
	Close() error
}

// SQLiteRefreshRepository implements RefreshRepository using SQLite
type SQLiteRefreshRepository struct {
	db     *sql.DB
	DBPath string
	logger *slog.Logger
}

// NewSQLiteRefreshRepository creates and initializes a new SQLite ledger
func NewSQLiteRefreshRepository(dbPath string, logger *slog.Logger) (*SQLiteRefreshRepository, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "refresh.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Info("opening refresh ledger", "path", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS refresh_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset TEXT NOT NULL,
		rows INTEGER NOT NULL,
		path TEXT NOT NULL,
		refreshed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dataset ON refresh_log(dataset);
	CREATE INDEX IF NOT EXISTS idx_refreshed_at ON refresh_log(refreshed_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteRefreshRepository{
		db:     db,
		DBPath: dbPath,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (r *SQLiteRefreshRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRefresh appends a ledger entry
func (r *SQLiteRefreshRepository) SaveRefresh(record entities.RefreshRecord) error {
	_, err := r.db.Exec(
		`INSERT INTO refresh_log(dataset, rows, path, refreshed_at) VALUES(?, ?, ?, ?)`,
		record.Dataset,
		record.Rows,
		record.Path,
		record.RefreshedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh of %s: %w", record.Dataset, err)
	}
	r.logger.Debug("recorded refresh", "dataset", record.Dataset, "rows", record.Rows)
	return nil
}

// GetLastRefresh returns the newest entry for a dataset, or nil if it was never refreshed
func (r *SQLiteRefreshRepository) GetLastRefresh(dataset string) (*entities.RefreshRecord, error) {
	row := r.db.QueryRow(`
		SELECT id, dataset, rows, path, refreshed_at
		FROM refresh_log
		WHERE dataset = ?
		ORDER BY refreshed_at DESC, id DESC
		LIMIT 1`, dataset)

	var rec entities.RefreshRecord
	var refreshedAt string
	if err := row.Scan(&rec.ID, &rec.Dataset, &rec.Rows, &rec.Path, &refreshedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last refresh of %s: %w", dataset, err)
	}

	ts, err := time.Parse(timestampLayout, refreshedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp '%s': %w", refreshedAt, err)
	}
	rec.RefreshedAt = ts
	return &rec, nil
}

// GetDatasets returns every dataset that has been refreshed at least once
func (r *SQLiteRefreshRepository) GetDatasets() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT dataset FROM refresh_log ORDER BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []string
	for rows.Next() {
		var dataset string
		if err := rows.Scan(&dataset); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		datasets = append(datasets, dataset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return datasets, nil
}

// GetLastUpdateTime returns the most recent refresh of any dataset, zero if none
func (r *SQLiteRefreshRepository) GetLastUpdateTime() (time.Time, error) {
	var ts sql.NullString
	if err := r.db.QueryRow("SELECT MAX(refreshed_at) FROM refresh_log").Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("failed to get last update time: %w", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(timestampLayout, ts.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", ts.String, err)
	}
	return t, nil
}
