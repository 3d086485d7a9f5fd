// Package repository provides data access implementations
package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

// CacheStore persists datasets as flat files
type CacheStore interface {
	Read(name string) (*entities.Table, error)
	Write(table *entities.Table) (string, error)
	Path(name string) string
}

// FileCacheStore implements CacheStore with one CSV file per dataset
type FileCacheStore struct {
	Dir    string
	logger *slog.Logger
}

// NewFileCacheStore creates the cache directory if needed
func NewFileCacheStore(dir string, logger *slog.Logger) (*FileCacheStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCacheStore{Dir: dir, logger: logger}, nil
}

// Path returns the cache file of a dataset
func (s *FileCacheStore) Path(name string) string {
	return filepath.Join(s.Dir, name+".csv")
}

// Read loads a cached dataset. A missing file yields *entities.CacheMissError.
func (s *FileCacheStore) Read(name string) (*entities.Table, error) {
	path := s.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &entities.CacheMissError{Dataset: name, Path: path}
		}
		return nil, fmt.Errorf("failed to open cache file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if len(header) == 0 || header[0] != "date" {
		return nil, fmt.Errorf("cache file %s: first column must be \"date\", got %q", path, header)
	}

	table := entities.NewTable(name, header[1:]...)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		date, err := entities.ParseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("cache file %s: invalid date %q: %w", path, record[0], err)
		}
		table.Rows = append(table.Rows, entities.Row{Date: date, Values: record[1:]})
	}

	s.logger.Debug("read cache file", "dataset", name, "path", path, "rows", len(table.Rows))
	return table, nil
}

// Write replaces the cache file of table.Name with the table contents and returns its path
func (s *FileCacheStore) Write(table *entities.Table) (string, error) {
	if err := table.Validate(); err != nil {
		return "", err
	}

	path := s.Path(table.Name)
	tmp, err := os.CreateTemp(s.Dir, table.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", table.Name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(append([]string{"date"}, table.Columns...)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write header of %s: %w", table.Name, err)
	}
	for _, row := range table.Rows {
		if err := w.Write(append([]string{entities.FormatDate(row.Date)}, row.Values...)); err != nil {
			tmp.Close()
			return "", fmt.Errorf("failed to write row of %s: %w", table.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to flush %s: %w", table.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file for %s: %w", table.Name, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to replace cache file %s: %w", path, err)
	}

	s.logger.Info("wrote cache file", "dataset", table.Name, "path", path, "rows", len(table.Rows))
	return path, nil
}
