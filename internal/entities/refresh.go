package entities

import "time"

// RefreshRecord is a ledger entry written after every successful network refresh
type RefreshRecord struct {
	ID          int64
	Dataset     string    // Cache key of the refreshed dataset
	Rows        int       // Number of rows written to the cache
	Path        string    // Cache file that was overwritten
	RefreshedAt time.Time // When the cache file was written
}

// Model summarises what a trainer was fitted on
type Model struct {
	Name     string
	Rows     int
	Features []string
	From     time.Time
	To       time.Time
}
