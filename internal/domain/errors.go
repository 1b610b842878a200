package domain

import "fmt"

// StorageWriteError means a partition could not be durably written. Fatal for
// the crawl cycle that triggered it.
type StorageWriteError struct {
	Kind string
	Day  string
	Err  error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("write %s partition %s: %v", e.Kind, e.Day, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageReadError means a partition is corrupt or unreadable. The affected
// day is reported and skipped; other days proceed.
type StorageReadError struct {
	Kind string
	Day  string
	Err  error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("read %s partition %s: %v", e.Kind, e.Day, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// CrawlError means the external fetch failed for one ticker. Recovered at the
// orchestrator and surfaced in the per-ticker report.
type CrawlError struct {
	Ticker string
	Err    error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %v", e.Ticker, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }

// BuildConflictError means another catalog build holds the same day. Retry
// after it completes.
type BuildConflictError struct {
	Day string
}

func (e *BuildConflictError) Error() string {
	return fmt.Sprintf("catalog build for %s already in progress", e.Day)
}
