package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"holdup/internal/domain"
	"holdup/internal/ports"
)

const (
	stagingExt = ".jsonl"
	catalogExt = ".json"

	// Staging lines hold whole crawl batches; the bufio default of 64K is
	// too small for a busy day.
	maxStagingLine = 16 << 20
)

// FileStaging is the append-only staging log: one JSONL file per UTC day,
// one line per batch. A line is written with a single Write on an O_APPEND
// handle, so concurrent appends cannot interleave inside a batch.
type FileStaging struct {
	dir string
}

var _ ports.StagingStore = (*FileStaging)(nil)

// NewFileStaging roots the staging log at dir.
func NewFileStaging(dir string) *FileStaging {
	return &FileStaging{dir: dir}
}

func (s *FileStaging) path(day time.Time) string {
	return filepath.Join(s.dir, domain.DayKey(day)+stagingExt)
}

// Append writes one batch to the partition for day. Existing content is never
// read or rewritten; duplicate articles across batches are expected.
func (s *FileStaging) Append(_ context.Context, day time.Time, batch domain.Batch) error {
	key := domain.DayKey(day)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: err}
	}

	line, err := json.Marshal(batch)
	if err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: fmt.Errorf("marshal batch: %w", err)}
	}
	line = append(line, '\n')

	f, err := os.OpenFile(s.path(day), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: err}
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: err}
	}
	if err := f.Close(); err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: err}
	}

	return nil
}

// Read returns every batch ever appended for day, in append order. A missing
// partition is an empty day. A malformed line means the partition is corrupt.
func (s *FileStaging) Read(_ context.Context, day time.Time) ([]domain.Batch, error) {
	key := domain.DayKey(day)

	f, err := os.Open(s.path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: err}
	}
	defer f.Close()

	var batches []domain.Batch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), maxStagingLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var batch domain.Batch
		if err := json.Unmarshal([]byte(line), &batch); err != nil {
			return nil, &domain.StorageReadError{
				Kind: "staging",
				Day:  key,
				Err:  fmt.Errorf("line %d: %w", lineNo, err),
			}
		}
		batches = append(batches, batch)
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: err}
	}

	return batches, nil
}

// ReadRange reads each day in [from, to] independently; failure semantics are
// per-day, so one corrupt partition does not hide the others.
func (s *FileStaging) ReadRange(ctx context.Context, from, to time.Time) (map[string][]domain.Batch, error) {
	out := map[string][]domain.Batch{}
	var firstErr error

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.Add(24 * time.Hour) {
		batches, err := s.Read(ctx, day)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(batches) > 0 {
			out[domain.DayKey(day)] = batches
		}
	}

	return out, firstErr
}

// Days lists the staged partition dates in ascending order.
func (s *FileStaging) Days(_ context.Context) ([]string, error) {
	return listDays(s.dir, stagingExt)
}

// FileCatalog stores one JSON object per day mapping ticker to its article
// group. Replace writes to a temp file in the same directory and renames it
// over the target, so a crash never leaves a half-written partition visible.
type FileCatalog struct {
	dir string
}

var _ ports.CatalogStore = (*FileCatalog)(nil)

// NewFileCatalog roots the catalog at dir.
func NewFileCatalog(dir string) *FileCatalog {
	return &FileCatalog{dir: dir}
}

func (c *FileCatalog) path(day time.Time) string {
	return filepath.Join(c.dir, domain.DayKey(day)+catalogExt)
}

// Replace atomically swaps the whole partition for day.
func (c *FileCatalog) Replace(_ context.Context, day time.Time, catalog domain.Catalog) error {
	key := domain.DayKey(day)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}

	if catalog == nil {
		catalog = domain.Catalog{}
	}

	// Map keys marshal in sorted order, so identical input reproduces
	// byte-identical output.
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: fmt.Errorf("marshal catalog: %w", err)}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}

	if err := os.Rename(tmpName, c.path(day)); err != nil {
		_ = os.Remove(tmpName)
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}

	return nil
}

// Read loads the partition for day; a missing partition is an empty catalog.
func (c *FileCatalog) Read(_ context.Context, day time.Time) (domain.Catalog, error) {
	key := domain.DayKey(day)

	data, err := os.ReadFile(c.path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Catalog{}, nil
		}
		return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: err}
	}

	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: err}
	}

	return catalog, nil
}

// Days lists the built partition dates in ascending order.
func (c *FileCatalog) Days(_ context.Context) ([]string, error) {
	return listDays(c.dir, catalogExt)
}

func listDays(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var days []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		key := strings.TrimSuffix(name, ext)
		if _, err := domain.ParseDay(key); err != nil {
			continue
		}
		days = append(days, key)
	}
	sort.Strings(days)

	return days, nil
}
