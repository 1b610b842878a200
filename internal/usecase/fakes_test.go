package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"holdup/internal/crawl"
	"holdup/internal/domain"
)

// In-memory fakes for the storage and collaborator ports.

type memStaging struct {
	mu       sync.Mutex
	batches  map[string][]domain.Batch
	readErr  map[string]error
	writeErr error
	gateDay  string
	readGate chan struct{} // when set, Read of gateDay blocks until closed
}

func newMemStaging() *memStaging {
	return &memStaging{batches: map[string][]domain.Batch{}, readErr: map[string]error{}}
}

func (m *memStaging) Append(_ context.Context, day time.Time, batch domain.Batch) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.DayKey(day)
	m.batches[key] = append(m.batches[key], batch)
	return nil
}

func (m *memStaging) Read(_ context.Context, day time.Time) ([]domain.Batch, error) {
	key := domain.DayKey(day)
	if m.readGate != nil && key == m.gateDay {
		<-m.readGate
	}
	if err := m.readErr[key]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Batch(nil), m.batches[key]...), nil
}

func (m *memStaging) ReadRange(ctx context.Context, from, to time.Time) (map[string][]domain.Batch, error) {
	out := map[string][]domain.Batch{}
	var firstErr error
	for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
		batches, err := m.Read(ctx, day)
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

func (m *memStaging) Days(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var days []string
	for key := range m.batches {
		days = append(days, key)
	}
	sort.Strings(days)
	return days, nil
}

type memCatalog struct {
	mu       sync.Mutex
	parts    map[string]domain.Catalog
	replaces int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{parts: map[string]domain.Catalog{}}
}

func (m *memCatalog) Replace(_ context.Context, day time.Time, catalog domain.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if catalog == nil {
		catalog = domain.Catalog{}
	}
	m.parts[domain.DayKey(day)] = catalog
	m.replaces++
	return nil
}

func (m *memCatalog) Read(_ context.Context, day time.Time) (domain.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	catalog, ok := m.parts[domain.DayKey(day)]
	if !ok {
		return domain.Catalog{}, nil
	}
	return catalog, nil
}

func (m *memCatalog) Days(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var days []string
	for key := range m.parts {
		days = append(days, key)
	}
	sort.Strings(days)
	return days, nil
}

type fakeCrawler struct {
	name  string
	fetch func(ctx context.Context, req crawl.Request) ([]domain.RawArticle, error)
}

func (f *fakeCrawler) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeCrawler) Fetch(ctx context.Context, req crawl.Request) ([]domain.RawArticle, error) {
	return f.fetch(ctx, req)
}

type fakeWatchlist struct {
	tickers []string
	err     error
}

func (f *fakeWatchlist) List() ([]string, error)        { return f.tickers, f.err }
func (f *fakeWatchlist) Add([]string) ([]string, error) { return f.tickers, nil }
func (f *fakeWatchlist) Remove(string) (bool, error)    { return false, nil }

type fakeChat struct {
	complete func(ctx context.Context, system, user string) (string, error)
}

func (f *fakeChat) Complete(ctx context.Context, system, user string) (string, error) {
	return f.complete(ctx, system, user)
}

type fakeNotifier struct {
	digests []string
	err     error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, digest)
	return nil
}

func mustDay(key string) time.Time {
	d, err := domain.ParseDay(key)
	if err != nil {
		panic(err)
	}
	return d
}

func raw(id string, tickers []string, publishedAt string) domain.RawArticle {
	return domain.RawArticle{
		ProviderID:  id,
		Tickers:     tickers,
		Headline:    "headline " + id,
		Summary:     "summary " + id,
		Source:      "Benzinga",
		URL:         "https://example.com/" + id,
		PublishedAt: publishedAt,
	}
}
