package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayLayout is the partition key format for staging and catalog dates.
const DayLayout = "2006-01-02"

// DayKey renders the UTC calendar date a timestamp falls on.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a partition key back into a UTC midnight timestamp.
func ParseDay(key string) (time.Time, error) {
	t, err := time.Parse(DayLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", key, err)
	}
	return t.UTC(), nil
}

// LocalDay pins the calendar date t falls on in its own location to the UTC
// midnight used as a partition key. Converting the instant instead would key
// an evening timestamp west of UTC into the next day's partition.
func LocalDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RawArticle is one entry exactly as a crawler returned it. Staged verbatim;
// parsing and validation happen later, in normalization.
type RawArticle struct {
	ProviderID  string   `json:"provider_id"`
	Tickers     []string `json:"tickers"`
	Headline    string   `json:"headline"`
	Summary     string   `json:"summary"`
	Source      string   `json:"source"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
}

// Batch is the unit of staging: everything one crawl call returned.
type Batch struct {
	Provider  string       `json:"provider"`
	Ticker    string       `json:"ticker"`
	FetchedAt time.Time    `json:"fetched_at"`
	Articles  []RawArticle `json:"articles"`
}

// ArticleRecord is the canonical, normalized article. ID is derived from the
// provider's own identifier and is the deduplication key across all of
// staging history.
type ArticleRecord struct {
	ID          string    `json:"id"`
	Tickers     []string  `json:"tickers"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Catalog maps ticker symbol to its deduplicated, chronologically ordered
// articles for one day.
type Catalog map[string][]ArticleRecord

// Normalize converts a staged raw entry into an ArticleRecord. Entries with
// no provider id, no tickers, or an unparseable publication timestamp are
// unusable and rejected; callers count them and move on.
func Normalize(raw RawArticle, fetchedAt time.Time) (ArticleRecord, error) {
	id := strings.TrimSpace(raw.ProviderID)
	if id == "" {
		return ArticleRecord{}, fmt.Errorf("raw article has no provider id")
	}

	tickers := make([]string, 0, len(raw.Tickers))
	seen := map[string]struct{}{}
	for _, t := range raw.Tickers {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		tickers = append(tickers, sym)
	}
	if len(tickers) == 0 {
		return ArticleRecord{}, fmt.Errorf("raw article %s has no tickers", id)
	}
	sort.Strings(tickers)

	publishedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.PublishedAt))
	if err != nil {
		return ArticleRecord{}, fmt.Errorf("raw article %s: parse published_at: %w", id, err)
	}

	return ArticleRecord{
		ID:          id,
		Tickers:     tickers,
		Headline:    strings.TrimSpace(raw.Headline),
		Summary:     strings.TrimSpace(raw.Summary),
		Source:      strings.TrimSpace(raw.Source),
		URL:         strings.TrimSpace(raw.URL),
		PublishedAt: publishedAt.UTC(),
		FetchedAt:   fetchedAt.UTC(),
	}, nil
}
