package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"holdup/internal/crawl"
	"holdup/internal/domain"
)

const finvizBaseURL = "https://finviz.com/quote.ashx"

// FinvizCrawler scrapes the news table on a Finviz quote page. It is the
// fallback provider for tickers without API coverage; articles carry their
// URL as the provider identifier because the page exposes no other id.
type FinvizCrawler struct {
	baseURL  string
	client   *http.Client
	location *time.Location
}

var _ crawl.Crawler = (*FinvizCrawler)(nil)

// NewFinvizCrawler wires an HTTP client; baseURL defaults to finviz.com.
func NewFinvizCrawler(baseURL string, client *http.Client) *FinvizCrawler {
	if baseURL == "" {
		baseURL = finvizBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	// Finviz timestamps are US eastern.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &FinvizCrawler{baseURL: baseURL, client: client, location: loc}
}

// Name identifies the strategy inside the registry.
func (f *FinvizCrawler) Name() string {
	return "finviz"
}

// Fetch loads the quote page for the ticker and extracts news rows newer than
// the request window start.
func (f *FinvizCrawler) Fetch(ctx context.Context, req crawl.Request) ([]domain.RawArticle, error) {
	pageURL, err := buildQuoteURL(f.baseURL, req.Ticker)
	if err != nil {
		return nil, err
	}

	doc, err := f.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: %w", req.Ticker, err)
	}

	return f.extractArticles(doc, req), nil
}

func (f *FinvizCrawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "holdup/1.0")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finviz returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (f *FinvizCrawler) extractArticles(doc *goquery.Document, req crawl.Request) []domain.RawArticle {
	ticker := strings.ToUpper(req.Ticker)
	var (
		collected []domain.RawArticle
		lastDay   time.Time
	)

	doc.Find("table.fullview-news-outer tr, table#news-table tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		stamp := strings.TrimSpace(cells.First().Text())
		publishedAt, day, ok := parseNewsStamp(stamp, lastDay, f.location)
		if !ok {
			return true
		}
		lastDay = day

		// Rows are newest-first; once past the window, the rest is older.
		if publishedAt.Before(req.Since) {
			return false
		}

		link := row.Find("a").First()
		href, exists := link.Attr("href")
		if !exists || strings.TrimSpace(link.Text()) == "" {
			return true
		}

		source := strings.Trim(strings.TrimSpace(row.Find("span").First().Text()), "()")

		collected = append(collected, domain.RawArticle{
			ProviderID:  href,
			Tickers:     []string{ticker},
			Headline:    strings.TrimSpace(link.Text()),
			Source:      source,
			URL:         href,
			PublishedAt: publishedAt.UTC().Format(time.RFC3339),
		})
		return true
	})

	return collected
}

// parseNewsStamp handles both "Jan-05-24 09:00AM" and the bare "09:00AM" used
// by rows that share the previous row's date.
func parseNewsStamp(stamp string, lastDay time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	stamp = strings.TrimSpace(stamp)
	if stamp == "" {
		return time.Time{}, lastDay, false
	}

	if t, err := time.ParseInLocation("Jan-02-06 03:04PM", stamp, loc); err == nil {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		return t, day, true
	}

	if lastDay.IsZero() {
		return time.Time{}, lastDay, false
	}
	if t, err := time.ParseInLocation("03:04PM", stamp, loc); err == nil {
		full := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		return full, lastDay, true
	}

	return time.Time{}, lastDay, false
}

func buildQuoteURL(base, ticker string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid finviz url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("t", strings.ToUpper(ticker))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
