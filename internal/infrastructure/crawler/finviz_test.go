package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"holdup/internal/crawl"
)

const finvizPage = `
<html><body>
<table id="news-table">
  <tr>
    <td>Jan-05-24 09:30AM</td>
    <td><a href="https://example.com/fresh">Fresh headline</a> <span>(Reuters)</span></td>
  </tr>
  <tr>
    <td>08:15AM</td>
    <td><a href="https://example.com/earlier">Earlier same day</a> <span>(Bloomberg)</span></td>
  </tr>
  <tr>
    <td>Jan-02-24 04:00PM</td>
    <td><a href="https://example.com/stale">Stale headline</a> <span>(WSJ)</span></td>
  </tr>
</table>
</body></html>`

func TestFinvizFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "AAPL" {
			t.Errorf("unexpected ticker param: %s", r.URL.Query().Get("t"))
		}
		_, _ = w.Write([]byte(finvizPage))
	}))
	defer server.Close()

	c := NewFinvizCrawler(server.URL, server.Client())

	// Window opens Jan 4 UTC, so only the Jan 5 rows qualify.
	since := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	articles, err := c.Fetch(context.Background(), crawl.Request{Ticker: "aapl", Since: since})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles inside window, got %d", len(articles))
	}
	if articles[0].Headline != "Fresh headline" {
		t.Fatalf("unexpected headline: %s", articles[0].Headline)
	}
	if articles[0].ProviderID != "https://example.com/fresh" {
		t.Fatalf("url should be the provider id: %s", articles[0].ProviderID)
	}
	if articles[0].Source != "Reuters" {
		t.Fatalf("unexpected source: %s", articles[0].Source)
	}
	if articles[1].Headline != "Earlier same day" {
		t.Fatalf("time-only row did not inherit the date: %s", articles[1].Headline)
	}
	if _, err := time.Parse(time.RFC3339, articles[0].PublishedAt); err != nil {
		t.Fatalf("published_at not RFC3339: %s", articles[0].PublishedAt)
	}
}

func TestParseNewsStamp(t *testing.T) {
	t.Parallel()

	loc := time.UTC

	full, day, ok := parseNewsStamp("Jan-05-24 09:30AM", time.Time{}, loc)
	if !ok {
		t.Fatalf("full stamp not parsed")
	}
	if full.Hour() != 9 || full.Minute() != 30 {
		t.Fatalf("unexpected time: %v", full)
	}

	bare, _, ok := parseNewsStamp("08:15AM", day, loc)
	if !ok {
		t.Fatalf("bare stamp not parsed")
	}
	if bare.Day() != full.Day() || bare.Hour() != 8 {
		t.Fatalf("bare stamp did not inherit day: %v", bare)
	}

	if _, _, ok := parseNewsStamp("08:15AM", time.Time{}, loc); ok {
		t.Fatalf("bare stamp with no prior date should be rejected")
	}
}
