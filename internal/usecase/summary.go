package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"holdup/internal/domain"
	"holdup/internal/ports"
)

// defaultSummaryPrompt frames the model as an assistant for casual retail
// investors; config may override it.
const defaultSummaryPrompt = `You are a financial news assistant for casual retail investors. Analyze news for the given stock ticker using this format:

**Sentiment:** [Bullish / Bearish / Neutral]

**Credibility:** [Is this confirmed news or speculation? Are sources reliable?]

**Short term:** [What might happen in the next days/weeks?]

**Long term:** [What might this mean over months/years?]

**Pros:** [Reasons this news is good for holders]
**Cons:** [Reasons to be concerned]

Rules:
- If no articles are directly about this stock (just passing mentions), say "No direct news" and skip the analysis
- Be concise - one sentence per field
- Do NOT add info not in the articles
- Do NOT give buy/sell advice`

// SummaryConsumer reads a catalog partition and renders one plain-English
// section per ticker into a markdown file. The catalog guarantees each group
// is deduplicated and chronologically ordered; this consumer only formats.
type SummaryConsumer struct {
	catalog      ports.CatalogStore
	chat         ports.ChatClient
	notifier     ports.Notifier
	outputDir    string
	systemPrompt string
	logger       *slog.Logger
}

// SummaryDeps wires the consumer's collaborators.
type SummaryDeps struct {
	Catalog      ports.CatalogStore
	Chat         ports.ChatClient
	Notifier     ports.Notifier
	OutputDir    string
	SystemPrompt string
	Logger       *slog.Logger
}

// NewSummaryConsumer constructs the consumer.
func NewSummaryConsumer(deps SummaryDeps) *SummaryConsumer {
	prompt := strings.TrimSpace(deps.SystemPrompt)
	if prompt == "" {
		prompt = defaultSummaryPrompt
	}
	return &SummaryConsumer{
		catalog:      deps.Catalog,
		chat:         deps.Chat,
		notifier:     deps.Notifier,
		outputDir:    deps.OutputDir,
		systemPrompt: prompt,
		logger:       deps.Logger,
	}
}

// Consume summarizes every ticker group for the day and writes
// output/summary_<day>.md. Returns the output path, empty when the catalog
// held nothing to summarize. A failed completion for one ticker is noted in
// its section and does not abort the others.
func (s *SummaryConsumer) Consume(ctx context.Context, day time.Time) (string, error) {
	key := domain.DayKey(day)

	catalog, err := s.catalog.Read(ctx, day)
	if err != nil {
		return "", err
	}
	if len(catalog) == 0 {
		return "", nil
	}

	tickers := make([]string, 0, len(catalog))
	for ticker := range catalog {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	var out strings.Builder
	fmt.Fprintf(&out, "# Stock News Summary - %s\n\n", key)

	for _, ticker := range tickers {
		records := catalog[ticker]
		summary, err := s.summarizeTicker(ctx, ticker, records)
		if err != nil {
			summary = fmt.Sprintf("_Summary unavailable: %v_", err)
			if s.logger != nil {
				s.logger.Warn("summarize failed", "ticker", ticker, "error", err)
			}
		}
		fmt.Fprintf(&out, "## %s\n\n%s\n\n", ticker, summary)
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.outputDir, fmt.Sprintf("summary_%s.md", key))
	if err := os.WriteFile(path, []byte(out.String()), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.PublishDigest(ctx, buildDigest(key, catalog, tickers)); err != nil && s.logger != nil {
			s.logger.Warn("digest notification failed", "error", err)
		}
	}

	return path, nil
}

func (s *SummaryConsumer) summarizeTicker(ctx context.Context, ticker string, records []domain.ArticleRecord) (string, error) {
	if s.chat == nil {
		return "", fmt.Errorf("no chat client configured, run `holdup setup` first")
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Ticker: %s\n\nRecent news articles:\n", ticker)
	for i, record := range records {
		fmt.Fprintf(&prompt, "\n--- Article %d ---\n", i+1)
		fmt.Fprintf(&prompt, "Title: %s\n", record.Headline)
		fmt.Fprintf(&prompt, "Source: %s\n", record.Source)
		fmt.Fprintf(&prompt, "Published: %s\n", record.PublishedAt.Format(time.RFC3339))
		fmt.Fprintf(&prompt, "Content: %s\n", record.Summary)
	}

	return s.chat.Complete(ctx, s.systemPrompt, prompt.String())
}

func buildDigest(day string, catalog domain.Catalog, tickers []string) string {
	total := 0
	var lines []string
	for _, ticker := range tickers {
		count := len(catalog[ticker])
		total += count
		lines = append(lines, fmt.Sprintf("%s: %d", ticker, count))
	}

	return fmt.Sprintf("*holdup %s*: %d tickers, %d articles\n%s",
		day, len(tickers), total, strings.Join(lines, "\n"))
}
