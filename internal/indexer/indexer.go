// Package indexer adapts an HTML release index into source metadata.
// It implements the search function consumed by the query optimizer.
package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/source"
)

// Config holds the scrape adapter configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client scrapes a release index's search results page.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a scrape client.
func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "indexer").Logger(),
	}
}

// Search fetches and parses the index's result page for the query. The
// filter is applied downstream; it is accepted here to satisfy the search
// function signature and reserved for indexes with server-side category
// filters.
func (c *Client) Search(ctx context.Context, query string, f *filter.Advanced) ([]source.Metadata, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("indexer base URL not configured")
	}

	searchURL := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "riptide/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}

	return c.parseResults(doc), nil
}

// parseResults walks the results table. Rows missing a title or link are
// skipped rather than failing the whole page.
func (c *Client) parseResults(doc *goquery.Document) []source.Metadata {
	var results []source.Metadata

	doc.Find("table.results tbody tr").Each(func(_ int, row *goquery.Selection) {
		titleCell := row.Find("td.name a").First()
		title := strings.TrimSpace(titleCell.Text())
		link, _ := titleCell.Attr("href")
		if title == "" || link == "" {
			return
		}

		m := source.Metadata{
			ID:    link,
			Title: title,
			Provider: source.ProviderInfo{
				ID:   c.baseURL,
				Name: "index",
				Type: source.ProviderTorrent,
				Tier: source.TierUnknown,
			},
			File: source.FileInfo{Name: title},
		}
		m.Quality.Resolution = resolutionFromTitle(title)

		if seeders, err := strconv.Atoi(strings.TrimSpace(row.Find("td.seeders").Text())); err == nil {
			m.Health.Seeders = &seeders
		}
		if leechers, err := strconv.Atoi(strings.TrimSpace(row.Find("td.leechers").Text())); err == nil {
			m.Health.Leechers = &leechers
		}
		if size, ok := parseSize(strings.TrimSpace(row.Find("td.size").Text())); ok {
			m.File.SizeBytes = &size
		}
		if added := strings.TrimSpace(row.Find("td.added").Text()); added != "" {
			if t, err := time.Parse("2006-01-02", added); err == nil {
				m.File.AddedDate = &t
			}
		}

		results = append(results, m)
	})

	c.logger.Debug().Int("results", len(results)).Msg("Parsed index results")
	return results
}

// resolutionFromTitle scans release-name tokens for a resolution label.
func resolutionFromTitle(title string) source.Resolution {
	normalized := strings.NewReplacer(".", " ", "_", " ", "[", " ", "]", " ", "(", " ", ")", " ").Replace(title)
	for _, token := range strings.Fields(normalized) {
		if res := source.ParseResolution(token); res != source.ResolutionUnknown {
			return res
		}
	}
	return source.ResolutionUnknown
}

var sizeUnits = map[string]int64{
	"B":   1,
	"KB":  1 << 10,
	"KIB": 1 << 10,
	"MB":  1 << 20,
	"MIB": 1 << 20,
	"GB":  1 << 30,
	"GIB": 1 << 30,
	"TB":  1 << 40,
	"TIB": 1 << 40,
}

// parseSize converts strings like "1.4 GB" or "732.5 MiB" to bytes.
func parseSize(s string) (int64, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, false
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || value < 0 {
		return 0, false
	}
	unit, ok := sizeUnits[strings.ToUpper(fields[1])]
	if !ok {
		return 0, false
	}
	return int64(value * float64(unit)), true
}
