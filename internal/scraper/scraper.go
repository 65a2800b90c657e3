// Package scraper extracts full article bodies to enrich scoring input.
// Extraction is best effort; items keep their feed description when a page
// cannot be fetched or parsed.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// content selectors tried in order, most specific first
var contentSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".content p",
	"main p",
}

// Scraper fetches pages with a shared HTTP client and a bounded worker pool.
type Scraper struct {
	client      *http.Client
	concurrency int
}

// New builds a Scraper. concurrency <= 0 means a pool of 4.
func New(timeout time.Duration, concurrency int) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scraper{
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
	}
}

// ExtractBody fetches one URL and returns the article text.
func (s *Scraper) ExtractBody(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	var paragraphs []string
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 10 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}

	if len(paragraphs) == 0 {
		return "", fmt.Errorf("can't get content from %s", pageURL)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// ExtractAll fetches bodies for all URLs concurrently and returns the ones
// that worked, keyed by URL.
func (s *Scraper) ExtractAll(ctx context.Context, urls []string) map[string]string {
	result := make(map[string]string, len(urls))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for _, pageURL := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			body, err := s.ExtractBody(ctx, pageURL)
			if err != nil {
				slog.Debug("article extraction failed", "url", pageURL, "error", err)
				return
			}
			if len(body) < 100 {
				return
			}

			mu.Lock()
			result[pageURL] = body
			mu.Unlock()
		}(pageURL)
	}
	wg.Wait()

	return result
}
