package collector

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/trendscope/trendscope/internal/trend"
)

// Origin describes one collection region/feed in the YAML config.
type Origin struct {
	Code string `yaml:"code"`
	Lang string `yaml:"lang"`
}

// OriginsConfig is the YAML config structure
// origins:
//   - code: US
//     lang: en
type OriginsConfig struct {
	Origins []Origin `yaml:"origins"`
}

// LoadOrigins reads the origin list from a YAML file.
func LoadOrigins(path string) ([]Origin, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg OriginsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Origins) == 0 {
		return nil, fmt.Errorf("no origins configured in %s", path)
	}
	return cfg.Origins, nil
}

// language fallbacks for regions whose feed language differs from its code
var hlOverrides = map[string]string{
	"GB": "en-GB",
	"MX": "es-419",
	"KR": "ko",
	"IN": "en-IN",
	"ZA": "en-ZA",
	"AU": "en-AU",
}

const itemsPerOrigin = 5

// GoogleNewsSource fetches search results from the Google News RSS feed of
// one region.
type GoogleNewsSource struct {
	origin Origin
	parser *gofeed.Parser
}

// NewGoogleNewsSource builds a source for one origin.
func NewGoogleNewsSource(origin Origin) *GoogleNewsSource {
	return &GoogleNewsSource{origin: origin, parser: gofeed.NewParser()}
}

func (s *GoogleNewsSource) Origin() string {
	return s.origin.Code
}

func (s *GoogleNewsSource) feedURL(query string) string {
	hl := s.origin.Lang
	if hl == "" {
		hl = "en"
	}
	if override, ok := hlOverrides[s.origin.Code]; ok {
		hl = override
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", hl)
	params.Set("gl", s.origin.Code)
	params.Set("ceid", fmt.Sprintf("%s:%s", s.origin.Code, hl))
	return "https://news.google.com/rss/search?" + params.Encode()
}

// Fetch parses the feed and returns up to itemsPerOrigin items inside the
// date range.
func (s *GoogleNewsSource) Fetch(ctx context.Context, query string, dr DateRange) ([]trend.Item, error) {
	feed, err := s.parser.ParseURLWithContext(s.feedURL(query), ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed for %s: %w", s.origin.Code, err)
	}

	items := make([]trend.Item, 0, itemsPerOrigin)
	for _, entry := range feed.Items {
		if len(items) >= itemsPerOrigin {
			break
		}

		var published time.Time
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}
		if !published.IsZero() && !dr.Contains(published) {
			continue
		}

		it := trend.Item{
			Title:     entry.Title,
			Body:      entry.Description,
			Origin:    s.origin.Code,
			Published: published,
			URL:       entry.Link,
		}
		it.ID = trend.Fingerprint(it)
		items = append(items, it)
	}
	return items, nil
}
