// Package trend holds the core item model: content-derived fingerprints,
// in-batch deduplication and keyword relevance scoring.
package trend

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrEmptyBatch is returned when a caller passes no items at all.
	ErrEmptyBatch = errors.New("trend: empty item batch")
	// ErrMissingField is returned for items without origin or title.
	ErrMissingField = errors.New("trend: item missing required field")
)

// Item is a single piece of content pulled from one origin.
// ID is always derived via Fingerprint, never assigned by callers.
type Item struct {
	ID        string
	Title     string
	Body      string
	Origin    string // country code or feed name of the collector
	Published time.Time
	URL       string
}

// ScoredItem is an Item plus its relevance against one query term.
// Scores are recomputed per query, never persisted.
type ScoredItem struct {
	Item
	Relevance float64
}

// how much of the body participates in the fingerprint
const fingerprintBodyPrefix = 200

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// Normalize lowercases, strips HTML tags, keeps only letters, digits and
// spaces (Unicode-aware) and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = htmlTagRe.ReplaceAllString(s, " ")

	b := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b = append(b, r)
		} else {
			b = append(b, ' ')
		}
	}
	return strings.Join(strings.Fields(string(b)), " ")
}

// Fingerprint returns a stable content-derived identifier for an item.
// Items with the same normalized title and origin collapse to the same
// fingerprint; the same title from another origin stays distinct.
func Fingerprint(it Item) string {
	body := it.Body
	if len(body) > fingerprintBodyPrefix {
		body = body[:fingerprintBodyPrefix]
	}

	h := sha256.New()
	h.Write([]byte(Normalize(it.Title) + "|" + Normalize(body) + "|" + strings.ToLower(strings.TrimSpace(it.Origin))))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Validate rejects items that the pipeline cannot process.
func Validate(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	for i, it := range items {
		if strings.TrimSpace(it.Origin) == "" {
			return fmt.Errorf("%w: item %d has no origin", ErrMissingField, i)
		}
		if strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("%w: item %d has no title", ErrMissingField, i)
		}
	}
	return nil
}
