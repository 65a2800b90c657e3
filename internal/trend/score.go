package trend

import (
	"strings"
	"time"
)

// Scoring policy. Consumers rank by these weights, so they are fixed
// constants rather than configuration.
const (
	titleMatchBonus = 10.0
	bodyMatchWeight = 2.0
	recencyBonus    = 5.0
)

// RecencyWindow decides whether a timestamp counts as "recent" for the
// scoring bonus. The zero value never grants the bonus.
type RecencyWindow struct {
	Now    func() time.Time
	MaxAge time.Duration
}

// Contains reports whether t falls inside the window.
func (w RecencyWindow) Contains(t time.Time) bool {
	if w.MaxAge <= 0 || t.IsZero() {
		return false
	}
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	age := now.Sub(t)
	return age >= 0 && age <= w.MaxAge
}

// Score computes the relevance of an item against a query term:
// +10 when the case-folded query appears in the title, +2 per case-folded
// substring occurrence in the body, +5 when the item is recent.
// Pure function, safe for concurrent use.
func Score(it Item, query string, recent RecencyWindow) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	var score float64
	if strings.Contains(strings.ToLower(it.Title), q) {
		score += titleMatchBonus
	}
	score += bodyMatchWeight * float64(strings.Count(strings.ToLower(it.Body), q))
	if recent.Contains(it.Published) {
		score += recencyBonus
	}
	return score
}
