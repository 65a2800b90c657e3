// Package ratelimit caps how many calls each AI service gets per day.
// Oracle and embedding calls cost money; the cache exists to avoid them, so
// the limiter also tracks how often the cache saved a call.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter counts calls per service name and refuses once a budget is spent.
// Budgets reset daily. A budget of 0 means unlimited.
type Limiter struct {
	mu        sync.Mutex
	budgets   map[string]int
	counts    map[string]int
	maxTotal  int
	total     int
	resetTime time.Time

	cacheHits   int
	cacheMisses int
}

// New creates a limiter with per-service budgets and an overall daily cap.
func New(budgets map[string]int, maxTotal int) *Limiter {
	b := make(map[string]int, len(budgets))
	for k, v := range budgets {
		b[k] = v
	}
	return &Limiter{
		budgets:   b,
		counts:    make(map[string]int),
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// Allow reports whether service may make one more call today, and counts it.
func (l *Limiter) Allow(service string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()

	if max, ok := l.budgets[service]; ok && max > 0 && l.counts[service] >= max {
		slog.Warn("rate limit reached", "service", service, "used", l.counts[service], "limit", max)
		return false
	}
	if l.maxTotal > 0 && l.total >= l.maxTotal {
		slog.Warn("total AI rate limit reached", "used", l.total, "limit", l.maxTotal)
		return false
	}

	l.counts[service]++
	l.total++
	l.cacheMisses++
	return true
}

// RecordCacheHit notes that a cached result spared one AI call.
func (l *Limiter) RecordCacheHit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cacheHits++
}

// Stats returns a snapshot for logging.
func (l *Limiter) Stats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	used := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		used[k] = v
	}

	hitRate := 0.0
	if total := l.cacheHits + l.cacheMisses; total > 0 {
		hitRate = float64(l.cacheHits) / float64(total) * 100
	}

	return map[string]any{
		"used":           used,
		"total_used":     l.total,
		"total_limit":    l.maxTotal,
		"cache_hits":     l.cacheHits,
		"cache_misses":   l.cacheMisses,
		"cache_hit_rate": hitRate,
		"reset_time":     l.resetTime,
	}
}

func (l *Limiter) checkReset() {
	if time.Now().After(l.resetTime) {
		slog.Info("resetting AI rate limiter counters")
		l.counts = make(map[string]int)
		l.total = 0
		l.cacheHits = 0
		l.cacheMisses = 0
		l.resetTime = time.Now().Add(24 * time.Hour)
	}
}
