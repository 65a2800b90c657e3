// Package collector pulls raw items from independent origins. Sources are
// fetched concurrently with a bounded limit; one origin failing never
// cancels its siblings, it just contributes no items.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trendscope/trendscope/internal/metrics"
	"github.com/trendscope/trendscope/internal/retry"
	"github.com/trendscope/trendscope/internal/trend"
)

// maxConcurrentFetches bounds the fan-out across origins.
const maxConcurrentFetches = 5

// DateRange limits collection to a reporting window. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t is inside the range.
func (dr DateRange) Contains(t time.Time) bool {
	if !dr.From.IsZero() && t.Before(dr.From) {
		return false
	}
	if !dr.To.IsZero() && t.After(dr.To) {
		return false
	}
	return true
}

// Source is one independent origin of items. Each Fetch is retried
// independently and issued with its own timeout.
type Source interface {
	Origin() string
	Fetch(ctx context.Context, query string, dr DateRange) ([]trend.Item, error)
}

// Options tune CollectAll.
type Options struct {
	Retry       retry.Policy
	CallTimeout time.Duration
	// Metrics counts failed origins when set.
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Retry.MaxRetries == 0 && o.Retry.Delay == 0 {
		o.Retry = retry.DefaultPolicy()
	}
	if o.CallTimeout == 0 {
		o.CallTimeout = 30 * time.Second
	}
	return o
}

// CollectAll fetches from every source concurrently, at most
// maxConcurrentFetches in flight. Failed origins are logged and skipped.
// Item order across origins is unspecified.
func CollectAll(ctx context.Context, sources []Source, query string, dr DateRange, opts Options) []trend.Item {
	opts = opts.withDefaults()

	var mu sync.Mutex
	var all []trend.Item

	g, ctx := errgroup.WithContext(ctx)
	limit := len(sources)
	if limit > maxConcurrentFetches {
		limit = maxConcurrentFetches
	}
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			var items []trend.Item
			err := retry.DoContext(ctx, opts.Retry, func(ctx context.Context) error {
				callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
				defer cancel()

				fetched, err := src.Fetch(callCtx, query, dr)
				if err != nil {
					return err
				}
				items = fetched
				return nil
			})
			if err != nil {
				// absent origins simply contribute nothing
				slog.Warn("origin fetch failed", "origin", src.Origin(), "error", err)
				if opts.Metrics != nil {
					opts.Metrics.IncrementOriginFailures()
				}
				return nil
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			slog.Debug("origin fetched", "origin", src.Origin(), "items", len(items))
			return nil
		})
	}
	g.Wait()

	return all
}
