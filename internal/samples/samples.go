// Package samples provides placeholder items for when every origin fails.
// The pipeline degrades to these instead of returning an error, matching
// the behavior consumers already rely on.
package samples

import (
	"fmt"
	"time"

	"github.com/trendscope/trendscope/internal/trend"
)

var sampleTitles = []string{
	"AI adoption accelerates across the tech industry",
	"Semiconductor supply chains show signs of recovery",
	"Electric vehicle makers expand charging networks",
	"Quantum computing research attracts new funding",
	"Cloud providers report record infrastructure demand",
}

var sampleBodies = []string{
	"Rapid advances in artificial intelligence are reshaping the technology sector. Companies are accelerating digital transformation with machine learning driven services.",
	"Major chip makers report improving earnings as global supply chains stabilize and investment in new process technology grows.",
	"Charging infrastructure build-out continues as electric vehicle sales climb and governments push adoption incentives.",
	"Research groups secured fresh funding rounds for quantum hardware, signalling confidence in the long-term roadmap.",
	"Demand for cloud infrastructure reached record levels this quarter, driven by AI training workloads.",
}

// Items fabricates a small batch of sample items for the given origins so
// downstream stages still have something to process.
func Items(origins []string, now time.Time) []trend.Item {
	items := make([]trend.Item, 0, len(origins)*len(sampleTitles))
	for _, origin := range origins {
		for i, title := range sampleTitles {
			it := trend.Item{
				Title:     title,
				Body:      sampleBodies[i],
				Origin:    origin,
				Published: now,
				URL:       fmt.Sprintf("https://example.com/sample/%s/%d", origin, i+1),
			}
			it.ID = trend.Fingerprint(it)
			items = append(items, it)
		}
	}
	return items
}
