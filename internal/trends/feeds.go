package trends

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	maxPerFeed     = 20
	feedBaseVolume = 400
)

// FeedConfig is one syndicated feed to watch.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedAdapter extracts trend signals from RSS/Atom feeds. A configured set
// of watch phrases is matched against entry headlines; each hit becomes one
// signal whose volume decays with the entry's position in the feed.
type FeedAdapter struct {
	feeds    []FeedConfig
	watch    []string
	daysBack int
	parser   *gofeed.Parser
}

// NewFeedAdapter creates a feed adapter for the given feeds and watch phrases.
func NewFeedAdapter(feeds []FeedConfig, watch []string, daysBack int) *FeedAdapter {
	if daysBack <= 0 {
		daysBack = 1
	}
	return &FeedAdapter{
		feeds:    feeds,
		watch:    watch,
		daysBack: daysBack,
		parser:   gofeed.NewParser(),
	}
}

// Name implements Adapter.
func (f *FeedAdapter) Name() string { return "feeds" }

// Fetch implements Adapter. A single unreachable feed is skipped; only a
// total failure of every feed is reported as an error.
func (f *FeedAdapter) Fetch(ctx context.Context) ([]Signal, error) {
	cutoff := time.Now().AddDate(0, 0, -f.daysBack)

	var all []Signal
	failed := 0
	for _, fc := range f.feeds {
		feed, err := f.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			failed++
			continue
		}
		all = append(all, f.signalsFromFeed(feed, fc, cutoff)...)
	}

	if len(f.feeds) > 0 && failed == len(f.feeds) {
		return nil, fmt.Errorf("all %d feeds unreachable", failed)
	}
	return all, nil
}

func (f *FeedAdapter) signalsFromFeed(feed *gofeed.Feed, fc FeedConfig, cutoff time.Time) []Signal {
	source := SourceFeedPrefix + fc.Name

	var signals []Signal
	for i, item := range feed.Items {
		if i >= maxPerFeed {
			break
		}
		if !itemWithinWindow(item, cutoff) {
			continue
		}

		headline := strings.ToLower(item.Title)
		for _, phrase := range f.watch {
			if phrase == "" || !strings.Contains(headline, strings.ToLower(phrase)) {
				continue
			}
			signals = append(signals, Signal{
				Topic:  phrase,
				Source: source,
				Volume: feedBaseVolume - i*10,
				Metadata: map[string]string{
					"headline": item.Title,
					"link":     item.Link,
				},
			})
		}
	}
	return signals
}

func itemWithinWindow(item *gofeed.Item, cutoff time.Time) bool {
	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if published == nil {
		return true // benefit of the doubt
	}
	return !published.Before(cutoff)
}
