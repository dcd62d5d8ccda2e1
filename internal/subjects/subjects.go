// Package subjects turns recent RSS/Atom headlines into generation subjects.
package subjects

import (
	"context"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const defaultPerFeed = 5

// Feed is one configured RSS or Atom source.
type Feed struct {
	URL  string
	Name string
}

// Subject is a headline usable as a generation subject.
type Subject struct {
	Title  string
	Source string
	Link   string
}

// Collector reads subjects from feeds.
type Collector struct {
	feeds   []Feed
	perFeed int
	parser  *gofeed.Parser
	logger  *zap.Logger
}

// NewCollector creates a collector taking at most perFeed items per feed.
func NewCollector(feeds []Feed, perFeed int, logger *zap.Logger) *Collector {
	if perFeed <= 0 {
		perFeed = defaultPerFeed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{feeds: feeds, perFeed: perFeed, parser: gofeed.NewParser(), logger: logger}
}

// Collect parses every feed in order. A feed that fails is logged and
// skipped. Titles repeated across feeds are kept once.
func (c *Collector) Collect(ctx context.Context) []Subject {
	var all []Subject
	seen := make(map[string]bool)

	for _, f := range c.feeds {
		name := f.Name
		if name == "" {
			name = extractSourceName(f.URL)
		}

		feed, err := c.parser.ParseURLWithContext(f.URL, ctx)
		if err != nil {
			c.logger.Warn("failed to parse feed", zap.String("url", f.URL), zap.Error(err))
			continue
		}

		n := 0
		for _, item := range feed.Items {
			if n >= c.perFeed {
				break
			}
			title := cleanTitle(item.Title)
			if title == "" {
				continue
			}
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true
			link := item.Link
			if link == "" {
				link = item.GUID
			}
			all = append(all, Subject{Title: title, Source: name, Link: link})
			n++
		}
		c.logger.Info("parsed feed", zap.String("source", name), zap.Int("subjects", n))
	}
	return all
}

func cleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
