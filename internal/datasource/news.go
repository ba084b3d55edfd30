package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Feed is one configured RSS feed.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds lists the default financial news RSS feeds.
var DefaultFeeds = []Feed{
	{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex"},
	{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
	{Name: "CNBC Markets", URL: "https://www.cnbc.com/id/20910258/device/rss/rss.html"},
}

// News fetches headlines from configured RSS feeds. Feeds are pulled
// concurrently; a failing feed is skipped rather than failing the pull.
type News struct {
	feeds   []Feed
	aliases map[string][]string
	cache   *Cache
	limiter *RateLimiter
	parser  *gofeed.Parser
}

// NewNews creates a news source with the default feeds.
func NewNews() *News {
	return NewNewsWithFeeds(DefaultFeeds, nil)
}

// NewNewsWithFeeds creates a news source with custom feeds and an
// optional ticker-to-alias map used when matching headlines (for
// example "AAPL" -> ["apple"]).
func NewNewsWithFeeds(feeds []Feed, aliases map[string][]string) *News {
	lowered := make(map[string][]string, len(aliases))
	for t, names := range aliases {
		lowered[strings.ToLower(t)] = names
	}
	return &News{
		feeds:   feeds,
		aliases: lowered,
		cache:   NewCache(10 * time.Minute),
		limiter: NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "RSS news" }

// MarketHeadlines returns recent headlines across all feeds, newest
// first.
func (n *News) MarketHeadlines(ctx context.Context, limit int) ([]models.Headline, error) {
	const cacheKey = "news:market"
	if cached, ok := n.cache.Get(cacheKey); ok {
		return capHeadlines(cached.([]models.Headline), limit), nil
	}

	var mu sync.Mutex
	var all []models.Headline

	g, gctx := errgroup.WithContext(ctx)
	for _, feed := range n.feeds {
		feed := feed
		g.Go(func() error {
			items, err := n.fetchFeed(gctx, feed)
			if err != nil {
				// Non-critical: skip failed feeds.
				return nil
			}
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})

	n.cache.Set(cacheKey, all)
	return capHeadlines(all, limit), nil
}

// Headlines returns headlines mentioning the ticker or one of its
// configured aliases.
func (n *News) Headlines(ctx context.Context, ticker string) ([]models.Headline, error) {
	cacheKey := "news:ticker:" + strings.ToLower(ticker)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.Headline), nil
	}

	all, err := n.MarketHeadlines(ctx, 0)
	if err != nil {
		return nil, err
	}

	keywords := n.keywords(ticker)
	var filtered []models.Headline
	for _, h := range all {
		if matchesAny(h.Title+" "+h.Summary, keywords) {
			filtered = append(filtered, h)
		}
	}

	n.cache.Set(cacheKey, filtered)
	return filtered, nil
}

// fetchFeed parses one RSS feed into headlines.
func (n *News) fetchFeed(ctx context.Context, feed Feed) ([]models.Headline, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := n.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", feed.Name, err)
	}

	headlines := make([]models.Headline, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		h := models.Headline{
			Source:  feed.Name,
			Title:   item.Title,
			URL:     item.Link,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			h.PublishedAt = *item.PublishedParsed
		}
		headlines = append(headlines, h)
	}
	return headlines, nil
}

// keywords returns the lowercase match terms for a ticker.
func (n *News) keywords(ticker string) []string {
	t := strings.ToLower(ticker)
	return append([]string{t}, n.aliases[t]...)
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// matchesAny checks if text contains any of the keywords (case-insensitive).
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func capHeadlines(headlines []models.Headline, limit int) []models.Headline {
	if limit > 0 && len(headlines) > limit {
		return headlines[:limit]
	}
	return headlines
}
