package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is one appeal document announced by the feed.
type Item struct {
	Code      string
	Title     string
	URL       string
	Published *time.Time
}

var appealCodeRe = regexp.MustCompile(`(?i)\b(MDR|MAA)[A-Z]{2}\d{3}\b`)

// AppealCode pulls the appeal code out of s, upper cased.
func AppealCode(s string) (string, bool) {
	m := appealCodeRe.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

// FetchFeed downloads and parses the document feed.
func FetchFeed(ctx context.Context, client *http.Client, url string) ([]Item, error) {
	fp := gofeed.NewParser()
	fp.Client = client
	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	return feedItems(feed), nil
}

// ParseFeed parses an already downloaded feed.
func ParseFeed(r io.Reader) ([]Item, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feedItems(feed), nil
}

func feedItems(feed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := documentLink(it)
		if link == "" {
			continue
		}
		code, ok := AppealCode(it.Title)
		if !ok {
			if code, ok = AppealCode(link); !ok {
				continue
			}
		}
		items = append(items, Item{
			Code:      code,
			Title:     strings.TrimSpace(it.Title),
			URL:       link,
			Published: it.PublishedParsed,
		})
	}
	return items
}

// documentLink prefers a PDF enclosure over the item link.
func documentLink(it *gofeed.Item) string {
	for _, enc := range it.Enclosures {
		if enc != nil && (enc.Type == "application/pdf" || strings.EqualFold(path.Ext(enc.URL), ".pdf")) {
			return enc.URL
		}
	}
	return strings.TrimSpace(it.Link)
}
