package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/scanner"
	"NewsCrawler/pkg/ptbr"
)

var fakePrefixes = []string{"É #FAKE que ", "É #FAKE "}

// FatoFakeSource reads the "Fato ou Fake" debunk feed. The feed only shows relative dates,
// so timestamps are approximations anchored at crawl time.
type FatoFakeSource struct {
	scanner.SequentialPaging
	id          string
	urlTemplate string
	fetcher     *Fetcher
}

// NewFatoFakeSource builds the adapter. The endpoint is a template with one %d for the page.
func NewFatoFakeSource(cfg config.SourceConfig, fetcher *Fetcher) *FatoFakeSource {
	return &FatoFakeSource{
		SequentialPaging: scanner.SequentialPaging{First: 1, MaxPage: cfg.MaxPage},
		id:               cfg.Name,
		urlTemplate:      cfg.Endpoint,
		fetcher:          fetcher,
	}
}

func (s *FatoFakeSource) ID() string                { return s.id }
func (s *FatoFakeSource) Policy() domain.StopPolicy { return domain.StopByTimestamp }

func (s *FatoFakeSource) FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error) {
	return s.fetcher.Get(ctx, s.id, fmt.Sprintf(s.urlTemplate, cur.Page), nil)
}

func (s *FatoFakeSource) ParsePage(payload []byte, now time.Time) ([]domain.Record, error) {
	doc, err := newDocument(s.id, payload)
	if err != nil {
		return nil, err
	}

	page := pageItems{source: s.id}
	doc.Find("div.feed-post").Each(func(_ int, item *goquery.Selection) {
		dateText := cleanText(item.Find("span.feed-post-datetime").First())
		publishedAt, err := ptbr.ResolveRelativeTime(dateText, now)
		if err != nil {
			page.reject(fmt.Errorf("date %q: %w", dateText, err))
			return
		}

		link := item.Find("a.feed-post-link").First()
		href, _ := link.Attr("href")
		page.add(domain.Record{
			Title:       stripFakePrefix(cleanText(link)),
			Link:        strings.TrimSpace(href),
			PublishedAt: publishedAt,
			Approximate: true,
		})
	})

	return page.result()
}

func stripFakePrefix(title string) string {
	for _, prefix := range fakePrefixes {
		title = strings.ReplaceAll(title, prefix, "")
	}
	return strings.TrimSpace(title)
}
