package parser

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/scanner"
)

const ministerioSuffix = " - É FAKE NEWS!"

// MinisterioSource reads the Ministry of Health fake-news tag listing. The listing has no
// dates, so records are stamped with the crawl time and deduplicated by title.
type MinisterioSource struct {
	scanner.SequentialPaging
	id       string
	endpoint string
	origin   string
	chunk    int
	fetcher  *Fetcher
}

// NewMinisterioSource builds the adapter; Options["origin"] prefixes relative links.
func NewMinisterioSource(cfg config.SourceConfig, fetcher *Fetcher) *MinisterioSource {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 20
	}
	return &MinisterioSource{
		SequentialPaging: scanner.SequentialPaging{First: 0, MaxPage: cfg.MaxPage},
		id:               cfg.Name,
		endpoint:         cfg.Endpoint,
		origin:           strings.TrimSuffix(cfg.Options["origin"], "/"),
		chunk:            chunk,
		fetcher:          fetcher,
	}
}

func (s *MinisterioSource) ID() string                { return s.id }
func (s *MinisterioSource) Policy() domain.StopPolicy { return domain.StopByTitle }

func (s *MinisterioSource) FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(scanner.Offset(cur, s.chunk)))
	return s.fetcher.Get(ctx, s.id, s.endpoint, query)
}

func (s *MinisterioSource) ParsePage(payload []byte, now time.Time) ([]domain.Record, error) {
	doc, err := newDocument(s.id, payload)
	if err != nil {
		return nil, err
	}

	page := pageItems{source: s.id}
	doc.Find("td.list-title").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		page.add(domain.Record{
			Title:       strings.TrimSpace(strings.ReplaceAll(cleanText(link), ministerioSuffix, "")),
			Link:        s.absolute(strings.TrimSpace(href)),
			PublishedAt: now,
		})
	})

	return page.result()
}

func (s *MinisterioSource) absolute(href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.origin + href
}
