package parser

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/scanner"
	"NewsCrawler/pkg/ptbr"
)

const (
	g1Order      = "recent"
	g1Species    = "notícias"
	g1RangeStamp = "2006-01-02T15:04:05-0700"
)

var g1DateExpr = regexp.MustCompile(`\d{2}/\d{2}/\d{4} \d{2}h\d{2}`)

// G1Source queries the G1 search one day at a time, newest day first. Recent items carry
// relative dates ("há 3 horas"), older ones "DD/MM/YYYY HHhMM".
type G1Source struct {
	scanner.DailyPaging
	id       string
	endpoint string
	term     string
	fetcher  *Fetcher
	loc      *time.Location
}

// NewG1Source builds the adapter scanning back to oldest.
func NewG1Source(cfg config.SourceConfig, fetcher *Fetcher, loc *time.Location, oldest time.Time) *G1Source {
	maxPage := cfg.MaxPage
	if maxPage <= 0 {
		maxPage = 40
	}
	return &G1Source{
		DailyPaging: scanner.DailyPaging{MaxPage: maxPage, Oldest: oldest, Location: loc},
		id:          cfg.Name,
		endpoint:    cfg.Endpoint,
		term:        cfg.Query,
		fetcher:     fetcher,
		loc:         loc,
	}
}

func (s *G1Source) ID() string                { return s.id }
func (s *G1Source) Policy() domain.StopPolicy { return domain.StopByTimestamp }

func (s *G1Source) FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error) {
	day := cur.Day.In(s.loc)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, s.loc)

	query := url.Values{}
	query.Set("q", s.term)
	query.Set("page", strconv.Itoa(cur.Page))
	query.Set("order", g1Order)
	query.Set("species", g1Species)
	query.Set("from", from.Format(g1RangeStamp))
	query.Set("to", to.Format(g1RangeStamp))
	return s.fetcher.Get(ctx, s.id, s.endpoint, query)
}

// ParsePage skips sponsored results and resolves relative dates against now.
func (s *G1Source) ParsePage(payload []byte, now time.Time) ([]domain.Record, error) {
	doc, err := newDocument(s.id, payload)
	if err != nil {
		return nil, err
	}

	page := pageItems{source: s.id}
	doc.Find("div.widget--info__text-container").Each(func(_ int, item *goquery.Selection) {
		if item.Find(".widget--info__title--ad").Length() > 0 {
			return
		}

		dateText := cleanText(item.Find("div.widget--info__meta").First())
		publishedAt, approximate, err := s.parseDate(dateText, now)
		if err != nil {
			page.reject(fmt.Errorf("date %q: %w", dateText, err))
			return
		}

		href, _ := item.Find("a[href]").First().Attr("href")
		page.add(domain.Record{
			Title:       cleanText(item.Find("div.widget--info__title").First()),
			Link:        canonicalG1Link(href),
			PublishedAt: publishedAt,
			Approximate: approximate,
		})
	})

	return page.result()
}

// parseDate reads the meta line. Relative phrases ("Há 3 horas", "Ontem") are reported as approximate.
func (s *G1Source) parseDate(text string, now time.Time) (time.Time, bool, error) {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "ontem"):
		t, err := ptbr.ResolveRelativeTime("ontem", now)
		return t, true, err
	case strings.Contains(lowered, "há"), strings.Contains(lowered, "atrás"):
		t, err := ptbr.ResolveRelativeTime(lowered, now)
		return t, true, err
	}

	stamp := g1DateExpr.FindString(text)
	if stamp == "" {
		return time.Time{}, false, fmt.Errorf("no date in meta")
	}
	t, err := ptbr.ParseAbsolute(ptbr.LayoutNumeric, stamp, s.loc)
	return t, false, err
}

// canonicalG1Link unwraps the click-tracking redirect of the search page and keeps the
// article URL ending in .ghtml. Links that do not match are returned unchanged.
func canonicalG1Link(href string) string {
	href = strings.TrimSpace(href)
	unescaped, err := url.QueryUnescape(href)
	if err != nil {
		unescaped = href
	}

	match := ptbr.ExtractBetween(unescaped, "https", "ghtml", true)
	if match == "" {
		return href
	}
	if idx := strings.LastIndex(match, "https://"); idx > 0 {
		match = match[idx:]
	}
	return match
}
