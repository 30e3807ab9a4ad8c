package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/scanner"
	"NewsCrawler/pkg/ptbr"
)

const uolLoadComponent = "results-index"

// UOLSource reads the UOL news service component that renders a tag listing as HTML.
// Pages are addressed by offset through an opaque "next" token.
type UOLSource struct {
	scanner.SequentialPaging
	id       string
	endpoint string
	size     int
	tagsID   string
	fetcher  *Fetcher
	loc      *time.Location
}

type uolRequest struct {
	History    bool      `json:"history"`
	DateFormat string    `json:"dateFormat"`
	Busca      uolSearch `json:"busca"`
}

type uolSearch struct {
	Params uolParams `json:"params"`
}

type uolParams struct {
	Size       int    `json:"size"`
	Charset    string `json:"charset"`
	Repository string `json:"repository"`
	Sort       string `json:"sort"`
	PGv3       bool   `json:"pgv3"`
	TagsID     string `json:"tags-id"`
	Next       string `json:"next"`
}

// NewUOLSource builds the adapter; Options["tagsId"] selects the tag listing.
func NewUOLSource(cfg config.SourceConfig, fetcher *Fetcher, loc *time.Location) *UOLSource {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 50
	}
	return &UOLSource{
		SequentialPaging: scanner.SequentialPaging{First: 0, MaxPage: cfg.MaxPage},
		id:               cfg.Name,
		endpoint:         cfg.Endpoint,
		size:             size,
		tagsID:           cfg.Options["tagsId"],
		fetcher:          fetcher,
		loc:              loc,
	}
}

func (s *UOLSource) ID() string                { return s.id }
func (s *UOLSource) Policy() domain.StopPolicy { return domain.StopByTimestamp }

func (s *UOLSource) FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error) {
	data, err := s.requestData(cur)
	if err != nil {
		return nil, &domain.FetchError{Source: s.id, URL: s.endpoint, Err: err}
	}

	query := url.Values{}
	query.Set("loadComponent", uolLoadComponent)
	query.Set("data", data)
	return s.fetcher.Get(ctx, s.id, s.endpoint, query)
}

func (s *UOLSource) requestData(cur domain.Cursor) (string, error) {
	raw, err := json.Marshal(uolRequest{
		History:    true,
		DateFormat: "DD/MM/YYYY HH[h]mm",
		Busca: uolSearch{Params: uolParams{
			Size:       s.size,
			Charset:    "utf-8",
			Repository: "mix2",
			Sort:       "created:desc",
			PGv3:       true,
			TagsID:     s.tagsID,
			Next:       uolNextToken(scanner.Offset(cur, s.size)),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request data: %w", err)
	}
	return string(raw), nil
}

func uolNextToken(offset int) string {
	return fmt.Sprintf("0001H0U%dN", offset)
}

func (s *UOLSource) ParsePage(payload []byte, _ time.Time) ([]domain.Record, error) {
	doc, err := newDocument(s.id, payload)
	if err != nil {
		return nil, err
	}

	page := pageItems{source: s.id}
	doc.Find("div.thumbnails-item").Each(func(_ int, item *goquery.Selection) {
		dateText := cleanText(item.Find("time.thumb-date").First())
		publishedAt, err := ptbr.ParseAbsolute(ptbr.LayoutNumeric, dateText, s.loc)
		if err != nil {
			page.reject(fmt.Errorf("date %q: %w", dateText, err))
			return
		}

		href, _ := item.Find("a[href]").First().Attr("href")
		page.add(domain.Record{
			Title:       cleanText(item.Find("h3.thumb-title").First()),
			Link:        strings.TrimSpace(href),
			PublishedAt: publishedAt,
		})
	})

	return page.result()
}
