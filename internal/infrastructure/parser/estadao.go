package parser

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/scanner"
	"NewsCrawler/pkg/ptbr"
)

// EstadaoSource reads the "últimas" listing of the Estadão health section. Dates are written
// out in Portuguese, e.g. "12 de março de 2021 | 14h30".
type EstadaoSource struct {
	scanner.SequentialPaging
	id       string
	endpoint string
	rows     int
	options  map[string]string
	fetcher  *Fetcher
	loc      *time.Location
}

// NewEstadaoSource builds the adapter. Options carry the module parameters of the listing
// (modulo, produto, editoria, tipoMidia, idCanal, pathModulo).
func NewEstadaoSource(cfg config.SourceConfig, fetcher *Fetcher, loc *time.Location) *EstadaoSource {
	rows := cfg.ChunkSize
	if rows <= 0 {
		rows = 500
	}
	return &EstadaoSource{
		SequentialPaging: scanner.SequentialPaging{First: 1, MaxPage: cfg.MaxPage},
		id:               cfg.Name,
		endpoint:         cfg.Endpoint,
		rows:             rows,
		options:          cfg.Options,
		fetcher:          fetcher,
		loc:              loc,
	}
}

func (s *EstadaoSource) ID() string                { return s.id }
func (s *EstadaoSource) Policy() domain.StopPolicy { return domain.StopByTimestamp }

func (s *EstadaoSource) FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error) {
	return s.fetcher.Get(ctx, s.id, s.endpoint, s.query(cur))
}

func (s *EstadaoSource) query(cur domain.Cursor) url.Values {
	q := url.Values{}
	q.Set("modulo", s.options["modulo"])
	q.Set("config[busca][produto]", s.options["produto"])
	q.Set("config[busca][editoria]", s.options["editoria"])
	q.Set("config[busca][tipo_midia]", s.options["tipoMidia"])
	q.Set("config[busca][id_canal]", s.options["idCanal"])
	q.Set("config[busca][page]", strconv.Itoa(cur.Page))
	q.Set("config[busca][rows]", strconv.Itoa(s.rows))
	q.Set("config[path_modulo]", s.options["pathModulo"])
	return q
}

// ParsePage extracts the listing items. Items without a date block are not news and are skipped.
func (s *EstadaoSource) ParsePage(payload []byte, _ time.Time) ([]domain.Record, error) {
	doc, err := newDocument(s.id, payload)
	if err != nil {
		return nil, err
	}

	page := pageItems{source: s.id}
	doc.Find("section.item-lista").Each(func(_ int, item *goquery.Selection) {
		dateNode := item.Find("span.data-posts").First()
		if dateNode.Length() == 0 {
			return
		}

		publishedAt, err := ptbr.ParsePortugueseDate(cleanText(dateNode), s.loc)
		if err != nil {
			page.reject(fmt.Errorf("date %q: %w", cleanText(dateNode), err))
			return
		}

		link := item.Find("a.link-title").First()
		title, _ := link.Attr("title")
		if strings.TrimSpace(title) == "" {
			title = cleanText(link)
		}
		href, _ := link.Attr("href")

		page.add(domain.Record{
			Title:       strings.TrimSpace(title),
			Link:        strings.TrimSpace(href),
			PublishedAt: publishedAt,
		})
	})

	return page.result()
}
