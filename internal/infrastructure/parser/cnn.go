package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/scanner"
)

// CNNSource reads the CNN Brasil search API, which answers JSON ordered by change time.
type CNNSource struct {
	scanner.SequentialPaging
	id       string
	endpoint string
	term     string
	limit    int
	fetcher  *Fetcher
}

type cnnPayload struct {
	Result struct {
		Body struct {
			Content struct {
				List []cnnItem `json:"List"`
			} `json:"Content"`
		} `json:"body"`
	} `json:"result"`
}

type cnnItem struct {
	Title     string  `json:"Title"`
	Canonical string  `json:"canonical"`
	ChangedAt float64 `json:"changedAt"`
}

// NewCNNSource builds the adapter from its source settings.
func NewCNNSource(cfg config.SourceConfig, fetcher *Fetcher) *CNNSource {
	limit := cfg.ChunkSize
	if limit <= 0 {
		limit = 500
	}
	return &CNNSource{
		SequentialPaging: scanner.SequentialPaging{First: 1, MaxPage: cfg.MaxPage},
		id:               cfg.Name,
		endpoint:         cfg.Endpoint,
		term:             cfg.Query,
		limit:            limit,
		fetcher:          fetcher,
	}
}

func (s *CNNSource) ID() string                { return s.id }
func (s *CNNSource) Policy() domain.StopPolicy { return domain.StopByTimestamp }

// FetchPage requests one page of search results.
func (s *CNNSource) FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error) {
	query := url.Values{}
	query.Set("term", s.term)
	query.Set("limit", strconv.Itoa(s.limit))
	query.Set("page", strconv.Itoa(cur.Page))
	return s.fetcher.Get(ctx, s.id, s.endpoint, query)
}

// ParsePage decodes result.body.Content.List; a missing list is an empty page.
func (s *CNNSource) ParsePage(payload []byte, _ time.Time) ([]domain.Record, error) {
	var body cnnPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, &domain.ParseError{Source: s.id, Err: fmt.Errorf("decode json: %w", err)}
	}

	items := body.Result.Body.Content.List
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		records = append(records, domain.Record{
			Title:       strings.TrimSpace(item.Title),
			Link:        item.Canonical,
			PublishedAt: epochToTime(item.ChangedAt),
		})
	}
	return records, nil
}

func epochToTime(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}
