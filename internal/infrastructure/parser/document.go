package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsCrawler/internal/domain"
)

func newDocument(source string, payload []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.ParseError{Source: source, Err: fmt.Errorf("read html: %w", err)}
	}
	return doc, nil
}

// pageItems accumulates the records of one page. Items whose fields could not be read are
// counted so a page made only of unreadable items surfaces as a parse error instead of an
// empty page.
type pageItems struct {
	source     string
	records    []domain.Record
	unreadable int
	lastErr    error
}

func (p *pageItems) add(r domain.Record) {
	p.records = append(p.records, r)
}

func (p *pageItems) reject(err error) {
	p.unreadable++
	p.lastErr = err
}

func (p *pageItems) result() ([]domain.Record, error) {
	if len(p.records) == 0 && p.unreadable > 0 {
		return nil, &domain.ParseError{
			Source: p.source,
			Err:    fmt.Errorf("%d items unreadable: %w", p.unreadable, p.lastErr),
		}
	}
	return p.records, nil
}

func cleanText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
