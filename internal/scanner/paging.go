package scanner

import (
	"time"

	"NewsCrawler/internal/domain"
)

// SequentialPaging walks pages First, First+1, ... until a page comes back empty
// or MaxPage (when positive) has been fetched.
type SequentialPaging struct {
	First   int
	MaxPage int
}

// Start implements Source.Start.
func (p SequentialPaging) Start(time.Time) domain.Cursor {
	return domain.Cursor{Page: p.First}
}

// Next implements Source.Next.
func (p SequentialPaging) Next(cur domain.Cursor, pageEmpty bool) (domain.Cursor, bool) {
	if pageEmpty {
		return cur, false
	}
	if p.MaxPage > 0 && cur.Page >= p.MaxPage {
		return cur, false
	}
	return domain.Cursor{Page: cur.Page + 1, Day: cur.Day}, true
}

// Offset converts a page number into an item offset for sources addressed by offset.
func Offset(cur domain.Cursor, chunkSize int) int {
	return cur.Page * chunkSize
}

// DailyPaging scans one calendar day at a time, pages 1..MaxPage per day, walking backwards
// from today until Oldest. A day ends on an empty page or when MaxPage is reached.
type DailyPaging struct {
	MaxPage  int
	Oldest   time.Time
	Location *time.Location
}

// Start implements Source.Start.
func (p DailyPaging) Start(now time.Time) domain.Cursor {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return domain.Cursor{
		Page: 1,
		Day:  time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
	}
}

// Next implements Source.Next.
func (p DailyPaging) Next(cur domain.Cursor, pageEmpty bool) (domain.Cursor, bool) {
	if !pageEmpty && (p.MaxPage <= 0 || cur.Page < p.MaxPage) {
		return domain.Cursor{Page: cur.Page + 1, Day: cur.Day}, true
	}

	prev := cur.Day.AddDate(0, 0, -1)
	if prev.Before(p.Oldest) {
		return cur, false
	}
	return domain.Cursor{Page: 1, Day: prev}, true
}
