package domain

import "time"

// Record is the normalized shape every source adapter produces.
type Record struct {
	Title       string    `json:"title" bson:"title" validate:"required"`
	Link        string    `json:"link,omitempty" bson:"link,omitempty" validate:"omitempty,url"`
	PublishedAt time.Time `json:"datetime" bson:"datetime" validate:"required"`
	// Approximate marks a PublishedAt resolved from a relative phrase ("há 2 horas") at crawl
	// time. It drifts between runs, so the watermark alone cannot recognise the record.
	Approximate bool `json:"-" bson:"-"`
}

// Floor is the watermark used when a collection holds no records yet.
var Floor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// StopPolicy selects how a source decides that a record is already known.
type StopPolicy string

const (
	// StopByTimestamp halts at the first record older than the stored watermark.
	StopByTimestamp StopPolicy = "timestamp"
	// StopByTitle halts at the first record whose title is already stored.
	StopByTitle StopPolicy = "title"
)

// Cursor addresses one page of a source. Day is only set for sources scanned day by day.
type Cursor struct {
	Page int
	Day  time.Time
}
