package model

import "time"

// ContentType names the table a scheduled content item lives in.
type ContentType string

const (
	ContentTypeAd          ContentType = "ad"
	ContentTypeLiveContent ContentType = "live_content"
	ContentTypeCarousel    ContentType = "carousel"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeAd, ContentTypeLiveContent, ContentTypeCarousel:
		return true
	}
	return false
}

// Content is the schedulable projection of an ad, live content entry or carousel.
type Content struct {
	ID         string      `db:"id"          json:"id"`
	Type       ContentType `db:"type"        json:"type"`
	Name       string      `db:"name"        json:"name"`
	StorageKey string      `db:"storage_key" json:"storage_key"`
	Duration   int         `db:"duration"    json:"duration"`
	DeletedAt  *time.Time  `db:"deleted_at"  json:"deleted_at,omitempty"`
}

func (c Content) Deleted() bool {
	return c.DeletedAt != nil
}
