package database

import (
	"time"
)

// IdentifierKind distinguishes the two dedup key shapes a source can
// produce: canonical absolute URLs, or normalized headline text from
// vision-based extraction.
type IdentifierKind string

const (
	KindURL      IdentifierKind = "url"
	KindHeadline IdentifierKind = "headline"
)

type SeenRecord struct {
	ID            int64
	SourceID      string
	Identifier    string
	Kind          IdentifierKind
	FirstSeenAt   time.Time
	LastCheckedAt time.Time
}

type Stats struct {
	TotalRecords int
	OldestSeenAt *time.Time
	NewestSeenAt *time.Time
	Sources      []string
}
