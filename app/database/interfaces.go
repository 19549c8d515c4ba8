package database

// SeenRepository is the single source of truth for "have we delivered
// this before". All operations are partitioned by source identifier.
type SeenRepository interface {
	IsNew(sourceID, identifier string) (bool, error)
	// FilterNew returns the subset of identifiers with no stored record,
	// preserving input order, using a single membership query.
	FilterNew(sourceID string, identifiers []string) ([]string, error)
	// MarkSeen upserts identifiers and returns how many were newly
	// inserted. Calling it twice with the same identifier only bumps
	// last_checked_at.
	MarkSeen(sourceID string, identifiers []string, kind IdentifierKind) (int, error)
	// FindNewFuzzy returns the candidate texts with no sufficiently
	// similar stored headline for the source. Similarity is substring
	// containment in either direction on case-folded,
	// whitespace-normalized text.
	FindNewFuzzy(sourceID string, candidateTexts []string) ([]string, error)
	// RebindIdentifier upgrades a headline record to its resolved URL.
	RebindIdentifier(sourceID, oldHeadlineText, newURL string) error

	GetStats(sourceID string) (*Stats, error)
	PurgeOlderThan(sourceID string, days int) (int, error)
	RecentRecords(sourceID string, limit int) ([]SeenRecord, error)
}
