package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var _ SeenRepository = (*SeenRepo)(nil)

// SeenRepo is the SQLite-backed SeenRepository. Timestamps are stored as
// RFC3339Nano UTC strings so lexicographic comparison matches time order.
type SeenRepo struct {
	db *DB
}

func NewSeenRepo(db *DB) *SeenRepo {
	return &SeenRepo{db: db}
}

func (r *SeenRepo) IsNew(sourceID, identifier string) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM seen_records
		WHERE source_id = ? AND identifier = ?
		LIMIT 1
	`, sourceID, identifier).Scan(&one)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, storeErr("failed to check identifier", err)
	}
	return false, nil
}

func (r *SeenRepo) FilterNew(sourceID string, identifiers []string) ([]string, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(identifiers))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(identifiers)+1)
	args = append(args, sourceID)
	for _, id := range identifiers {
		args = append(args, id)
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT identifier FROM seen_records
		WHERE source_id = ? AND identifier IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, storeErr("failed to filter identifiers", err)
	}
	defer rows.Close()

	seen := make(map[string]bool, len(identifiers))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan identifier", err)
		}
		seen[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating identifiers", err)
	}

	fresh := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if !seen[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (r *SeenRepo) MarkSeen(sourceID string, identifiers []string, kind IdentifierKind) (int, error) {
	if len(identifiers) == 0 {
		return 0, nil
	}

	now := formatTime(time.Now().UTC())

	tx, err := r.db.Begin()
	if err != nil {
		return 0, storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	insert, err := tx.Prepare(`
		INSERT OR IGNORE INTO seen_records
			(source_id, identifier, identifier_kind, first_seen_at, last_checked_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, storeErr("failed to prepare insert", err)
	}
	defer insert.Close()

	touch, err := tx.Prepare(`
		UPDATE seen_records SET last_checked_at = ?
		WHERE source_id = ? AND identifier = ?
	`)
	if err != nil {
		return 0, storeErr("failed to prepare update", err)
	}
	defer touch.Close()

	added := 0
	for _, id := range identifiers {
		res, err := insert.Exec(sourceID, id, string(kind), now, now)
		if err != nil {
			return 0, storeErr("failed to upsert identifier", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, storeErr("failed to read rows affected", err)
		}
		if n > 0 {
			added++
			continue
		}
		if _, err := touch.Exec(now, sourceID, id); err != nil {
			return 0, storeErr("failed to touch identifier", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr("failed to commit", err)
	}

	return added, nil
}

func (r *SeenRepo) FindNewFuzzy(sourceID string, candidateTexts []string) ([]string, error) {
	if len(candidateTexts) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT identifier FROM seen_records
		WHERE source_id = ? AND identifier_kind = ?
	`, sourceID, string(KindHeadline))
	if err != nil {
		return nil, storeErr("failed to load stored headlines", err)
	}
	defer rows.Close()

	var stored []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, storeErr("failed to scan headline", err)
		}
		stored = append(stored, NormalizeHeadline(text))
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating headlines", err)
	}

	fresh := make([]string, 0, len(candidateTexts))
	for _, candidate := range candidateTexts {
		normalized := NormalizeHeadline(candidate)
		known := false
		for _, s := range stored {
			if HeadlinesSimilar(normalized, s) {
				known = true
				break
			}
		}
		if !known {
			fresh = append(fresh, candidate)
		}
	}
	return fresh, nil
}

func (r *SeenRepo) RebindIdentifier(sourceID, oldHeadlineText, newURL string) error {
	now := formatTime(time.Now().UTC())

	tx, err := r.db.Begin()
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// If the URL is already tracked, absorb the headline record into it
	// rather than violating the unique constraint.
	var one int
	err = tx.QueryRow(`
		SELECT 1 FROM seen_records
		WHERE source_id = ? AND identifier = ?
	`, sourceID, newURL).Scan(&one)
	switch err {
	case nil:
		if _, err := tx.Exec(`
			DELETE FROM seen_records
			WHERE source_id = ? AND identifier = ?
		`, sourceID, oldHeadlineText); err != nil {
			return storeErr("failed to absorb headline record", err)
		}
		if _, err := tx.Exec(`
			UPDATE seen_records SET last_checked_at = ?
			WHERE source_id = ? AND identifier = ?
		`, now, sourceID, newURL); err != nil {
			return storeErr("failed to touch url record", err)
		}
	case sql.ErrNoRows:
		if _, err := tx.Exec(`
			UPDATE seen_records
			SET identifier = ?, identifier_kind = ?, last_checked_at = ?
			WHERE source_id = ? AND identifier = ?
		`, newURL, string(KindURL), now, sourceID, oldHeadlineText); err != nil {
			return storeErr("failed to rebind identifier", err)
		}
	default:
		return storeErr("failed to check url record", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit", err)
	}
	return nil
}

func (r *SeenRepo) GetStats(sourceID string) (*Stats, error) {
	stats := &Stats{}

	var (
		total          int
		oldest, newest sql.NullString
		err            error
	)

	if sourceID != "" {
		err = r.db.QueryRow(`
			SELECT COUNT(*), MIN(first_seen_at), MAX(first_seen_at)
			FROM seen_records WHERE source_id = ?
		`, sourceID).Scan(&total, &oldest, &newest)
		stats.Sources = []string{sourceID}
	} else {
		err = r.db.QueryRow(`
			SELECT COUNT(*), MIN(first_seen_at), MAX(first_seen_at)
			FROM seen_records
		`).Scan(&total, &oldest, &newest)
	}
	if err != nil {
		return nil, storeErr("failed to get stats", err)
	}
	stats.TotalRecords = total

	if oldest.Valid {
		if t, err := parseTime(oldest.String); err == nil {
			stats.OldestSeenAt = &t
		}
	}
	if newest.Valid {
		if t, err := parseTime(newest.String); err == nil {
			stats.NewestSeenAt = &t
		}
	}

	if sourceID == "" {
		rows, err := r.db.Query(`SELECT DISTINCT source_id FROM seen_records ORDER BY source_id`)
		if err != nil {
			return nil, storeErr("failed to list sources", err)
		}
		defer rows.Close()
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return nil, storeErr("failed to scan source", err)
			}
			stats.Sources = append(stats.Sources, s)
		}
		if err := rows.Err(); err != nil {
			return nil, storeErr("error iterating sources", err)
		}
	}

	return stats, nil
}

func (r *SeenRepo) PurgeOlderThan(sourceID string, days int) (int, error) {
	cutoff := formatTime(time.Now().UTC().AddDate(0, 0, -days))

	var (
		res sql.Result
		err error
	)
	if sourceID != "" {
		res, err = r.db.Exec(`
			DELETE FROM seen_records
			WHERE source_id = ? AND first_seen_at < ?
		`, sourceID, cutoff)
	} else {
		res, err = r.db.Exec(`
			DELETE FROM seen_records WHERE first_seen_at < ?
		`, cutoff)
	}
	if err != nil {
		return 0, storeErr("failed to purge records", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("failed to read rows affected", err)
	}
	return int(deleted), nil
}

func (r *SeenRepo) RecentRecords(sourceID string, limit int) ([]SeenRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, source_id, identifier, identifier_kind, first_seen_at, last_checked_at
		FROM seen_records
		WHERE source_id = ?
		ORDER BY first_seen_at DESC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, storeErr("failed to get recent records", err)
	}
	defer rows.Close()

	var records []SeenRecord
	for rows.Next() {
		var (
			rec                  SeenRecord
			kind, first, checked string
		)
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.Identifier, &kind, &first, &checked); err != nil {
			return nil, storeErr("failed to scan record", err)
		}
		rec.Kind = IdentifierKind(kind)
		if t, err := parseTime(first); err == nil {
			rec.FirstSeenAt = t
		}
		if t, err := parseTime(checked); err == nil {
			rec.LastCheckedAt = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating records", err)
	}

	return records, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
