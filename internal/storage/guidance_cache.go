package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raine/telegram-recycling-bot/internal/guide"
)

// GetGuidanceCache retrieves cached guidance by description hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetGuidanceCache(descriptionHash string) (*guide.Guidance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRow(
		"SELECT guidance_json FROM guidance_cache WHERE description_hash = ?",
		descriptionHash,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query guidance cache: %w", err)
	}

	var g guide.Guidance
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached guidance: %w", err)
	}
	return &g, nil
}

// SetGuidanceCache stores guidance in the cache, replacing any earlier entry.
func (s *SQLiteStore) SetGuidanceCache(descriptionHash string, g *guide.Guidance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal guidance: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO guidance_cache (description_hash, guidance_json, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(description_hash) DO UPDATE SET
			guidance_json = excluded.guidance_json,
			created_at = excluded.created_at
	`, descriptionHash, string(data), time.Now())

	if err != nil {
		return fmt.Errorf("failed to cache guidance: %w", err)
	}
	return nil
}

// PruneGuidanceCache deletes entries older than maxAge and returns how many
// were removed.
func (s *SQLiteStore) PruneGuidanceCache(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	res, err := s.db.Exec("DELETE FROM guidance_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune guidance cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	return n, nil
}
