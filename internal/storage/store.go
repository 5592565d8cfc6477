package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	_ "modernc.org/sqlite"
)

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// Store defines the persistence the bot depends on. Submitted item
// descriptions are never stored; only cached provider answers keyed by a
// hash, the whitelist and a user's saved location.
type Store interface {
	Close() error

	// Guidance cache methods
	GetGuidanceCache(descriptionHash string) (*guide.Guidance, error)
	SetGuidanceCache(descriptionHash string, g *guide.Guidance) error
	PruneGuidanceCache(maxAge time.Duration) (int64, error)

	// Saved location methods
	SetSavedLocation(telegramID int64, location string) error
	GetSavedLocation(telegramID int64) (string, error)
	DeleteSavedLocation(telegramID int64) error

	// Allowed users methods
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)
}

// SQLiteStore implements Store using SQLite with encrypted user settings.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based store.
// The dbPath is the path to the SQLite database file.
// The encryptionKey is used to encrypt/decrypt saved user settings.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists once the schema is created
	_ = os.Chmod(dbPath, 0600)

	return store, nil
}

func (s *SQLiteStore) init() error {
	guidanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS guidance_cache (
		description_hash TEXT PRIMARY KEY,
		guidance_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(guidanceCacheQuery); err != nil {
		return fmt.Errorf("failed to create guidance_cache table: %w", err)
	}

	userSettingsQuery := `
	CREATE TABLE IF NOT EXISTS user_settings (
		telegram_id INTEGER PRIMARY KEY,
		encrypted_location TEXT,
		updated_at DATETIME
	);
	`
	if _, err := s.db.Exec(userSettingsQuery); err != nil {
		return fmt.Errorf("failed to create user_settings table: %w", err)
	}

	allowedUsersQuery := `
	CREATE TABLE IF NOT EXISTS allowed_users (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);
	`
	if _, err := s.db.Exec(allowedUsersQuery); err != nil {
		return fmt.Errorf("failed to create allowed_users table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetSavedLocation stores the user's default location, encrypted.
func (s *SQLiteStore) SetSavedLocation(telegramID int64, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := Encrypt([]byte(location), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt location: %w", err)
	}

	query := `
	INSERT INTO user_settings (telegram_id, encrypted_location, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		encrypted_location = excluded.encrypted_location,
		updated_at = excluded.updated_at;
	`
	if _, err := s.db.Exec(query, telegramID, encrypted, time.Now()); err != nil {
		return fmt.Errorf("failed to set saved location: %w", err)
	}
	return nil
}

// GetSavedLocation retrieves the user's default location.
// Returns empty string if not set.
func (s *SQLiteStore) GetSavedLocation(telegramID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted sql.NullString
	err := s.db.QueryRow(
		"SELECT encrypted_location FROM user_settings WHERE telegram_id = ?",
		telegramID,
	).Scan(&encrypted)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query saved location: %w", err)
	}
	if !encrypted.Valid || encrypted.String == "" {
		return "", nil
	}

	plaintext, err := Decrypt(encrypted.String, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt saved location: %w", err)
	}
	return string(plaintext), nil
}

// DeleteSavedLocation removes the user's default location.
func (s *SQLiteStore) DeleteSavedLocation(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM user_settings WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to delete saved location: %w", err)
	}
	return nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at, telegram_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
