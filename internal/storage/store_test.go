package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	key, err := DeriveKey("test-passphrase")
	require.NoError(t, err)
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), key)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGuidanceCache(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetGuidanceCache("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	g := &guide.Guidance{
		Analysis: guide.Analysis{
			ItemType:         "Jar",
			PrimaryMaterials: []string{"Glass"},
			Recyclability:    guide.RecyclabilityRecyclable,
			Summary:          "Glass jars are recyclable.",
		},
		Instructions: []string{"Rinse", "Remove the lid"},
	}
	require.NoError(t, store.SetGuidanceCache("abc", g))

	got, err = store.GetGuidanceCache("abc")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	g.Analysis.Summary = "Updated."
	require.NoError(t, store.SetGuidanceCache("abc", g))
	got, err = store.GetGuidanceCache("abc")
	require.NoError(t, err)
	assert.Equal(t, "Updated.", got.Analysis.Summary)
}

func TestPruneGuidanceCache(t *testing.T) {
	store := newTestStore(t)
	g := &guide.Guidance{Analysis: guide.Analysis{Summary: "s"}, Instructions: []string{"i"}}
	require.NoError(t, store.SetGuidanceCache("a", g))
	require.NoError(t, store.SetGuidanceCache("b", g))

	n, err := store.PruneGuidanceCache(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// A negative age puts the cutoff in the future.
	n, err = store.PruneGuidanceCache(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := store.GetGuidanceCache("a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSavedLocation(t *testing.T) {
	store := newTestStore(t)

	loc, err := store.GetSavedLocation(1)
	require.NoError(t, err)
	assert.Empty(t, loc)

	require.NoError(t, store.SetSavedLocation(1, "10001"))
	require.NoError(t, store.SetSavedLocation(2, "Espoo"))

	loc, err = store.GetSavedLocation(1)
	require.NoError(t, err)
	assert.Equal(t, "10001", loc)

	require.NoError(t, store.SetSavedLocation(1, "Helsinki"))
	loc, err = store.GetSavedLocation(1)
	require.NoError(t, err)
	assert.Equal(t, "Helsinki", loc)

	require.NoError(t, store.DeleteSavedLocation(1))
	loc, err = store.GetSavedLocation(1)
	require.NoError(t, err)
	assert.Empty(t, loc)

	loc, err = store.GetSavedLocation(2)
	require.NoError(t, err)
	assert.Equal(t, "Espoo", loc)
}

func TestSavedLocation_EncryptedAtRest(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetSavedLocation(7, "Secret Street 1"))

	var raw string
	err := store.db.QueryRow("SELECT encrypted_location FROM user_settings WHERE telegram_id = 7").Scan(&raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "Secret Street")
}

func TestAllowedUsers(t *testing.T) {
	store := newTestStore(t)

	allowed, err := store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, store.AddAllowedUser(42, 1))
	require.NoError(t, store.AddAllowedUser(43, 1))

	allowed, err = store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.True(t, allowed)

	users, err := store.GetAllowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].AddedBy)

	require.NoError(t, store.RemoveAllowedUser(42))
	allowed, err = store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.False(t, allowed)
}
