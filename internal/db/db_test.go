package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/models"
)

func defaults() models.Prefs {
	return models.Prefs{Criteria: models.DefaultCriteria(), Model: "gpt-4.1-mini"}
}

func TestLoadPrefs_EmptyDBReturnsDefaults(t *testing.T) {
	db, err := OpenPrefsDB(filepath.Join(t.TempDir(), "nested", "prefs.db"))
	require.NoError(t, err)
	defer db.Close()

	got, err := LoadPrefs(db, defaults())
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
}

func TestSaveAndLoadPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	db, err := OpenPrefsDB(path)
	require.NoError(t, err)

	want := models.Prefs{
		Criteria:      models.FilterCriteria{SearchText: "abc", DateBucket: models.DateWeek, SortKey: models.SortMostMessages},
		Model:         "claude-3-5",
		CompareModels: []string{"gpt-4.1", "gemini"},
		Mode:          models.ModeComparison,
	}
	require.NoError(t, SavePrefs(db, want, 100))
	require.NoError(t, db.Close())

	db, err = OpenPrefsDB(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := LoadPrefs(db, defaults())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPrefs_InvalidValuesKeepDefaults(t *testing.T) {
	db, err := OpenPrefsDB(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, setPref(db, keyDateBucket, "fortnight", 1))
	require.NoError(t, setPref(db, keySortKey, "random", 1))
	require.NoError(t, setPref(db, keyModel, "", 1))

	got, err := LoadPrefs(db, defaults())
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
}

func storedPref(t *testing.T, db *sql.DB, key string) (value string, updatedAt int64) {
	t.Helper()
	require.NoError(t, db.QueryRow("SELECT value, updated_at FROM prefs WHERE key = ?", key).Scan(&value, &updatedAt))
	return value, updatedAt
}

func TestSetPref_Upserts(t *testing.T) {
	db, err := OpenPrefsDB(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, setPref(db, "k", "v1", 1))
	require.NoError(t, setPref(db, "k", "v2", 2))
	v, at := storedPref(t, db, "k")
	assert.Equal(t, "v2", v)
	assert.Equal(t, int64(2), at)
}

func TestSavePrefs_OverwritesPreviousSave(t *testing.T) {
	db, err := OpenPrefsDB(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer db.Close()

	first := defaults()
	first.CompareModels = []string{"gpt-4.1", "gemini"}
	require.NoError(t, SavePrefs(db, first, 10))

	second := defaults()
	second.Model = "gpt-4o"
	second.Mode = models.ModeComparison
	require.NoError(t, SavePrefs(db, second, 20))

	v, at := storedPref(t, db, keyModel)
	assert.Equal(t, "gpt-4o", v)
	assert.Equal(t, int64(20), at)

	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM prefs").Scan(&rows))
	assert.Equal(t, 6, rows)

	got, err := LoadPrefs(db, defaults())
	require.NoError(t, err)
	assert.Empty(t, got.CompareModels)
	assert.Equal(t, models.ModeComparison, got.Mode)
}
