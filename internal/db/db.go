// Package db keeps local UI preferences in SQLite. Conversations themselves
// live on the relay; nothing here caches them.
package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"relaychat/internal/models"

	_ "modernc.org/sqlite"
)

const (
	keySearch        = "filter.search"
	keyDateBucket    = "filter.date"
	keySortKey       = "filter.sort"
	keyModel         = "model"
	keyCompareModels = "compare.models"
	keyMode          = "mode"
)

// ConfigDir returns the relaychat directory under the user config dir,
// creating it when missing.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "relaychat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// OpenPrefsDB opens (and migrates) the preferences database at path. An
// empty path means relaychat.db in ConfigDir.
func OpenPrefsDB(path string) (*sql.DB, error) {
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "relaychat.db")
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setPref(db execer, key, value string, nowUnix int64) error {
	_, err := db.Exec(
		`INSERT INTO prefs(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		nowUnix,
	)
	return err
}

// LoadPrefs overlays stored values onto defaults. Unknown or invalid stored
// values leave the default in place.
func LoadPrefs(db *sql.DB, defaults models.Prefs) (models.Prefs, error) {
	p := defaults

	rows, err := db.Query("SELECT key, value FROM prefs")
	if err != nil {
		return defaults, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return defaults, err
		}
		switch k {
		case keySearch:
			p.Criteria.SearchText = v
		case keyDateBucket:
			switch b := models.DateBucket(v); b {
			case models.DateAll, models.DateToday, models.DateWeek, models.DateMonth:
				p.Criteria.DateBucket = b
			}
		case keySortKey:
			switch s := models.SortKey(v); s {
			case models.SortNewest, models.SortOldest, models.SortMostMessages:
				p.Criteria.SortKey = s
			}
		case keyModel:
			if v != "" {
				p.Model = v
			}
		case keyCompareModels:
			p.CompareModels = splitList(v)
		case keyMode:
			if v == models.ModeComparison.String() {
				p.Mode = models.ModeComparison
			} else {
				p.Mode = models.ModeSingle
			}
		}
	}
	if err := rows.Err(); err != nil {
		return defaults, err
	}
	return p, nil
}

// SavePrefs writes every preference in one transaction.
func SavePrefs(db *sql.DB, p models.Prefs, nowUnix int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		keySearch:        p.Criteria.SearchText,
		keyDateBucket:    string(p.Criteria.DateBucket),
		keySortKey:       string(p.Criteria.SortKey),
		keyModel:         p.Model,
		keyCompareModels: strings.Join(p.CompareModels, ","),
		keyMode:          p.Mode.String(),
	}
	for k, v := range values {
		if err := setPref(tx, k, v, nowUnix); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
