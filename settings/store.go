// Package settings persists the dashboard's user preferences and watchlist
// in a SQLite key/value table.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qyinm/yentui/types"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Storage keys
const (
	KeyTheme     = "appTheme"
	KeyCountry   = "userSelectedCountry"
	KeyKeywords  = "globalUserKeywords"
	KeyWatchlist = "watchedCompanies"
)

// Theme is the persisted color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

var (
	defaultWatchlist = []string{"Apple"}
	repairWatchlist  = []string{"Apple", "Starbucks"}
)

// State is the in-memory copy of the persisted preferences.
type State struct {
	Theme    Theme
	Country  string
	Keywords []string
}

// Store implements durable settings storage backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" gives a
// throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(), `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) set(key, value string) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) remove(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(context.Background(), `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// Load restores the preferences. Missing or unreadable values fall back to
// defaultTheme, no country override and no keywords.
func (s *Store) Load(defaultTheme Theme) (State, error) {
	st := State{Theme: defaultTheme}

	theme, ok, err := s.get(KeyTheme)
	if err != nil {
		return st, err
	}
	if ok && Theme(theme).Valid() {
		st.Theme = Theme(theme)
	}

	country, _, err := s.get(KeyCountry)
	if err != nil {
		return st, err
	}
	st.Country = country

	raw, ok, err := s.get(KeyKeywords)
	if err != nil {
		return st, err
	}
	if ok {
		var kws []string
		if json.Unmarshal([]byte(raw), &kws) == nil {
			st.Keywords = normalizeKeywords(kws)
		}
	}
	return st, nil
}

// SaveTheme persists the theme choice.
func (s *Store) SaveTheme(t Theme) error {
	if !t.Valid() {
		return &types.ValidationError{Field: "theme", Message: fmt.Sprintf("unknown theme %q", t)}
	}
	return s.set(KeyTheme, string(t))
}

// SaveCountry persists the country override. An empty code removes it.
func (s *Store) SaveCountry(code string) error {
	if code == "" {
		return s.remove(KeyCountry)
	}
	return s.set(KeyCountry, code)
}

// SaveKeywords persists the global keyword list.
func (s *Store) SaveKeywords(keywords []string) error {
	b, err := json.Marshal(normalizeKeywords(keywords))
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	return s.set(KeyKeywords, string(b))
}

// Reset removes the theme, country and keyword preferences. The watchlist
// is left alone.
func (s *Store) Reset() error {
	return s.remove(KeyTheme, KeyCountry, KeyKeywords)
}

// LoadWatchlist returns the persisted company names. An absent list yields
// the default list; an unreadable one is replaced by the repair list, which is
// written back.
func (s *Store) LoadWatchlist() ([]string, error) {
	raw, ok, err := s.get(KeyWatchlist)
	if err != nil {
		return append([]string(nil), defaultWatchlist...), err
	}
	if !ok {
		return append([]string(nil), defaultWatchlist...), nil
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil || names == nil {
		repaired := append([]string(nil), repairWatchlist...)
		return repaired, s.SaveWatchlist(repaired)
	}
	return dedupeFold(names), nil
}

// SaveWatchlist persists the ordered company names.
func (s *Store) SaveWatchlist(names []string) error {
	b, err := json.Marshal(dedupeFold(names))
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}
	return s.set(KeyWatchlist, string(b))
}

// ParseKeywords splits a comma-separated list, trims and lowercases each
// entry, and drops empties and duplicates.
func ParseKeywords(raw string) []string {
	return normalizeKeywords(strings.Split(raw, ","))
}

// SameKeywords reports whether two keyword lists hold the same set.
func SameKeywords(a, b []string) bool {
	x, y := normalizeKeywords(a), normalizeKeywords(b)
	if len(x) != len(y) {
		return false
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// ValidateCountry accepts an empty code or two ASCII letters and returns the
// lowercased code.
func ValidateCountry(code string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return "", nil
	}
	if len(c) != 2 || c[0] < 'a' || c[0] > 'z' || c[1] < 'a' || c[1] > 'z' {
		return "", &types.ValidationError{
			Field:   "country",
			Message: "Please enter a valid 2-letter country code (e.g., us, gb) or leave blank.",
		}
	}
	return c, nil
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func dedupeFold(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
