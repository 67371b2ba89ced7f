package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// ImportLocales loads every locales-<tag>.xml in dir into the locale cache,
// replacing earlier copies. Files whose tag does not parse are rejected. It
// returns the number of locales written.
func (s *Store) ImportLocales(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, retrieve.LocaleFileName("*")))
	if err != nil {
		return 0, fmt.Errorf("list locales in %s: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin locale import: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()
	for _, p := range paths {
		name := filepath.Base(p)
		tag, err := retrieve.CanonicalTag(strings.TrimSuffix(strings.TrimPrefix(name, "locales-"), ".xml"))
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", name, err)
		}
		xml, err := os.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", p, err)
		}
		if _, err := tx.Exec(`INSERT INTO locales (tag, xml, source, imported_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(tag) DO UPDATE SET xml = excluded.xml, source = excluded.source, imported_at = excluded.imported_at`,
			tag, string(xml), p, now); err != nil {
			return 0, fmt.Errorf("insert locale %s: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit locale import: %w", err)
	}
	return len(paths), nil
}

// Locale implements retrieve.LocaleSource over the locale cache.
func (s *Store) Locale(tag string) (string, error) {
	canon, err := retrieve.CanonicalTag(tag)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return "", err
	}
	var xml string
	err = db.QueryRow(`SELECT xml FROM locales WHERE tag = ?`, canon).Scan(&xml)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &retrieve.LocaleError{Tag: tag, Path: s.path, Err: retrieve.ErrLocaleNotFound}
	}
	if err != nil {
		return "", &retrieve.LocaleError{Tag: tag, Path: s.path, Err: err}
	}
	return xml, nil
}

// RetrieveLocale lets a Store stand in as a harness locale source.
func (s *Store) RetrieveLocale(tag string) (string, error) {
	return s.Locale(tag)
}
