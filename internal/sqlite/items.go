package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// ImportFixture records the input items of f under FixtureKey(f.Name).
// Items replace earlier rows with the same id, so duplicate ids resolve to
// the last one in file order. Items without an id are skipped. It returns
// the number of rows written.
func (s *Store) ImportFixture(f *fixture.Fixture) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	key := FixtureKey(f.Name)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import %s: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items WHERE fixture = ?`, key); err != nil {
		return 0, fmt.Errorf("clear items for %s: %w", key, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO items (fixture, item_id, data, imported_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fixture, item_id) DO UPDATE SET data = excluded.data, imported_at = excluded.imported_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	n := 0
	for _, it := range f.Input {
		id, ok := it.ID()
		if !ok {
			continue
		}
		data, err := json.Marshal(it)
		if err != nil {
			return 0, fmt.Errorf("encode item %s: %w", id, err)
		}
		if _, err := stmt.Exec(key, id, string(data), now); err != nil {
			return 0, fmt.Errorf("insert item %s: %w", id, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import %s: %w", key, err)
	}
	return n, nil
}

// Item returns one recorded item.
func (s *Store) Item(fixtureName, id string) (fixture.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var data string
	err = db.QueryRow(`SELECT data FROM items WHERE fixture = ? AND item_id = ?`,
		FixtureKey(fixtureName), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item %s: %w", id, err)
	}

	v, err := fixture.DecodeJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode item %s: %w", id, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode item %s: stored value is %T", id, v)
	}
	return fixture.Item(obj), nil
}

// ItemCount returns how many items are recorded for a fixture.
func (s *Store) ItemCount(fixtureName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items WHERE fixture = ?`,
		FixtureKey(fixtureName)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Retriever returns a retriever over the recorded data of a fixture. It
// fails with ErrNotFound when nothing was imported for it.
func (s *Store) Retriever(fixtureName string) (*Recorded, error) {
	n, err := s.ItemCount(fixtureName)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("recorded items for %s: %w", FixtureKey(fixtureName), ErrNotFound)
	}
	return &Recorded{store: s, fixture: fixtureName}, nil
}

// Recorded serves items and locales from the store. A storage failure
// during RetrieveItem is kept and reported by Err, since the item interface
// can only answer found or not found.
type Recorded struct {
	store   *Store
	fixture string

	mu  sync.Mutex
	err error
}

var _ retrieve.Retriever = (*Recorded)(nil)

// RetrieveItem implements retrieve.ItemSource.
func (r *Recorded) RetrieveItem(id string) (fixture.Item, bool) {
	it, err := r.store.Item(r.fixture, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.fail(err)
		}
		return nil, false
	}
	return it, true
}

func (r *Recorded) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = fmt.Errorf("retrieve item for %s: %w", FixtureKey(r.fixture), err)
	}
}

// Err returns the first storage failure seen by RetrieveItem. Missing items
// are not failures.
func (r *Recorded) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// RetrieveLocale implements retrieve.LocaleSource.
func (r *Recorded) RetrieveLocale(tag string) (string, error) {
	return r.store.Locale(tag)
}
