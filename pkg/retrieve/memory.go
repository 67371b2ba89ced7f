package retrieve

import "github.com/mesh-intelligence/citefix/pkg/fixture"

// Memory indexes items by id. When ids repeat, the last item in input order
// wins; fixtures read in strict mode never reach that case because
// fixture.Validate rejects duplicates.
type Memory struct {
	byID map[string]fixture.Item
}

// NewMemory indexes items. Items without an id are not retrievable.
func NewMemory(items []fixture.Item) *Memory {
	m := &Memory{byID: make(map[string]fixture.Item, len(items))}
	for _, it := range items {
		if id, ok := it.ID(); ok {
			m.byID[id] = it
		}
	}
	return m
}

// RetrieveItem implements ItemSource.
func (m *Memory) RetrieveItem(id string) (fixture.Item, bool) {
	it, ok := m.byID[id]
	return it, ok
}

// Len returns the number of distinct ids.
func (m *Memory) Len() int { return len(m.byID) }

// StaticLocales serves locale XML from memory, keyed by canonical tag.
type StaticLocales map[string]string

// RetrieveLocale implements LocaleSource.
func (s StaticLocales) RetrieveLocale(tag string) (string, error) {
	canon, err := CanonicalTag(tag)
	if err != nil {
		return "", err
	}
	xml, ok := s[canon]
	if !ok {
		return "", &LocaleError{Tag: canon, Err: ErrLocaleNotFound}
	}
	return xml, nil
}
