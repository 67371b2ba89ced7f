package retrieve

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
)

const enUS = `<locale xmlns="http://purl.org/net/xbiblio/csl" version="1.0" xml:lang="en-US"/>`

func writeLocale(t *testing.T, dir, tag, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LocaleFileName(tag)), []byte(body), 0o644))
}

func TestAdapter_RetrieveItem(t *testing.T) {
	f := &fixture.Fixture{
		Mode:  fixture.ModeCitation,
		Input: []fixture.Item{{"id": "ITEM-1", "title": "Foo"}, {"id": 2, "title": "Bar"}},
	}
	a := New(f, nil)

	t.Run("found", func(t *testing.T) {
		it, ok := a.RetrieveItem("ITEM-1")
		require.True(t, ok)
		assert.Equal(t, "Foo", it["title"])
	})

	t.Run("numeric ids are looked up as strings", func(t *testing.T) {
		it, ok := a.RetrieveItem("2")
		require.True(t, ok)
		assert.Equal(t, "Bar", it["title"])
	})

	t.Run("missing id is not a failure", func(t *testing.T) {
		it, ok := a.RetrieveItem("ITEM-X")
		assert.False(t, ok)
		assert.Nil(t, it)
	})
}

func TestMemory_DuplicateIDsLastWins(t *testing.T) {
	m := NewMemory([]fixture.Item{
		{"id": "A", "title": "first"},
		{"id": "B"},
		{"id": "A", "title": "last"},
		{"title": "no id"},
	})
	assert.Equal(t, 2, m.Len())
	it, ok := m.RetrieveItem("A")
	require.True(t, ok)
	assert.Equal(t, "last", it["title"])
}

func TestLocaleDir(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en-US", enUS)
	d := NewLocaleDir(dir)

	t.Run("reads the cache file", func(t *testing.T) {
		xml, err := d.RetrieveLocale("en-US")
		require.NoError(t, err)
		assert.Equal(t, enUS, xml)
	})

	t.Run("canonicalizes the tag", func(t *testing.T) {
		xml, err := d.RetrieveLocale("en-us")
		require.NoError(t, err)
		assert.Equal(t, enUS, xml)
	})

	t.Run("missing file is fatal and names the path", func(t *testing.T) {
		_, err := d.RetrieveLocale("fr-FR")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLocaleNotFound)
		assert.ErrorIs(t, err, fs.ErrNotExist)

		var le *LocaleError
		require.ErrorAs(t, err, &le)
		want := filepath.Join(dir, "locales-fr-FR.xml")
		assert.Equal(t, want, le.Path)
		assert.Contains(t, err.Error(), want)
	})

	t.Run("invalid tag", func(t *testing.T) {
		_, err := d.RetrieveLocale("not a tag!")
		assert.ErrorIs(t, err, ErrInvalidLocale)
	})
}

func TestAdapter_RetrieveLocale(t *testing.T) {
	f := &fixture.Fixture{Mode: fixture.ModeCitation}

	a := New(f, StaticLocales{"de-DE": "<locale/>"})
	xml, err := a.RetrieveLocale("de-de")
	require.NoError(t, err)
	assert.Equal(t, "<locale/>", xml)

	_, err = a.RetrieveLocale("en-US")
	assert.ErrorIs(t, err, ErrLocaleNotFound)

	_, err = New(f, nil).RetrieveLocale("en-US")
	assert.ErrorIs(t, err, ErrLocaleNotFound)
}

func TestCanonicalTag(t *testing.T) {
	got, err := CanonicalTag("pt-br")
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", got)
}

var _ Retriever = (*Adapter)(nil)
