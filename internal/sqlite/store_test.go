package sqlite

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sample() *fixture.Fixture {
	return &fixture.Fixture{
		Name: "testdata/affix_Basic.txt",
		Mode: fixture.ModeCitation,
		Input: []fixture.Item{
			{"id": "ITEM-1", "title": "First", "page": 12},
			{"id": 2, "title": "Numeric"},
			{"title": "no id"},
			{"id": "ITEM-1", "title": "Second"},
		},
	}
}

func TestOpen_CreatesDatabaseAndIsReopenable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := Open(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, DBFile))
	assert.Equal(t, filepath.Join(dir, DBFile), s.Path())

	_, err = s.ImportFixture(sample())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")

	_, err = s.ItemCount("affix_Basic")
	assert.ErrorIs(t, err, ErrClosed)

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.ItemCount("affix_Basic")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "data survives reopen")
}

func TestFixtureKey(t *testing.T) {
	assert.Equal(t, "affix_Basic", FixtureKey("a/b/affix_Basic.txt"))
	assert.Equal(t, "affix_Basic", FixtureKey("affix_Basic.yml"))
	assert.Equal(t, "plain", FixtureKey("plain"))
}

func TestImportFixture_LastWriteWins(t *testing.T) {
	s := openStore(t)

	n, err := s.ImportFixture(sample())
	require.NoError(t, err)
	assert.Equal(t, 3, n, "rows written, including the replaced duplicate")

	it, err := s.Item("affix_Basic.yml", "ITEM-1")
	require.NoError(t, err)
	assert.Equal(t, "Second", it["title"])

	it, err = s.Item("affix_Basic", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, it["id"], "numbers come back normalised")

	_, err = s.Item("affix_Basic", "ITEM-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportFixture_ReplacesPreviousImport(t *testing.T) {
	s := openStore(t)
	_, err := s.ImportFixture(sample())
	require.NoError(t, err)

	f := sample()
	f.Input = []fixture.Item{{"id": "ONLY"}}
	_, err = s.ImportFixture(f)
	require.NoError(t, err)

	n, err := s.ItemCount("affix_Basic")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func writeLocale(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestImportLocales(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()
	writeLocale(t, dir, "locales-en-US.xml", "<locale en/>")
	writeLocale(t, dir, "locales-de-DE.xml", "<locale de/>")
	writeLocale(t, dir, "README.md", "ignored")

	n, err := s.ImportLocales(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	xml, err := s.Locale("en-us")
	require.NoError(t, err)
	assert.Equal(t, "<locale en/>", xml)

	_, err = s.Locale("fr-FR")
	assert.ErrorIs(t, err, retrieve.ErrLocaleNotFound)
	var le *retrieve.LocaleError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, s.Path(), le.Path)

	_, err = s.Locale("not a tag!")
	assert.ErrorIs(t, err, retrieve.ErrInvalidLocale)
}

func TestImportLocales_BadFileName(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()
	writeLocale(t, dir, "locales-!!.xml", "<locale/>")

	_, err := s.ImportLocales(dir)
	assert.ErrorIs(t, err, retrieve.ErrInvalidLocale)
}

func TestRetriever(t *testing.T) {
	s := openStore(t)

	_, err := s.Retriever("affix_Basic")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ImportFixture(sample())
	require.NoError(t, err)
	dir := t.TempDir()
	writeLocale(t, dir, "locales-en-US.xml", "<locale en/>")
	_, err = s.ImportLocales(dir)
	require.NoError(t, err)

	r, err := s.Retriever("affix_Basic.txt")
	require.NoError(t, err)

	it, ok := r.RetrieveItem("ITEM-1")
	require.True(t, ok)
	assert.Equal(t, "Second", it["title"])

	_, ok = r.RetrieveItem("missing")
	assert.False(t, ok)

	xml, err := r.RetrieveLocale("en-US")
	require.NoError(t, err)
	assert.Equal(t, "<locale en/>", xml)
}

func TestRetriever_StorageFailureIsNotAMissingItem(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = s.ImportFixture(sample())
	require.NoError(t, err)

	r, err := s.Retriever("affix_Basic")
	require.NoError(t, err)

	_, ok := r.RetrieveItem("missing")
	assert.False(t, ok)
	assert.NoError(t, r.Err(), "a missing item is not a storage failure")

	require.NoError(t, s.Close())
	_, ok = r.RetrieveItem("ITEM-1")
	assert.False(t, ok)
	assert.ErrorIs(t, r.Err(), ErrClosed)
}

func TestRuns_NewestFirstAndFiltered(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, r := range []Run{
		{Fixture: "a.yml", Mode: "citation", Engine: "outline", Passed: true, Output: "(A)"},
		{Fixture: "b.txt", Mode: "bibliography", Engine: "outline", Error: "boom"},
		{Fixture: "a.txt", Mode: "citation", Engine: "process", Passed: false, Output: "(B)"},
	} {
		got, err := s.RecordRun(r)
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
	}

	all, err := s.Runs("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "process", all[0].Engine)
	assert.Equal(t, "b", all[1].Fixture)
	assert.Equal(t, "boom", all[1].Error)
	assert.Empty(t, all[1].Output)
	assert.True(t, all[2].Passed)
	assert.True(t, base.Add(time.Second).Equal(all[2].CreatedAt))

	onlyA, err := s.Runs("a", 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "(B)", onlyA[0].Output)
}

func TestExportRuns(t *testing.T) {
	s := openStore(t)
	_, err := s.RecordRun(Run{Fixture: "a", Mode: "citation", Engine: "outline", Passed: true})
	require.NoError(t, err)
	runs, err := s.Runs("", 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "runs.jsonl")
	require.NoError(t, ExportRuns(path, runs))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Run
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Run
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		lines = append(lines, r)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 1)
	assert.Equal(t, runs[0].ID, lines[0].ID)
	assert.True(t, lines[0].Passed)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".jsonl-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp file cleaned up")
}
