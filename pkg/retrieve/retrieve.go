// Package retrieve supplies the two lookups a citation processor needs while
// it runs: bibliographic items by id and locale XML by language tag.
//
// The harness depends only on the Retriever interface. Adapter backs it with
// a fixture's input items and a locale source; other implementations (for
// example a recorded database store) can be substituted freely.
package retrieve

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
)

// ItemSource looks up bibliographic items. A missing id is reported with
// ok == false; it is never an error, because processors render unknown
// references themselves.
type ItemSource interface {
	RetrieveItem(id string) (item fixture.Item, ok bool)
}

// LocaleSource returns locale XML for a language tag. A missing locale is an
// error: there is no built-in fallback.
type LocaleSource interface {
	RetrieveLocale(tag string) (string, error)
}

// Retriever is the capability a processor is given for a run.
type Retriever interface {
	ItemSource
	LocaleSource
}

// Lookup errors.
var (
	ErrLocaleNotFound = errors.New("locale not found")
	ErrInvalidLocale  = errors.New("invalid locale tag")
)

// LocaleError identifies the locale that could not be read and, for file
// backed sources, the path attempted.
type LocaleError struct {
	Tag  string
	Path string
	Err  error
}

func (e *LocaleError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("locale %s: %s: %v", e.Tag, e.Path, e.Err)
	}
	return fmt.Sprintf("locale %s: %v", e.Tag, e.Err)
}

func (e *LocaleError) Unwrap() error { return e.Err }

// CanonicalTag validates a BCP 47 tag and returns its canonical spelling,
// e.g. "en-us" becomes "en-US".
func CanonicalTag(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", &LocaleError{Tag: tag, Err: fmt.Errorf("%w: %w", ErrInvalidLocale, err)}
	}
	return t.String(), nil
}

// Adapter serves a single fixture: items from its input, locales from the
// configured source.
type Adapter struct {
	items   *Memory
	locales LocaleSource
}

// New builds an Adapter for f. The item index is built once here.
func New(f *fixture.Fixture, locales LocaleSource) *Adapter {
	return &Adapter{
		items:   NewMemory(f.Input),
		locales: locales,
	}
}

// RetrieveItem implements ItemSource.
func (a *Adapter) RetrieveItem(id string) (fixture.Item, bool) {
	return a.items.RetrieveItem(id)
}

// RetrieveLocale implements LocaleSource.
func (a *Adapter) RetrieveLocale(tag string) (string, error) {
	if a.locales == nil {
		return "", &LocaleError{Tag: tag, Err: ErrLocaleNotFound}
	}
	return a.locales.RetrieveLocale(tag)
}
