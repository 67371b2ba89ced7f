// Package fixture defines the in-memory shape of a CSL processor test case and
// converts between the legacy section-delimited text format and the structured
// YAML document format.
//
// A Fixture is built once per run, either by ParseLegacy or by Decode, and is
// not mutated afterwards. Optional fields use nil to mean "absent", so that a
// missing section and a present-but-empty one stay distinguishable.
package fixture

import (
	"errors"
	"fmt"
	"strconv"
)

// Mode selects which processor operation a fixture exercises.
type Mode string

// Modes used by the CSL processor test suite.
const (
	ModeCitation           Mode = "citation"
	ModeBibliography       Mode = "bibliography"
	ModeBibliographyHeader Mode = "bibliography-header"
	ModeBibliographyNoSort Mode = "bibliography-nosort"
)

var knownModes = map[Mode]bool{
	ModeCitation:           true,
	ModeBibliography:       true,
	ModeBibliographyHeader: true,
	ModeBibliographyNoSort: true,
}

// ParseMode converts a mode keyword. An empty keyword is ErrMissingMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return "", ErrMissingMode
	}
	m := Mode(s)
	if !knownModes[m] {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// IsBibliography reports whether the mode renders a bibliography rather than
// citation clusters.
func (m Mode) IsBibliography() bool {
	return m == ModeBibliography || m == ModeBibliographyHeader || m == ModeBibliographyNoSort
}

// Item is one bibliographic reference. Only the id field is interpreted here;
// every other field passes through untouched.
type Item map[string]any

// ID returns the item's id as a string. Numeric ids are formatted in decimal.
// ok is false when the item has no usable id.
func (it Item) ID() (id string, ok bool) {
	return FormatID(it["id"])
}

// FormatID renders an id value the way items are indexed, so a cite's id
// and the item it names compare equal.
func FormatID(v any) (id string, ok bool) {
	switch v := v.(type) {
	case string:
		return v, v != ""
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Fixture is one test case: style, library, citation requests and the
// expected rendering.
type Fixture struct {
	// Name identifies the fixture in diagnostics, usually its file path.
	Name string

	Mode    Mode
	Options map[string]any
	Input   []Item
	CSL     *string

	// Citations holds interactive processCitationCluster instructions.
	Citations []any
	// CitationItems holds one group of cites per cluster.
	CitationItems []any

	BibEntries []any
	BibSection map[string]any

	// Result is the expected output. nil means no expected result was
	// recorded, which is distinct from an expected empty string.
	Result *string
}

// Fixture errors.
var (
	ErrMissingMode         = errors.New("fixture has no mode")
	ErrUnknownMode         = errors.New("unknown mode")
	ErrUnknownSection      = errors.New("unknown section")
	ErrDuplicateSection    = errors.New("duplicate section")
	ErrUnterminatedSection = errors.New("unterminated section")
	ErrMismatchedSection   = errors.New("mismatched section delimiter")
	ErrInvalidPayload      = errors.New("invalid structured payload")
	ErrMissingID           = errors.New("input item has no id")
	ErrDuplicateID         = errors.New("duplicate input item id")
)

// ParseError reports a malformed fixture. Section and Line are set when the
// failure can be attributed to a place in the file.
type ParseError struct {
	Name    string
	Section string
	Line    int
	Err     error
}

func (e *ParseError) Error() string {
	loc := e.Name
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Section != "" {
		return fmt.Sprintf("%s: section %s: %v", loc, e.Section, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Validate checks the invariants every executable fixture must hold: a known
// mode and unique, present input item ids.
func Validate(f *Fixture) error {
	if f.Mode == "" {
		return ErrMissingMode
	}
	if !knownModes[f.Mode] {
		return fmt.Errorf("%w: %q", ErrUnknownMode, f.Mode)
	}
	seen := make(map[string]int, len(f.Input))
	for i, it := range f.Input {
		id, ok := it.ID()
		if !ok {
			return fmt.Errorf("%w: input[%d]", ErrMissingID, i)
		}
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q at input[%d] and input[%d]", ErrDuplicateID, id, prev, i)
		}
		seen[id] = i
	}
	return nil
}

// ParseOptions controls how strictly fixtures are read.
type ParseOptions struct {
	// Strict turns delimiter irregularities, unknown sections and unknown
	// structured keys into errors, and runs Validate.
	Strict bool
}

// DefaultParseOptions returns strict options.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Strict: true}
}
