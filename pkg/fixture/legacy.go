package fixture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Legacy section names.
const (
	SectionMode          = "MODE"
	SectionOptions       = "OPTIONS"
	SectionInput         = "INPUT"
	SectionCSL           = "CSL"
	SectionCitations     = "CITATIONS"
	SectionCitationItems = "CITATION-ITEMS"
	SectionBibEntries    = "BIBENTRIES"
	SectionBibSection    = "BIBSECTION"
	SectionResult        = "RESULT"
)

var knownSections = map[string]bool{
	SectionMode:          true,
	SectionOptions:       true,
	SectionInput:         true,
	SectionCSL:           true,
	SectionCitations:     true,
	SectionCitationItems: true,
	SectionBibEntries:    true,
	SectionBibSection:    true,
	SectionResult:        true,
}

// Some suite files use two or four equals signs; most use five.
var (
	beginMarker = regexp.MustCompile(`>>=+ *([A-Z-]+) *=+>>`)
	endMarker   = regexp.MustCompile(`<<=+ *([A-Z-]+) *=+<<`)
)

// maxLineSize bounds a single line; CSL styles occasionally carry very long
// single-line attributes.
const maxLineSize = 16 << 20

type section struct {
	name  string
	line  int
	lines []string
	skip  bool
}

func (s *section) text() string { return strings.Join(s.lines, "\n") }

// legacyReader accumulates sections while scanning a legacy fixture.
type legacyReader struct {
	name     string
	strict   bool
	open     *section
	sections map[string]*section
}

func (lr *legacyReader) fail(s string, line int, err error) error {
	return &ParseError{Name: lr.name, Section: s, Line: line, Err: err}
}

// closeOpen files the open section. In lenient mode the first occurrence of
// a repeated section wins.
func (lr *legacyReader) closeOpen() error {
	s := lr.open
	lr.open = nil
	if s == nil || s.skip {
		return nil
	}
	if prev, dup := lr.sections[s.name]; dup {
		if lr.strict {
			return lr.fail(s.name, s.line, fmt.Errorf("%w: first opened at line %d", ErrDuplicateSection, prev.line))
		}
		return nil
	}
	lr.sections[s.name] = s
	return nil
}

func (lr *legacyReader) line(n int, text string) error {
	if m := endMarker.FindStringSubmatch(text); m != nil {
		switch {
		case lr.open == nil:
			if lr.strict {
				return lr.fail(m[1], n, fmt.Errorf("%w: end marker with no open section", ErrMismatchedSection))
			}
			return nil
		case lr.open.name != m[1] && lr.strict:
			return lr.fail(lr.open.name, n, fmt.Errorf("%w: closed by %s", ErrMismatchedSection, m[1]))
		}
		return lr.closeOpen()
	}

	if m := beginMarker.FindStringSubmatch(text); m != nil {
		if lr.open != nil {
			if lr.strict {
				return lr.fail(lr.open.name, lr.open.line, fmt.Errorf("%w: %s opened at line %d", ErrUnterminatedSection, m[1], n))
			}
			if err := lr.closeOpen(); err != nil {
				return err
			}
		}
		name := m[1]
		if !knownSections[name] {
			if lr.strict {
				return lr.fail(name, n, ErrUnknownSection)
			}
			lr.open = &section{name: name, line: n, skip: true}
			return nil
		}
		lr.open = &section{name: name, line: n}
		return nil
	}

	// Text outside any section is commentary.
	if lr.open != nil {
		lr.open.lines = append(lr.open.lines, text)
	}
	return nil
}

// ParseLegacy reads a section-delimited fixture. name identifies the source
// in errors and becomes Fixture.Name. No partial fixture is returned on
// error.
func ParseLegacy(name string, r io.Reader, opts ParseOptions) (*Fixture, error) {
	lr := &legacyReader{
		name:     name,
		strict:   opts.Strict,
		sections: make(map[string]*section),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		n++
		if err := lr.line(n, strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Name: name, Line: n, Err: fmt.Errorf("read: %w", err)}
	}
	if lr.open != nil {
		if lr.strict {
			return nil, lr.fail(lr.open.name, lr.open.line, ErrUnterminatedSection)
		}
		if err := lr.closeOpen(); err != nil {
			return nil, err
		}
	}

	f, err := lr.build()
	if err != nil {
		return nil, err
	}
	if opts.Strict {
		if err := Validate(f); err != nil {
			return nil, &ParseError{Name: name, Section: SectionInput, Err: err}
		}
	}
	return f, nil
}

// ParseLegacyFile reads and parses the legacy fixture at path.
func ParseLegacyFile(path string, opts ParseOptions) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Name: path, Err: err}
	}
	defer file.Close()
	return ParseLegacy(path, file, opts)
}

func (lr *legacyReader) build() (*Fixture, error) {
	f := &Fixture{Name: lr.name}

	modeSec, ok := lr.sections[SectionMode]
	if !ok {
		return nil, lr.fail(SectionMode, 0, ErrMissingMode)
	}
	mode, err := ParseMode(strings.TrimSpace(modeSec.text()))
	if err != nil {
		return nil, lr.fail(SectionMode, modeSec.line, err)
	}
	f.Mode = mode

	if s, ok := lr.sections[SectionCSL]; ok {
		csl := s.text()
		f.CSL = &csl
	}
	if s, ok := lr.sections[SectionResult]; ok {
		res := s.text()
		f.Result = &res
	}

	if f.Input, err = lr.items(); err != nil {
		return nil, err
	}
	if f.Citations, err = lr.list(SectionCitations); err != nil {
		return nil, err
	}
	if f.CitationItems, err = lr.list(SectionCitationItems); err != nil {
		return nil, err
	}
	if f.BibEntries, err = lr.list(SectionBibEntries); err != nil {
		return nil, err
	}
	if f.BibSection, err = lr.object(SectionBibSection); err != nil {
		return nil, err
	}
	if f.Options, err = lr.object(SectionOptions); err != nil {
		return nil, err
	}
	// Empty options mean engine defaults, same as no options.
	if len(f.Options) == 0 {
		f.Options = nil
	}
	return f, nil
}

// payload decodes a structured section. present is false when the section
// does not exist; v is nil for an empty or null payload.
func (lr *legacyReader) payload(name string) (v any, s *section, present bool, err error) {
	s, present = lr.sections[name]
	if !present {
		return nil, nil, false, nil
	}
	text := s.text()
	if strings.TrimSpace(text) == "" {
		return nil, s, true, nil
	}
	v, err = DecodeJSON([]byte(text))
	if err != nil {
		return nil, s, true, lr.fail(name, s.line, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	return v, s, true, nil
}

func (lr *legacyReader) list(name string) ([]any, error) {
	v, s, present, err := lr.payload(name)
	if err != nil || !present {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return t, nil
	default:
		return nil, lr.fail(name, s.line, fmt.Errorf("%w: want a list, got %T", ErrInvalidPayload, v))
	}
}

func (lr *legacyReader) object(name string) (map[string]any, error) {
	v, s, present, err := lr.payload(name)
	if err != nil || !present {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return t, nil
	default:
		return nil, lr.fail(name, s.line, fmt.Errorf("%w: want an object, got %T", ErrInvalidPayload, v))
	}
}

func (lr *legacyReader) items() ([]Item, error) {
	list, err := lr.list(SectionInput)
	if err != nil || list == nil {
		return nil, err
	}
	items := make([]Item, 0, len(list))
	for i, e := range list {
		obj, ok := e.(map[string]any)
		if !ok {
			s := lr.sections[SectionInput]
			return nil, lr.fail(SectionInput, s.line, fmt.Errorf("%w: input[%d] is %T, want an object", ErrInvalidPayload, i, e))
		}
		items = append(items, Item(obj))
	}
	return items, nil
}
