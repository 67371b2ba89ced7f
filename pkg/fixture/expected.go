package fixture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// noPrintedForm is what citeproc-js emits for a reference that renders to
// nothing; other processors emit an empty string.
const noPrintedForm = "[CSL STYLE ERROR: reference with no printed form.]"

// NormalizeExpected maps an expected result onto the form processors are
// compared in.
func NormalizeExpected(s string) string {
	if s == noPrintedForm {
		return ""
	}
	return s
}

// NormalizeOutput undoes escaping that is harmless in HTML output but differs
// from the suite's expectations.
func NormalizeOutput(s string) string {
	return strings.ReplaceAll(s, "&#x2f;", "/")
}

// CiteResultKind distinguishes clusters that were re-rendered by the last
// update from those that were not.
type CiteResultKind int

const (
	// Unchanged is written "..".
	Unchanged CiteResultKind = iota
	// Updated is written ">>".
	Updated
)

func (k CiteResultKind) marker() string {
	if k == Updated {
		return ">>"
	}
	return ".."
}

// CiteResult is one line of an interactive-mode expected result.
type CiteResult struct {
	Kind       CiteResultKind
	NoteNumber int
	Text       string
}

var citeResultLine = regexp.MustCompile(`^(\.\.|>>)\[(\d+)\](?: (.*))?$`)

// ParseCiteResults parses lines of the form "..[n] text" and ">>[n] text".
// Blank lines are ignored.
func ParseCiteResults(s string) ([]CiteResult, error) {
	var out []CiteResult
	for i, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := citeResultLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d: malformed cite result %q", i+1, line)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: note number: %w", i+1, err)
		}
		kind := Unchanged
		if m[1] == ">>" {
			kind = Updated
		}
		out = append(out, CiteResult{Kind: kind, NoteNumber: n, Text: m[3]})
	}
	return out, nil
}

// FormatCiteResults renders results one per line, each line terminated by a
// newline.
func FormatCiteResults(rs []CiteResult) string {
	var b strings.Builder
	for _, r := range rs {
		fmt.Fprintf(&b, "%s[%d] %s\n", r.Kind.marker(), r.NoteNumber, r.Text)
	}
	return b.String()
}
