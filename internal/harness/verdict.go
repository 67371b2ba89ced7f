package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/result"
)

// Verdict is the outcome of checking one fixture against its expected
// result.
type Verdict struct {
	Name     string
	Passed   bool
	Expected string
	Actual   string
	Diff     string
	// Err is the engine failure or the reason no comparison was possible.
	Err error
}

// Compare checks an engine result against the fixture's expected result.
// Interactive fixtures are compared line by line as cite results; anything
// else is compared as text after normalisation.
func Compare(f *fixture.Fixture, res result.Result[string]) Verdict {
	v := Verdict{Name: f.Name}
	actual, err := res.Unwrap()
	if err != nil {
		v.Err = err
		return v
	}
	v.Actual = actual
	if f.Result == nil {
		v.Err = ErrNoExpectedResult
		return v
	}
	v.Expected = fixture.NormalizeExpected(*f.Result)

	want, got := v.Expected, v.Actual
	if f.IsInteractive() {
		want, got = canonicalCiteResults(want), canonicalCiteResults(got)
	}
	v.Passed = want == got
	if !v.Passed {
		v.Diff = unifiedDiff(want, got)
	}
	return v
}

// canonicalCiteResults reformats cite-result lines so spacing and blank
// lines do not affect the comparison. Text that does not parse is compared
// as is.
func canonicalCiteResults(s string) string {
	rs, err := fixture.ParseCiteResults(s)
	if err != nil {
		return s
	}
	return fixture.FormatCiteResults(rs)
}

func unifiedDiff(want, got string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// Check runs the fixture at path, in either format, and compares the output
// with its expected result. The error is for fixtures that cannot be loaded
// or run; an engine failure is reported in the Verdict.
func (d *Driver) Check(path string) (Verdict, error) {
	f, err := d.Load(path)
	if err != nil {
		return Verdict{}, err
	}
	o, err := d.Execute(f)
	if err != nil {
		return Verdict{}, err
	}
	v := Compare(f, o.Result)
	d.record(o, v.Passed)
	return v, nil
}

var (
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	addStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	headerStyle = lipgloss.NewStyle().Faint(true)
)

// WriteVerdict prints a one-line status for v, followed by the diff or the
// failure when it did not pass.
func WriteVerdict(w io.Writer, v Verdict) error {
	status := passStyle.Render("PASS")
	if !v.Passed {
		status = failStyle.Render("FAIL")
	}
	if _, err := fmt.Fprintf(w, "%s %s\n", status, v.Name); err != nil {
		return err
	}
	if v.Err != nil {
		_, err := fmt.Fprintf(w, "  %v\n", v.Err)
		return err
	}
	for _, line := range strings.SplitAfter(v.Diff, "\n") {
		if line == "" {
			continue
		}
		styled := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "@@"):
			styled = headerStyle.Render(styled)
		case strings.HasPrefix(line, "+"):
			styled = addStyle.Render(styled)
		case strings.HasPrefix(line, "-"):
			styled = removeStyle.Render(styled)
		}
		if _, err := fmt.Fprintln(w, styled); err != nil {
			return err
		}
	}
	return nil
}
