// Package harness drives fixture runs: it loads a fixture, builds the
// retriever the engine reads from, invokes the engine with a per-run log
// collector, and reports the outcome.
package harness

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/citefix/internal/engine"
	"github.com/mesh-intelligence/citefix/internal/sqlite"
	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/result"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// Harness errors.
var (
	ErrNoEngine         = errors.New("no engine configured")
	ErrNoExpectedResult = errors.New("fixture has no expected result")
	ErrRetrieverFailed  = errors.New("retriever failed")
)

// Recorder stores run outcomes. *sqlite.Store satisfies it.
type Recorder interface {
	RecordRun(sqlite.Run) (sqlite.Run, error)
}

// failer is implemented by retrievers that can fail for reasons other than
// a missing item, such as *sqlite.Recorded.
type failer interface {
	Err() error
}

// RetrieverFunc builds the retriever an engine reads from for one fixture.
type RetrieverFunc func(f *fixture.Fixture) (retrieve.Retriever, error)

// Driver runs fixtures against an engine.
type Driver struct {
	Engine  engine.Engine
	Locales retrieve.LocaleSource
	// Retrievers overrides the default fixture-backed retriever.
	Retrievers RetrieverFunc
	Recorder   Recorder
	Parse      fixture.ParseOptions
	// Level is the lowest level collected from the engine.
	Level zapcore.Level
	Out   io.Writer
	Log   *zap.Logger
}

func (d *Driver) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Driver) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// Outcome is the result of one engine invocation with the diagnostics the
// engine logged while it ran.
type Outcome struct {
	Fixture *fixture.Fixture
	Result  result.Result[string]
	Logs    []observer.LoggedEntry
}

// Load reads a fixture in either format.
func (d *Driver) Load(path string) (*fixture.Fixture, error) {
	return fixture.Load(path, d.Parse)
}

func (d *Driver) retriever(f *fixture.Fixture) (retrieve.Retriever, error) {
	if d.Retrievers != nil {
		return d.Retrievers(f)
	}
	return retrieve.New(f, d.Locales), nil
}

// Execute runs the engine over f. Engine failures are carried in the
// Outcome's Result; the returned error is for failures before the engine
// starts.
func (d *Driver) Execute(f *fixture.Fixture) (Outcome, error) {
	if d.Engine == nil {
		return Outcome{}, ErrNoEngine
	}
	cfg, err := engine.NewRunConfig(f)
	if err != nil {
		return Outcome{}, err
	}
	r, err := d.retriever(f)
	if err != nil {
		return Outcome{}, fmt.Errorf("build retriever for %s: %w", f.Name, err)
	}

	core, logs := observer.New(d.Level)
	runLog := zap.New(core).With(zap.String("fixture", f.Name))

	d.log().Debug("running fixture",
		zap.String("fixture", f.Name),
		zap.String("engine", d.Engine.Name()),
		zap.String("mode", string(f.Mode)))
	res := engine.Invoke(d.Engine, cfg, r, runLog)
	res = result.Map(res, fixture.NormalizeOutput)
	if fr, ok := r.(failer); ok {
		if err := fr.Err(); err != nil {
			runLog.Error("retriever failed", zap.Error(err))
			res = result.Err[string](fmt.Errorf("%w: %w", ErrRetrieverFailed, err))
		}
	}

	return Outcome{Fixture: f, Result: res, Logs: logs.AllUntimed()}, nil
}

// Run executes a structured fixture, prints the collected diagnostics if
// there are any, then prints the rendered output. A legacy fixture is
// converted instead of run. The engine result is unwrapped only here, so an
// engine failure is returned as the error.
func (d *Driver) Run(path string) error {
	if fixture.IsLegacyPath(path) {
		return d.Convert(path)
	}
	f, err := d.Load(path)
	if err != nil {
		return err
	}
	o, err := d.Execute(f)
	if err != nil {
		return err
	}

	w := d.out()
	if len(o.Logs) > 0 {
		if err := WriteLogs(w, o.Logs); err != nil {
			return err
		}
	}
	d.record(o, Compare(f, o.Result).Passed)

	out, err := o.Result.Unwrap()
	if err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func (d *Driver) record(o Outcome, passed bool) {
	if d.Recorder == nil {
		return
	}
	run := sqlite.Run{
		Fixture: o.Fixture.Name,
		Mode:    string(o.Fixture.Mode),
		Engine:  d.Engine.Name(),
		Passed:  passed,
		Output:  o.Result.UnwrapOr(""),
	}
	if err := o.Result.Err(); err != nil {
		run.Error = err.Error()
	}
	stored, err := d.Recorder.RecordRun(run)
	if err != nil {
		d.log().Warn("could not record run", zap.String("fixture", o.Fixture.Name), zap.Error(err))
		return
	}
	d.log().Debug("recorded run", zap.String("run_id", stored.ID))
}

// WriteLogs prints collected entries one per line: level, message, then
// fields sorted by key.
func WriteLogs(w io.Writer, logs []observer.LoggedEntry) error {
	for _, e := range logs {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s", e.Level.CapitalString(), e.Message)
		ctx := e.ContextMap()
		keys := make([]string, 0, len(ctx))
		for k := range ctx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, ctx[k])
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// Convert parses a legacy fixture and writes its structured form.
func (d *Driver) Convert(path string) error {
	f, err := fixture.ParseLegacyFile(path, d.Parse)
	if err != nil {
		return err
	}
	return fixture.Write(d.out(), f)
}

// ConvertDir converts every legacy fixture in src to <base>.yml in dst.
// Names in skip, with or without extension, are left out. The first failure
// stops the conversion. It returns the number of files written.
func (d *Driver) ConvertDir(src, dst string, skip []string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(src, "*.txt"))
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", src, err)
	}
	sort.Strings(paths)

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[strings.TrimSuffix(s, filepath.Ext(s))] = true
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	n := 0
	for _, p := range paths {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if skipped[base] {
			d.log().Info("skipping fixture", zap.String("fixture", base))
			continue
		}
		f, err := fixture.ParseLegacyFile(p, d.Parse)
		if err != nil {
			return n, err
		}
		data, err := fixture.Marshal(f)
		if err != nil {
			return n, fmt.Errorf("encode %s: %w", p, err)
		}
		target := filepath.Join(dst, base+".yml")
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return n, fmt.Errorf("write %s: %w", target, err)
		}
		d.log().Debug("converted fixture", zap.String("from", p), zap.String("to", target))
		n++
	}
	return n, nil
}
