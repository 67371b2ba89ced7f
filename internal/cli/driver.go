package cli

import (
	"fmt"
	"io"

	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/citefix/internal/engine"
	"github.com/mesh-intelligence/citefix/internal/harness"
	"github.com/mesh-intelligence/citefix/internal/paths"
	"github.com/mesh-intelligence/citefix/internal/sqlite"
	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// driverOptions selects the optional store-backed behaviour of a driver.
type driverOptions struct {
	record bool
	replay bool
	// needEngine is false for commands that only convert.
	needEngine bool
}

func (a *app) parseOptions() fixture.ParseOptions {
	return fixture.ParseOptions{Strict: a.cfg.GetBool(cfgKeyStrict)}
}

func (a *app) localeDir() (string, error) {
	return paths.ResolveLocaleDir(a.flags.localeDir, a.cfg.GetString(cfgKeyLocaleDir))
}

func (a *app) openStore() (*sqlite.Store, error) {
	dir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, err
	}
	return sqlite.Open(dir)
}

func (a *app) newEngine() (engine.Engine, error) {
	return engine.New(a.cfg.GetString(cfgKeyEngine), engine.Options{
		Command: a.cfg.GetStringSlice(cfgKeyEngineCommand),
	})
}

// driver builds a harness driver writing to out. The returned close func
// releases the store when one was opened.
func (a *app) driver(out io.Writer, opts driverOptions) (*harness.Driver, func(), error) {
	d := &harness.Driver{
		Parse: a.parseOptions(),
		Out:   out,
		Log:   a.log,
	}
	if a.flags.verbose {
		d.Level = zapcore.DebugLevel
	}
	closeFn := func() {}
	if !opts.needEngine {
		return d, closeFn, nil
	}

	e, err := a.newEngine()
	if err != nil {
		return nil, nil, userError(err)
	}
	d.Engine = e

	dir, err := a.localeDir()
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("resolve locale dir: %w", err))
	}
	d.Locales = retrieve.NewLocaleDir(dir)

	if opts.record || opts.replay || a.cfg.GetBool(cfgKeyRecord) {
		st, err := a.openStore()
		if err != nil {
			return nil, nil, sysError(err)
		}
		closeFn = func() { st.Close() }
		if opts.record || a.cfg.GetBool(cfgKeyRecord) {
			d.Recorder = st
		}
		if opts.replay {
			d.Retrievers = func(f *fixture.Fixture) (retrieve.Retriever, error) {
				r, err := st.Retriever(f.Name)
				if err != nil {
					return nil, err
				}
				return r, nil
			}
		}
	}
	return d, closeFn, nil
}
