package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/result"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func strPtr(s string) *string { return &s }

func library() *fixture.Fixture {
	return &fixture.Fixture{
		Name: "lib.yml",
		Mode: fixture.ModeCitation,
		CSL:  strPtr("<style/>"),
		Input: []fixture.Item{
			{"id": "ITEM-1", "title": "Book A"},
			{"id": "ITEM-2"},
		},
	}
}

func adapter(f *fixture.Fixture) *retrieve.Adapter {
	return retrieve.New(f, retrieve.StaticLocales{"en-US": "<locale/>"})
}

func TestNewRunConfig(t *testing.T) {
	f := library()
	f.Options = map[string]any{"locale": "de-DE"}
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	assert.Equal(t, "lib.yml", cfg.Name)
	assert.Equal(t, "<style/>", cfg.CSL)
	assert.Equal(t, "de-DE", cfg.Locale())
	require.Len(t, cfg.Clusters, 1)
	assert.Len(t, cfg.Clusters[0].Cites, 2)

	f.Options = nil
	cfg, err = NewRunConfig(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultLocale, cfg.Locale())

	f.CitationItems = []any{"bad"}
	_, err = NewRunConfig(f)
	assert.ErrorIs(t, err, fixture.ErrInvalidPayload)
}

func TestOutline_Citation(t *testing.T) {
	f := library()
	f.CitationItems = []any{
		[]any{map[string]any{"id": "ITEM-1"}},
		[]any{map[string]any{"id": "ITEM-2"}, map[string]any{"id": "ITEM-X"}},
	}
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	log, logs := observed()
	out, err := Invoke(Outline{}, cfg, adapter(f), log).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "(Book A)\n(ITEM-2; [missing: ITEM-X])", out)

	warn := logs.FilterMessage("reference not found").All()
	require.Len(t, warn, 1, "missing item is a warning, not a failure")
	assert.Equal(t, "ITEM-X", warn[0].ContextMap()["id"])
}

func TestOutline_FloatIDsMatchTheirItems(t *testing.T) {
	f := library()
	f.Input = append(f.Input, fixture.Item{"id": 1e21, "title": "Huge"})
	f.CitationItems = []any{[]any{map[string]any{"id": 1e21}}}
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	log, logs := observed()
	out, err := Outline{}.Run(cfg, adapter(f), log).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "(Huge)", out)
	assert.Zero(t, logs.FilterMessage("reference not found").Len())
}

func TestOutline_Bibliography(t *testing.T) {
	f := library()
	f.Mode = fixture.ModeBibliography
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	log, _ := observed()
	out, err := Outline{}.Run(cfg, adapter(f), log).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "Book A\nITEM-2", out)
}

func TestOutline_MissingLocaleIsErr(t *testing.T) {
	f := library()
	f.Options = map[string]any{"locale": "fr-FR"}
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	log, logs := observed()
	res := Outline{}.Run(cfg, adapter(f), log)
	require.True(t, res.IsNone())
	assert.ErrorIs(t, res.Err(), retrieve.ErrLocaleNotFound)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestOutline_InteractiveUnsupported(t *testing.T) {
	f := library()
	f.Citations = []any{}
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	log, _ := observed()
	res := Outline{}.Run(cfg, adapter(f), log)
	assert.ErrorIs(t, res.Err(), ErrUnsupported)
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Run(RunConfig, retrieve.Retriever, *zap.Logger) result.Result[string] {
	panic(errors.New("kaboom"))
}

func TestInvoke_PanicBecomesErr(t *testing.T) {
	log, logs := observed()
	res := Invoke(panicky{}, RunConfig{}, adapter(library()), log)
	require.True(t, res.IsNone())
	assert.ErrorIs(t, res.Err(), ErrEnginePanic)
	assert.Contains(t, res.Err().Error(), "kaboom")
	assert.Equal(t, 1, logs.FilterMessage("engine panicked").Len())
}

func TestRegistry(t *testing.T) {
	e, err := New(OutlineName, Options{})
	require.NoError(t, err)
	assert.Equal(t, OutlineName, e.Name())

	_, err = New("citeproc-js", Options{})
	assert.ErrorIs(t, err, ErrUnknownEngine)

	_, err = New(ProcessName, Options{})
	assert.Error(t, err, "process engine needs a command")

	Register("panicky", func(Options) (Engine, error) { return panicky{}, nil })
	assert.Contains(t, Names(), "panicky")
	assert.Contains(t, Names(), OutlineName)
}
