// Package engine defines the boundary between the harness and a citation
// processor. A processor receives a RunConfig and a retrieve.Retriever and
// returns its rendering as a result.Result, so failures on the far side of
// the boundary arrive as values rather than panics.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/result"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// DefaultLocale is requested when a fixture sets no locale option.
const DefaultLocale = "en-US"

// Engine errors.
var (
	ErrUnknownEngine = errors.New("unknown engine")
	ErrEnginePanic   = errors.New("engine panicked")
	ErrUnsupported   = errors.New("operation not supported by engine")
	ErrProcessFailed = errors.New("engine process failed")
)

// RunConfig is everything a processor is told about one fixture run.
type RunConfig struct {
	Name      string            `json:"name"`
	Mode      fixture.Mode      `json:"mode"`
	Options   map[string]any    `json:"options,omitempty"`
	CSL       string            `json:"csl"`
	Input     []fixture.Item    `json:"input"`
	Clusters  []fixture.Cluster `json:"clusters,omitempty"`
	Citations []any             `json:"citations,omitempty"`
}

// NewRunConfig derives the run configuration for f.
func NewRunConfig(f *fixture.Fixture) (RunConfig, error) {
	clusters, err := f.Clusters()
	if err != nil {
		return RunConfig{}, fmt.Errorf("derive clusters for %s: %w", f.Name, err)
	}
	cfg := RunConfig{
		Name:      f.Name,
		Mode:      f.Mode,
		Options:   f.Options,
		Input:     f.Input,
		Clusters:  clusters,
		Citations: f.Citations,
	}
	if f.CSL != nil {
		cfg.CSL = *f.CSL
	}
	return cfg, nil
}

// Locale returns the locale option, or DefaultLocale.
func (c RunConfig) Locale() string {
	if s, ok := c.Options["locale"].(string); ok && s != "" {
		return s
	}
	return DefaultLocale
}

// Engine renders one fixture run. Implementations report failure through
// the returned Result and write diagnostics to log.
type Engine interface {
	Name() string
	Run(cfg RunConfig, r retrieve.Retriever, log *zap.Logger) result.Result[string]
}

// Invoke runs e and converts a panic inside the engine into an Err result.
func Invoke(e Engine, cfg RunConfig, r retrieve.Retriever, log *zap.Logger) (res result.Result[string]) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("engine panicked", zap.String("engine", e.Name()), zap.Any("panic", p))
			res = result.Err[string](fmt.Errorf("%w: %s: %v", ErrEnginePanic, e.Name(), p))
		}
	}()
	return e.Run(cfg, r, log)
}
