package engine

import (
	"fmt"
	"sort"
)

// Options configures engine construction.
type Options struct {
	// Command is the argv of an external processor, used by "process".
	Command []string
}

// Factory builds an engine from options.
type Factory func(Options) (Engine, error)

var registry = map[string]Factory{
	OutlineName: func(Options) (Engine, error) { return Outline{}, nil },
	ProcessName: func(o Options) (Engine, error) {
		p, err := NewProcess(o.Command)
		if err != nil {
			return nil, err
		}
		return p, nil
	},
}

// Register adds or replaces a named engine factory.
func Register(name string, f Factory) {
	registry[name] = f
}

// New constructs the named engine.
func New(name string, opts Options) (Engine, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownEngine, name, Names())
	}
	return f(opts)
}

// Names lists registered engines in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
