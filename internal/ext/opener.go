package ext

import (
	"errors"
	"fmt"
	"path/filepath"
	"plugin"

	"go.uber.org/zap"
)

// Exported symbol names every extension module provides.
const (
	SymQuery    = "Query"
	SymInit     = "Init"
	SymShutdown = "Shutdown"
)

// ErrNotModule is returned by an Opener that does not handle a path.
var ErrNotModule = errors.New("not an extension module")

// Module is an opened extension library.
type Module interface {
	Lookup(symbol string) (any, error)
	Close() error
}

type Opener interface {
	Open(path string) (Module, error)
}

// PluginOpener opens Go plugins (.so) built with -buildmode=plugin. The
// exported symbols must be plain functions of the shapes in Symbols.
type PluginOpener struct{}

func (PluginOpener) Open(path string) (Module, error) {
	if filepath.Ext(path) != ".so" {
		return nil, fmt.Errorf("%s: %w", path, ErrNotModule)
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", path, err)
	}
	return pluginModule{p}, nil
}

type pluginModule struct{ p *plugin.Plugin }

func (m pluginModule) Lookup(symbol string) (any, error) {
	return m.p.Lookup(symbol)
}

// Go plugins cannot be unloaded.
func (pluginModule) Close() error { return nil }

// Symbols are the entry points of an extension linked into the binary.
type Symbols struct {
	Query    func() Info
	Init     func(log *zap.Logger) bool
	Shutdown func()
}

// StaticOpener serves modules registered by name. Only the exact name
// matches, so files in the extensions directory never shadow a built-in.
type StaticOpener struct {
	mods map[string]Symbols
}

func NewStaticOpener() *StaticOpener {
	return &StaticOpener{mods: make(map[string]Symbols)}
}

func (o *StaticOpener) Register(name string, syms Symbols) {
	o.mods[name] = syms
}

func (o *StaticOpener) Open(path string) (Module, error) {
	syms, ok := o.mods[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotModule)
	}
	return staticModule(syms), nil
}

type staticModule Symbols

func (m staticModule) Lookup(symbol string) (any, error) {
	var fn any
	switch symbol {
	case SymQuery:
		if m.Query != nil {
			fn = m.Query
		}
	case SymInit:
		if m.Init != nil {
			fn = m.Init
		}
	case SymShutdown:
		if m.Shutdown != nil {
			fn = m.Shutdown
		}
	}
	if fn == nil {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return fn, nil
}

func (staticModule) Close() error { return nil }

// MultiOpener tries each opener in order. Openers answering ErrNotModule
// pass the path on; any other error stops the search.
type MultiOpener []Opener

func (mo MultiOpener) Open(path string) (Module, error) {
	for _, o := range mo {
		m, err := o.Open(path)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrNotModule) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotModule)
}
