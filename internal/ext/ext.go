// Package ext loads extension modules that give scripts extra capabilities,
// such as an SQL driver.
package ext

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrMissingSymbol marks a module without one of the required entry points.
	ErrMissingSymbol = errors.New("missing extension symbol")
	// ErrIncompatible marks a module built against another interface version.
	ErrIncompatible = errors.New("incompatible extension")
	// ErrNoInfo marks a module whose Query returned nothing.
	ErrNoInfo = errors.New("could not get extension info")
)

type Type uint8

const (
	TypeUnknown Type = iota
	TypeSQL
)

func (t Type) String() string {
	switch t {
	case TypeSQL:
		return "sql"
	default:
		return "unknown"
	}
}

// Info describes a module. It is returned by the module's Query entry point.
type Info interface {
	InterfaceVersion() Version
	Type() Type
	Name() string
	Version() string
	Date() string
	Author() string
	URL() string
	LogTag() string
	// Impl is the capability handle, e.g. an SQL driver.
	Impl() any
}

// Extension is an opened, version-checked module.
type Extension struct {
	path string
	info Info
	impl any

	init     func(*zap.Logger) bool
	shutdown func()
	mod      Module
	started  bool
}

func (e *Extension) Path() string    { return e.path }
func (e *Extension) Name() string    { return e.info.Name() }
func (e *Extension) Type() Type      { return e.info.Type() }
func (e *Extension) Version() string { return e.info.Version() }
func (e *Extension) Date() string    { return e.info.Date() }
func (e *Extension) Author() string  { return e.info.Author() }
func (e *Extension) URL() string     { return e.info.URL() }
func (e *Extension) LogTag() string  { return e.info.LogTag() }
func (e *Extension) Impl() any       { return e.impl }

// Open opens path with opener, resolves the entry points, queries the module
// and checks it against HostVersion. The module is closed again on failure.
func Open(path string, opener Opener) (*Extension, error) {
	mod, err := opener.Open(path)
	if err != nil {
		return nil, err
	}
	e, err := bind(path, mod)
	if err != nil {
		mod.Close()
		return nil, err
	}
	return e, nil
}

func bind(path string, mod Module) (*Extension, error) {
	query, err := lookup[func() Info](mod, SymQuery)
	if err != nil {
		return nil, fmt.Errorf("extension %s: %w", path, err)
	}
	initFn, err := lookup[func(*zap.Logger) bool](mod, SymInit)
	if err != nil {
		return nil, fmt.Errorf("extension %s: %w", path, err)
	}
	shutdown, err := lookup[func()](mod, SymShutdown)
	if err != nil {
		return nil, fmt.Errorf("extension %s: %w", path, err)
	}

	info := query()
	if info == nil {
		return nil, fmt.Errorf("extension %s: %w", path, ErrNoInfo)
	}
	if err := HostVersion.Compatible(info.InterfaceVersion()); err != nil {
		return nil, fmt.Errorf("extension %s (%s): %w", path, info.Name(), err)
	}
	return &Extension{
		path:     path,
		info:     info,
		impl:     info.Impl(),
		init:     initFn,
		shutdown: shutdown,
		mod:      mod,
	}, nil
}

func lookup[T any](mod Module, symbol string) (T, error) {
	var zero T
	sym, err := mod.Lookup(symbol)
	if err != nil || sym == nil {
		return zero, fmt.Errorf("%w: %s", ErrMissingSymbol, symbol)
	}
	fn, ok := sym.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has type %T", ErrMissingSymbol, symbol, sym)
	}
	return fn, nil
}
