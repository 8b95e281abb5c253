package ext

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Manager owns the loaded extensions.
type Manager struct {
	opener Opener
	log    *zap.Logger
	exts   []*Extension
}

func NewManager(opener Opener, log *zap.Logger) *Manager {
	return &Manager{opener: opener, log: log}
}

// Load opens one module and keeps it when it passes the version check.
func (m *Manager) Load(path string) (*Extension, error) {
	e, err := Open(path, m.opener)
	if err != nil {
		return nil, err
	}
	m.exts = append(m.exts, e)
	m.log.Info("extension loaded",
		zap.String("name", e.Name()),
		zap.String("version", e.Version()),
		zap.Stringer("type", e.Type()),
		zap.String("path", path),
	)
	return e, nil
}

// LoadDir loads every module in dir in name order. Failures are logged and
// skipped; the returned error joins them.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Warn("extensions directory missing", zap.String("dir", dir))
			return nil
		}
		return fmt.Errorf("read extensions dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, err := m.Load(path); err != nil {
			m.log.Warn("could not load extension", zap.String("file", path), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Init calls every extension's Init with a logger named after its log tag.
// An extension whose Init fails is shut down and dropped.
func (m *Manager) Init() {
	kept := m.exts[:0]
	for _, e := range m.exts {
		tag := e.LogTag()
		if tag == "" {
			tag = e.Name()
		}
		if !e.init(m.log.Named(tag)) {
			m.log.Warn("extension init failed", zap.String("name", e.Name()))
			e.shutdown()
			e.mod.Close()
			continue
		}
		e.started = true
		kept = append(kept, e)
	}
	clear(m.exts[len(kept):])
	m.exts = kept
}

// Shutdown calls every shutdown entry point, then closes the module handles.
func (m *Manager) Shutdown() {
	for i := len(m.exts) - 1; i >= 0; i-- {
		if m.exts[i].started {
			m.exts[i].shutdown()
		}
	}
	for i := len(m.exts) - 1; i >= 0; i-- {
		if err := m.exts[i].mod.Close(); err != nil {
			m.log.Warn("close extension", zap.String("name", m.exts[i].Name()), zap.Error(err))
		}
	}
	m.exts = nil
}

func (m *Manager) Find(name string) (*Extension, bool) {
	for _, e := range m.exts {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// FindType returns the first extension of type t.
func (m *Manager) FindType(t Type) (*Extension, bool) {
	for _, e := range m.exts {
		if e.Type() == t {
			return e, true
		}
	}
	return nil, false
}

func (m *Manager) Len() int { return len(m.exts) }

// Impl returns the capability of the named extension as T.
func Impl[T any](m *Manager, name string) (T, bool) {
	var zero T
	e, ok := m.Find(name)
	if !ok {
		return zero, false
	}
	impl, ok := e.Impl().(T)
	return impl, ok
}
