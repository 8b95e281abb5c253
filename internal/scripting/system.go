// Package scripting loads plugin scripts, each into an isolated gopher-lua
// state, and dispatches calls into them.
package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/value"
)

var (
	// ErrScriptLoad marks a script whose body or __start failed.
	ErrScriptLoad = errors.New("script load failed")
	// ErrNoPluginInfo marks a script without a pluginInfo table.
	ErrNoPluginInfo = errors.New("cannot find plugin info")
	// ErrExtension marks a file that is not a script.
	ErrExtension = errors.New("unexpected file extension")
)

const (
	// Extension is the expected script extension.
	Extension = ".luac"
	// SourceExtension is accepted when Options.AllowSource is set.
	SourceExtension = ".lua"

	startFn        = "__start"
	installHooksFn = "__installVFuncHooks"
	infoTable      = "pluginInfo"
)

// Library registers natives into a freshly created script state.
type Library interface {
	Open(inst *Instance)
}

// LibraryFunc adapts a function to a Library.
type LibraryFunc func(inst *Instance)

func (f LibraryFunc) Open(inst *Instance) { f(inst) }

type Options struct {
	Dir         string
	AllowSource bool
	MaxClients  int
}

// System owns every loaded script. Single-goroutine access only.
type System struct {
	opts     Options
	log      *zap.Logger
	libs     []Library
	onUnload []func(*Instance)
	scripts  []*Instance
	nextID   uint32
}

func NewSystem(opts Options, log *zap.Logger, libs ...Library) *System {
	return &System{
		opts:   opts,
		log:    log,
		libs:   libs,
		nextID: 1,
	}
}

// Use adds a library for scripts loaded afterwards.
func (s *System) Use(lib Library) {
	s.libs = append(s.libs, lib)
}

// OnUnload registers fn to run before a script's state is closed.
func (s *System) OnUnload(fn func(*Instance)) {
	s.onUnload = append(s.onUnload, fn)
}

// Accepts reports whether path has a script extension.
func (s *System) Accepts(path string) bool {
	ext := filepath.Ext(path)
	return ext == Extension || (s.opts.AllowSource && ext == SourceExtension)
}

// LoadAll loads every script in the plugins directory in name order.
// A failing file is logged and skipped; the returned error joins every
// failure.
func (s *System) LoadAll() error {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("plugins directory missing", zap.String("dir", s.opts.Dir))
			return nil
		}
		return fmt.Errorf("read plugins dir %s: %w", s.opts.Dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.opts.Dir, entry.Name())
		if _, err := s.Load(path); err != nil {
			s.log.Warn("could not load script", zap.String("file", path), zap.Error(err))
			errs = append(errs, err)
		}
	}
	s.log.Info("scripts loaded", zap.Int("count", len(s.scripts)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Load loads one script file.
func (s *System) Load(path string) (*Instance, error) {
	if !s.Accepts(path) {
		return nil, fmt.Errorf("load %s: %w: expected %s got %q", path, ErrExtension, Extension, filepath.Ext(path))
	}
	proto, err := Compile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: wrong format: %w", path, ErrScriptLoad, err)
	}

	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	inst := &Instance{id: s.nextID, path: path, vm: vm}
	s.nextID++

	value.Open(vm)
	for _, lib := range s.libs {
		lib.Open(inst)
	}
	vm.SetGlobal("maxClients", lua.LNumber(s.opts.MaxClients))

	vm.Push(vm.NewFunctionFromProto(proto))
	if err := vm.PCall(0, 0, nil); err != nil {
		s.discard(inst)
		return nil, fmt.Errorf("load %s: %w: %w", path, ErrScriptLoad, err)
	}

	tbl, ok := vm.GetGlobal(infoTable).(*lua.LTable)
	if !ok {
		s.discard(inst)
		return nil, fmt.Errorf("load %s: %w", path, ErrNoPluginInfo)
	}
	inst.info = PluginInfo{
		Name:    lStr(tbl, "name"),
		Version: lStr(tbl, "version"),
		Author:  lStr(tbl, "author"),
		URL:     lStr(tbl, "url"),
	}

	start := vm.GetGlobal(startFn)
	if start == lua.LNil {
		s.discard(inst)
		return nil, fmt.Errorf("load %s: %w: %s function was not found", path, ErrScriptLoad, startFn)
	}
	// The script is visible to natives (execFunc, timers) from __start on.
	s.scripts = append(s.scripts, inst)
	inst.busy++
	err = vm.CallByParam(lua.P{Fn: start, NRet: 0, Protect: true})
	inst.busy--
	if err != nil {
		s.remove(inst)
		s.discard(inst)
		return nil, fmt.Errorf("load %s: %w: %s could not be executed: %w", path, ErrScriptLoad, startFn, err)
	}

	s.log.Info("loaded script",
		zap.String("name", inst.info.Name),
		zap.String("version", inst.info.Version),
		zap.String("author", inst.info.Author),
		zap.Uint32("id", inst.id),
	)
	return inst, nil
}

// discard releases everything natives attached to inst and closes it.
func (s *System) discard(inst *Instance) {
	for _, fn := range s.onUnload {
		fn(inst)
	}
	inst.shutdown()
}

func (s *System) remove(inst *Instance) bool {
	for i, x := range s.scripts {
		if x == inst {
			s.scripts = append(s.scripts[:i], s.scripts[i+1:]...)
			return true
		}
	}
	return false
}

// InstallHooks runs the optional __installVFuncHooks of every script.
func (s *System) InstallHooks() {
	for _, inst := range s.Scripts() {
		if !inst.Defines(installHooksFn) {
			continue
		}
		if _, err := s.call(inst, installHooksFn, nil, 0); err != nil {
			s.log.Warn("install hooks failed", zap.String("script", inst.info.Name), zap.Error(err))
		}
	}
}

// Scripts returns a snapshot of the loaded scripts in load order.
func (s *System) Scripts() []*Instance {
	out := make([]*Instance, len(s.scripts))
	copy(out, s.scripts)
	return out
}

func (s *System) Len() int { return len(s.scripts) }

func (s *System) Get(id uint32) (*Instance, bool) {
	for _, inst := range s.scripts {
		if inst.id == id {
			return inst, true
		}
	}
	return nil, false
}

// Find returns the first script whose pluginInfo name matches.
func (s *System) Find(name string) (*Instance, bool) {
	for _, inst := range s.scripts {
		if inst.info.Name == name {
			return inst, true
		}
	}
	return nil, false
}

// Broadcast calls name in every script that defines it. Only none, bool,
// number and string arguments cross between scripts; others arrive as nil.
// It returns the number of scripts that ran the function without error.
func (s *System) Broadcast(name string, args []value.Value) int {
	n := 0
	for _, inst := range s.Scripts() {
		if !inst.Defines(name) {
			continue
		}
		if _, err := s.call(inst, name, args, 0); err != nil {
			s.log.Debug("broadcast call failed",
				zap.String("fn", name),
				zap.String("script", inst.info.Name),
				zap.Error(err),
			)
			continue
		}
		n++
	}
	return n
}

// Call runs a global function of one script and returns its first result.
// A missing function returns none without error.
func (s *System) Call(inst *Instance, name string, args ...value.Value) (value.Value, error) {
	if !inst.Defines(name) {
		return value.Nil(), nil
	}
	ret, err := s.call(inst, name, args, 1)
	if err != nil {
		return value.Nil(), err
	}
	return value.FromLua(ret), nil
}

// CallBool is Call with the first result read as a Lua condition: anything
// but nil and false is true. A missing function returns false.
func (s *System) CallBool(inst *Instance, name string, args ...value.Value) (bool, error) {
	if !inst.Defines(name) {
		return false, nil
	}
	ret, err := s.call(inst, name, args, 1)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

func (s *System) call(inst *Instance, name string, args []value.Value, nret int) (lua.LValue, error) {
	if !inst.Acquire() {
		return lua.LNil, fmt.Errorf("call %s: script %d is unloading", name, inst.id)
	}
	defer inst.Release()

	vm := inst.vm
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		if !a.Scalar() {
			a = value.Nil()
		}
		largs[i] = value.ToLua(vm, a)
	}
	if err := vm.CallByParam(lua.P{
		Fn:      vm.GetGlobal(name),
		NRet:    nret,
		Protect: true,
	}, largs...); err != nil {
		return lua.LNil, fmt.Errorf("call %s: %w", name, err)
	}
	if nret == 0 {
		return lua.LNil, nil
	}
	ret := vm.Get(-1)
	vm.Pop(1)
	return ret, nil
}

// Unload removes a script. Hooks, timers and commands it owns are released
// by the OnUnload callbacks; its state closes once no call is running in it.
func (s *System) Unload(id uint32) bool {
	inst, ok := s.Get(id)
	if !ok {
		return false
	}
	s.remove(inst)
	s.discard(inst)
	s.log.Info("unloaded script", zap.String("name", inst.info.Name), zap.Uint32("id", id))
	return true
}

// UnloadAll unloads every script, last loaded first.
func (s *System) UnloadAll() {
	for i := len(s.scripts) - 1; i >= 0; i-- {
		s.Unload(s.scripts[i].id)
	}
}
