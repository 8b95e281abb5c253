package scripting

import (
	lua "github.com/yuin/gopher-lua"
)

// PluginInfo is read from the script's pluginInfo table.
type PluginInfo struct {
	Name    string
	Version string
	Author  string
	URL     string
}

// Instance is one loaded script with its own Lua state.
// Single-goroutine access only (host frame loop).
type Instance struct {
	id   uint32
	info PluginInfo
	path string
	vm   *lua.LState

	busy    int
	closing bool
	closed  bool
}

func (i *Instance) ID() uint32         { return i.id }
func (i *Instance) Info() PluginInfo   { return i.info }
func (i *Instance) Path() string       { return i.path }
func (i *Instance) State() *lua.LState { return i.vm }

// Acquire marks the state as in use. It fails once the script is being
// unloaded, so callers fall back to their default behaviour.
func (i *Instance) Acquire() bool {
	if i.closing {
		return false
	}
	i.busy++
	return true
}

// Release undoes Acquire. A state unloaded while in use is closed by the
// last Release.
func (i *Instance) Release() {
	i.busy--
	if i.busy <= 0 && i.closing {
		i.close()
	}
}

// Defines reports whether the script has a global function called name.
func (i *Instance) Defines(name string) bool {
	if i.closed {
		return false
	}
	return i.vm.GetGlobal(name).Type() == lua.LTFunction
}

func (i *Instance) shutdown() {
	i.closing = true
	if i.busy <= 0 {
		i.close()
	}
}

func (i *Instance) close() {
	if i.closed {
		return
	}
	i.closed = true
	i.vm.Close()
}

func lStr(t *lua.LTable, key string) string {
	v := t.RawGetString(key)
	if v == lua.LNil {
		return ""
	}
	return lua.LVAsString(v)
}
