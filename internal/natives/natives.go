// Package natives exposes host functionality to scripts as global Lua
// functions. Each native is described by a Native entry; the adapter
// converts Lua arguments to value.Values by the declared parameter kinds.
package natives

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/bridge"
	"github.com/lunahost/luna/internal/entity"
	"github.com/lunahost/luna/internal/ext"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/scripting"
	"github.com/lunahost/luna/internal/timer"
	"github.com/lunahost/luna/internal/value"
)

// Deps holds the services natives operate on.
type Deps struct {
	Engine   host.Engine
	Game     host.Game
	Bridge   *bridge.Bridge
	Entities *entity.Registry
	Timers   *timer.Queue
	Scripts  *scripting.System
	Exts     *ext.Manager
	Charset  *Charset
	Log      *zap.Logger
}

// Native is one script-callable function.
type Native struct {
	Name   string
	Params []value.Kind
	// Results is the number of values pushed. Missing results are padded
	// with nil; a negative count pushes whatever Fn returns.
	Results int
	Fn      func(c *Call) []value.Value
}

// Call is one native invocation.
type Call struct {
	*Env
	Inst *scripting.Instance
	L    *lua.LState
	Args []value.Value
}

// Arg returns the i-th argument (0-based) or none.
func (c *Call) Arg(i int) value.Value {
	if i < 0 || i >= len(c.Args) {
		return value.Nil()
	}
	return c.Args[i]
}

// Truth reads argument i as a Lua condition: anything but nil and false
// is true.
func (c *Call) Truth(i int) bool { return lua.LVAsBool(c.L.Get(i + 1)) }

// Ref returns argument i when it is a handle of kind k.
func (c *Call) Ref(i int, k value.RefKind) (value.Ref, bool) {
	return c.Arg(i).Ref(k)
}

// Env is the native library. It tracks what each script claimed so that
// unloading a script releases it.
type Env struct {
	deps    Deps
	log     *zap.Logger
	ctx     context.Context
	natives []Native

	commands map[string]*command
	sql      *sqlState
}

// New builds the library and installs it into d.Scripts.
func New(ctx context.Context, d Deps) *Env {
	if d.Charset == nil {
		d.Charset = UTF8
	}
	e := &Env{
		deps:     d,
		log:      d.Log,
		ctx:      ctx,
		commands: make(map[string]*command),
		sql:      newSQLState(),
	}
	e.natives = append(e.natives, e.basicNatives()...)
	e.natives = append(e.natives, e.edictNatives()...)
	e.natives = append(e.natives, e.classNatives()...)
	e.natives = append(e.natives, e.sqlNatives()...)

	d.Scripts.Use(e)
	d.Scripts.OnUnload(e.release)
	return e
}

// Natives lists every registered native.
func (e *Env) Natives() []Native { return e.natives }

// Open registers every native into a new script state.
func (e *Env) Open(inst *scripting.Instance) {
	L := inst.State()
	for _, n := range e.natives {
		L.SetGlobal(n.Name, L.NewFunction(e.adapt(inst, n)))
	}
}

func (e *Env) adapt(inst *scripting.Instance, n Native) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		args := make([]value.Value, max(top, len(n.Params)))
		for i := range args {
			lv := L.Get(i + 1)
			if i >= len(n.Params) {
				args[i] = value.FromLua(lv)
				continue
			}
			v, ok := value.Coerce(lv, n.Params[i])
			if !ok {
				if n.Params[i] != value.KindRef {
					L.ArgError(i+1, fmt.Sprintf("%s expected, got %s", n.Params[i], lv.Type()))
				}
				// Bad handles read as none; natives then return nil.
				v = value.Nil()
			}
			args[i] = v
		}

		res := n.Fn(&Call{Env: e, Inst: inst, L: L, Args: args})
		if n.Results < 0 {
			for _, v := range res {
				L.Push(value.ToLua(L, v))
			}
			return len(res)
		}
		for i := 0; i < n.Results; i++ {
			if i < len(res) {
				L.Push(value.ToLua(L, res[i]))
			} else {
				L.Push(lua.LNil)
			}
		}
		return n.Results
	}
}

// release drops everything a script claimed. It runs before the script's
// state is closed.
func (e *Env) release(inst *scripting.Instance) {
	id := inst.ID()
	hooks := e.deps.Bridge.RevokeScript(id)
	timers := e.deps.Timers.RemoveOwner(id)
	cmds := e.removeCommands(id)
	handles := e.sql.releaseOwner(id)
	e.log.Debug("script resources released",
		zap.Uint32("script", id),
		zap.Int("hooks", hooks),
		zap.Int("timers", timers),
		zap.Int("commands", cmds),
		zap.Int("sql_handles", handles),
	)
}

// Close releases every SQL handle. Called at shutdown after scripts are
// unloaded.
func (e *Env) Close() {
	e.sql.releaseAll()
}

// Helpers shared by the native tables.

func one(v value.Value) []value.Value { return []value.Value{v} }

func boolean(b bool) []value.Value { return one(value.FromBool(b)) }

func integer(n int64) []value.Value { return one(value.FromInt(n)) }

func number(f float64) []value.Value { return one(value.FromNumber(f)) }

func str(s string) []value.Value { return one(value.FromString(s)) }

func ref(r value.Ref) []value.Value { return one(value.FromRef(r)) }

var (
	kInt  = value.KindInt
	kNum  = value.KindNumber
	kStr  = value.KindString
	kBool = value.KindBool
	kRef  = value.KindRef
	kAny  = value.KindNone
)

func params(k ...value.Kind) []value.Kind { return k }
