package natives

import (
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/bridge"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/scripting"
	"github.com/lunahost/luna/internal/value"
)

type command struct {
	inst *scripting.Instance
	fn   string
}

func (e *Env) basicNatives() []Native {
	return []Native{
		{Name: "enginePrint", Params: params(kStr), Fn: func(c *Call) []value.Value {
			c.deps.Engine.Print(c.deps.Charset.ToEngine(c.Arg(0).String()))
			return nil
		}},
		{Name: "gameFnHook", Params: params(kInt, kStr, kInt), Results: 1, Fn: func(c *Call) []value.Value {
			kind, ok := bridge.GameKind(c.L.CheckInt64(1))
			fn := c.L.CheckString(2)
			if !ok {
				return nil
			}
			return c.hook(kind, fn, c.Arg(2))
		}},
		{Name: "callNext", Params: params(kInt, kRef), Results: -1, Fn: func(c *Call) []value.Value {
			return c.continueGame(false)
		}},
		{Name: "callOriginal", Params: params(kInt, kRef), Results: -1, Fn: func(c *Call) []value.Value {
			return c.continueGame(true)
		}},
		{Name: "gameFnUnhook", Params: params(kInt, kRef), Fn: func(c *Call) []value.Value {
			if kind, ok := bridge.GameKind(c.Arg(0).Int()); ok {
				c.unhook(kind)
			}
			return nil
		}},
		{Name: "addSrvCommand", Params: params(kStr, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			return boolean(c.addCommand(c.Inst, c.Arg(0).String(), c.Arg(1).String()))
		}},
		{Name: "rmvSrvCommand", Params: params(kStr), Fn: func(c *Call) []value.Value {
			name := c.Arg(0).String()
			c.deps.Engine.RemoveCmd(name)
			delete(c.commands, name)
			return nil
		}},
		{Name: "cmdArgv", Params: params(kInt), Results: 1, Fn: func(c *Call) []value.Value {
			return str(c.deps.Charset.FromEngine(c.deps.Engine.CmdArgv(int(c.Arg(0).Int()))))
		}},
		{Name: "cmdArgc", Results: 1, Fn: func(c *Call) []value.Value {
			return integer(int64(c.deps.Engine.CmdArgc()))
		}},
		{Name: "cmdArgs", Results: 1, Fn: func(c *Call) []value.Value {
			return str(c.deps.Charset.FromEngine(c.deps.Engine.CmdArgs()))
		}},
		{Name: "infoKeyValue", Params: params(kRef, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefInfoBuffer)
			buf, ok := c.deps.Bridge.InfoBuffer(r)
			if !ok {
				return nil
			}
			v := c.deps.Engine.InfoKeyValue(buf, c.deps.Charset.ToEngine(c.Arg(1).String()))
			return str(c.deps.Charset.FromEngine(v))
		}},
		{Name: "clientPrint", Params: params(kRef, kInt, kStr), Fn: func(c *Call) []value.Value {
			ed, ok := c.edict(0)
			if !ok {
				return nil
			}
			msg := c.deps.Charset.ToEngine(c.Arg(2).String())
			c.deps.Engine.ClientPrint(ed, host.PrintType(c.Arg(1).Int()), msg)
			return nil
		}},
		{Name: "execFunc", Params: params(kStr), Results: 1, Fn: func(c *Call) []value.Value {
			return integer(int64(c.deps.Scripts.Broadcast(c.Arg(0).String(), c.Args[1:])))
		}},
		{Name: "createTimer", Params: params(kNum, kStr, kAny, kAny, kAny), Results: 1, Fn: func(c *Call) []value.Value {
			return c.createTimer()
		}},
		{Name: "removeTimer", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			r, ok := c.Ref(0, value.RefTimer)
			return boolean(ok && c.deps.Timers.Remove(r.ID))
		}},
	}
}

func (c *Call) hook(kind bridge.Kind, fn string, prio value.Value) []value.Value {
	p := prio.Int()
	if prio.IsNil() {
		p = int64(host.PriorityDefault)
	}
	p = min(max(p, int64(host.PriorityLowest)), int64(host.PriorityHighest))
	tok, ok := c.deps.Bridge.Register(c.Inst, kind, fn, host.Priority(p))
	if !ok {
		return nil
	}
	return ref(tok)
}

func (c *Call) unhook(kind bridge.Kind) {
	tok, ok := c.Ref(1, value.RefHookToken)
	if !ok {
		return
	}
	c.deps.Bridge.Unregister(kind, tok)
}

func (c *Call) continueGame(original bool) []value.Value {
	kind, ok := bridge.GameKind(c.Arg(0).Int())
	if !ok {
		return nil
	}
	return c.continueHook(kind, original)
}

func (c *Call) continueHook(kind bridge.Kind, original bool) []value.Value {
	hook, _ := c.Ref(1, value.RefHook)
	return c.deps.Bridge.Call(kind, hook, c.Args[2:], original)
}

func (e *Env) addCommand(inst *scripting.Instance, name, fn string) bool {
	if _, exists := e.commands[name]; exists {
		return false
	}
	e.commands[name] = &command{inst: inst, fn: fn}
	e.deps.Engine.RegisterSrvCommand(name, func() { e.runCommand(name) })
	return true
}

func (e *Env) runCommand(name string) {
	cmd, ok := e.commands[name]
	if !ok {
		return
	}
	if _, err := e.deps.Scripts.Call(cmd.inst, cmd.fn); err != nil {
		e.log.Debug("server command failed", zap.String("cmd", name), zap.Error(err))
	}
}

func (e *Env) removeCommands(owner uint32) int {
	n := 0
	for name, cmd := range e.commands {
		if cmd.inst.ID() == owner {
			e.deps.Engine.RemoveCmd(name)
			delete(e.commands, name)
			n++
		}
	}
	return n
}

// Commands is the number of server commands registered by scripts.
func (e *Env) Commands() int { return len(e.commands) }

func (c *Call) createTimer() []value.Value {
	inst, fn := c.Inst, c.Arg(1).String()
	cb := func(payload value.Value) bool {
		keep, err := c.deps.Scripts.CallBool(inst, fn, payload)
		if err != nil {
			c.log.Debug("timer callback failed", zap.String("fn", fn), zap.Error(err))
			return false
		}
		return keep
	}
	id, queued := c.deps.Timers.Add(c.Arg(0).Number(), cb, c.Arg(2), c.Truth(3), c.Truth(4), inst.ID())
	if !queued {
		return nil
	}
	return ref(value.Ref{Kind: value.RefTimer, ID: id})
}

// edict resolves argument i as a live edict.
func (c *Call) edict(i int) (host.Edict, bool) {
	r, ok := c.Ref(i, value.RefEdict)
	if !ok {
		return nil, false
	}
	return c.deps.Entities.ResolveEdict(r)
}
