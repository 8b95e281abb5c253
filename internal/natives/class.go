package natives

import (
	"github.com/lunahost/luna/internal/bridge"
	"github.com/lunahost/luna/internal/entity"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/value"
)

func (e *Env) classNatives() []Native {
	return []Native{
		{Name: "playerClassFnHook", Params: params(kInt, kStr, kInt), Results: 1, Fn: func(c *Call) []value.Value {
			kind, ok := bridge.PlayerKind(c.L.CheckInt64(1))
			fn := c.L.CheckString(2)
			if !ok {
				return nil
			}
			return c.hook(kind, fn, c.Arg(2))
		}},
		{Name: "playerClassCallNext", Params: params(kInt, kRef), Results: -1, Fn: func(c *Call) []value.Value {
			return c.continuePlayer(false)
		}},
		{Name: "playerClassCallOriginal", Params: params(kInt, kRef), Results: -1, Fn: func(c *Call) []value.Value {
			return c.continuePlayer(true)
		}},
		{Name: "playerClassFnUnhook", Params: params(kInt, kRef), Fn: func(c *Call) []value.Value {
			if kind, ok := bridge.PlayerKind(c.Arg(0).Int()); ok {
				c.unhook(kind)
			}
			return nil
		}},
		{Name: "getEdictFromPlayerClass", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefEntity)
			p, ok := entity.Get[host.Player](c.deps.Entities, r)
			if !ok {
				return nil
			}
			return c.edictOf(p)
		}},
		{Name: "getEdictFromBaseClass", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefEntity)
			ent, ok := entity.Get[host.Entity](c.deps.Entities, r)
			if !ok {
				return nil
			}
			return c.edictOf(ent)
		}},
		// The InHook variants take the entity handed to a hook handler. It
		// lives as long as the handler runs and is not checked further.
		{Name: "getEdictFromPlayerClassInHook", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefHookEntity)
			ent, ok := c.deps.Bridge.HookEntity(r)
			if !ok {
				return nil
			}
			if _, ok := ent.(host.Player); !ok {
				return nil
			}
			return c.edictOf(ent)
		}},
		{Name: "getEdictFromBaseClassInHook", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefHookEntity)
			ent, ok := c.deps.Bridge.HookEntity(r)
			if !ok {
				return nil
			}
			return c.edictOf(ent)
		}},
		{Name: "getPlayerFromEdict", Params: params(kRef), Results: 1, Fn: func(c *Call) []value.Value {
			ed, ok := c.edict(0)
			if !ok {
				return nil
			}
			p, ok := c.deps.Game.BasePlayer(ed)
			if !ok {
				return nil
			}
			return ref(c.deps.Entities.Create(p))
		}},
		{Name: "spawnPlayerClass", Params: params(kRef), Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefEntity)
			if p, ok := entity.Get[host.Player](c.deps.Entities, r); ok {
				p.Spawn()
			}
			return nil
		}},
		{Name: "giveNamedItemToPlayer", Params: params(kRef, kStr), Results: 1, Fn: func(c *Call) []value.Value {
			r, _ := c.Ref(0, value.RefEntity)
			p, ok := entity.Get[host.Player](c.deps.Entities, r)
			if !ok {
				return nil
			}
			item, ok := p.GiveNamedItem(c.Arg(1).String())
			if !ok {
				return nil
			}
			return ref(c.deps.Entities.Create(item))
		}},
	}
}

func (c *Call) continuePlayer(original bool) []value.Value {
	kind, ok := bridge.PlayerKind(c.Arg(0).Int())
	if !ok {
		return nil
	}
	return c.continueHook(kind, original)
}

func (c *Call) edictOf(ent host.Entity) []value.Value {
	ed := ent.Edict()
	if ed == nil {
		return nil
	}
	return ref(c.deps.Entities.Edict(ed))
}
