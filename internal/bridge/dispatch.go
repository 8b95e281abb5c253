package bridge

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/core/handle"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/value"
)

// frame is one running handler invocation. Its ID is the hook ref the
// script receives as first argument.
type frame struct {
	b        *Bridge
	id       handle.ID
	kind     Kind
	children []handle.ID
	cont     func(args []value.Value, original bool) []value.Value
}

func (b *Bridge) openFrame(kind Kind) *frame {
	f := &frame{b: b, kind: kind}
	f.id = b.frames.Insert(f)
	return f
}

func (b *Bridge) closeFrame(f *frame) {
	for _, id := range f.children {
		b.scoped.Remove(id)
	}
	b.frames.Remove(f.id)
}

func (f *frame) ref() value.Value {
	return value.RefOf(value.RefHook, f.id)
}

func (f *frame) keep(k value.RefKind, v any) value.Value {
	id := f.b.scoped.Insert(scopedValue{kind: k, v: v})
	f.children = append(f.children, id)
	return value.RefOf(k, id)
}

func (f *frame) entity(e host.Entity) value.Value {
	if e == nil {
		return value.Nil()
	}
	return f.keep(value.RefHookEntity, e)
}

func (f *frame) player(p host.Player) value.Value {
	if p == nil {
		return value.Nil()
	}
	return f.keep(value.RefHookEntity, host.Entity(p))
}

func (f *frame) edict(ed host.Edict) value.Value {
	if ed == nil {
		return value.Nil()
	}
	return value.FromRef(f.b.ents.Edict(ed))
}

// The decoders below return the original argument when the script passed
// nothing usable.

func (f *frame) decodeEdict(v value.Value, orig host.Edict) host.Edict {
	if r, ok := v.Ref(value.RefEdict); ok {
		if ed, ok := f.b.ents.ResolveEdict(r); ok {
			return ed
		}
	}
	return orig
}

func (f *frame) decodeEntity(v value.Value, orig host.Entity) host.Entity {
	if r, ok := v.Ref(value.RefHookEntity); ok {
		if e, ok := f.b.HookEntity(r); ok {
			return e
		}
	}
	return orig
}

func (f *frame) decodePlayer(v value.Value, orig host.Player) host.Player {
	if r, ok := v.Ref(value.RefHookEntity); ok {
		if e, ok := f.b.HookEntity(r); ok {
			if p, ok := e.(host.Player); ok {
				return p
			}
		}
	}
	return orig
}

func decodeString(v value.Value, orig string) string {
	if v.Kind() == value.KindString {
		return v.String()
	}
	return orig
}

func decodeFloat(v value.Value, orig float32) float32 {
	switch v.Kind() {
	case value.KindNumber, value.KindInt:
		return float32(v.Number())
	}
	return orig
}

func decodeInt(v value.Value, orig int32) int32 {
	switch v.Kind() {
	case value.KindNumber, value.KindInt:
		return int32(v.Int())
	}
	return orig
}

func decodeBool(v value.Value, orig bool) bool {
	if v.Kind() == value.KindBool {
		return v.Bool()
	}
	return orig
}

// codec converts one hook's arguments and result across the boundary.
// A nil parse marks a hook with no result.
type codec[A, R any] struct {
	encode func(f *frame, a A) []value.Value
	decode func(f *frame, args []value.Value, orig A) A
	result func(r R) []value.Value
	parse  func(lv lua.LValue) (R, bool)
}

func voidResult(host.Void) []value.Value { return nil }

func boolResult(r bool) []value.Value { return []value.Value{value.FromBool(r)} }

func parseBool(lv lua.LValue) (bool, bool) {
	b, ok := lv.(lua.LBool)
	return bool(b), ok
}

// attach registers the trampoline for fn on chain.
func attach[A, R any](b *Bridge, s Script, kind Kind, fn string, prio host.Priority, chain host.Chain[A, R], c codec[A, R]) (func() bool, bool) {
	if chain == nil {
		return nil, false
	}
	info := chain.Register(func(h host.Hook[A, R], args A) R {
		return trampoline(b, s, kind, fn, h, args, c)
	}, prio)
	return func() bool { return chain.Unregister(info) }, true
}

// trampoline runs one handler. A missing handler, a failing handler or a
// result of the wrong type continue the chain with the original arguments.
func trampoline[A, R any](b *Bridge, s Script, kind Kind, fn string, h host.Hook[A, R], args A, c codec[A, R]) R {
	if !s.Acquire() {
		return h.CallNext(args)
	}
	defer s.Release()

	L := s.State()
	lfn := L.GetGlobal(fn)
	if lfn == lua.LNil {
		return h.CallNext(args)
	}

	f := b.openFrame(kind)
	defer b.closeFrame(f)
	f.cont = func(vals []value.Value, original bool) []value.Value {
		a := c.decode(f, vals, args)
		if original {
			return c.result(h.CallOriginal(a))
		}
		return c.result(h.CallNext(a))
	}

	largs := make([]lua.LValue, 0, 8)
	largs = append(largs, value.ToLua(L, f.ref()))
	for _, v := range c.encode(f, args) {
		largs = append(largs, value.ToLua(L, v))
	}

	nret := 0
	if c.parse != nil {
		nret = 1
	}
	if err := L.CallByParam(lua.P{Fn: lfn, NRet: nret, Protect: true}, largs...); err != nil {
		b.log.Debug("hook handler failed",
			zap.Stringer("kind", kind),
			zap.String("fn", fn),
			zap.Uint32("script", s.ID()),
			zap.Error(err),
		)
		return h.CallNext(args)
	}
	if c.parse == nil {
		var zero R
		return zero
	}
	ret := L.Get(-1)
	L.Pop(1)
	r, ok := c.parse(ret)
	if !ok {
		b.log.Debug("hook handler returned wrong type",
			zap.Stringer("kind", kind),
			zap.String("fn", fn),
			zap.String("got", ret.Type().String()),
		)
		return h.CallNext(args)
	}
	return r
}
