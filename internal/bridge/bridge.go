// Package bridge installs script functions as host hook callbacks and lets
// scripts continue the hook chain from inside a handler.
package bridge

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/core/handle"
	"github.com/lunahost/luna/internal/entity"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/value"
)

// Script is the part of a loaded script the bridge needs. Acquire fails
// once the script is unloading; every successful Acquire is paired with
// Release.
type Script interface {
	ID() uint32
	State() *lua.LState
	Acquire() bool
	Release()
}

type token struct {
	kind       Kind
	fn         string
	owner      uint32
	unregister func() bool
}

// Bridge owns every hook registration and every live hook frame.
type Bridge struct {
	game host.Game
	ents *entity.Registry
	log  *zap.Logger

	tokens *handle.Table[*token]
	frames *handle.Table[*frame]
	// scoped holds values that only live while a hook frame is open:
	// hook entities, info buffers, direction vectors and traces.
	scoped *handle.Table[any]
}

func New(game host.Game, ents *entity.Registry, log *zap.Logger) *Bridge {
	return &Bridge{
		game:   game,
		ents:   ents,
		log:    log,
		tokens: handle.NewTable[*token](),
		frames: handle.NewTable[*frame](),
		scoped: handle.NewTable[any](),
	}
}

// Register installs fn from s on the hook chain for kind. It returns false
// when the game does not provide that chain.
func (b *Bridge) Register(s Script, kind Kind, fn string, prio host.Priority) (value.Ref, bool) {
	unregister, ok := b.install(s, kind, fn, prio)
	if !ok {
		b.log.Debug("hook kind unavailable", zap.Stringer("kind", kind), zap.String("fn", fn))
		return value.Ref{}, false
	}
	id := b.tokens.Insert(&token{kind: kind, fn: fn, owner: s.ID(), unregister: unregister})
	b.log.Debug("hook registered",
		zap.Stringer("kind", kind),
		zap.String("fn", fn),
		zap.Uint8("priority", uint8(prio)),
		zap.Uint32("script", s.ID()),
	)
	return value.Ref{Kind: value.RefHookToken, ID: id}, true
}

func (b *Bridge) install(s Script, kind Kind, fn string, prio host.Priority) (func() bool, bool) {
	switch kind {
	case ClientConnect:
		return attach(b, s, kind, fn, prio, b.game.Hooks().ClientConnect(), connectCodec)
	case ClientCmd:
		return attach(b, s, kind, fn, prio, b.game.Hooks().ClientCmd(), cmdCodec)
	case ClientInfoChanged:
		return attach(b, s, kind, fn, prio, b.game.Hooks().ClientInfoChanged(), infoCodec)
	case RoundEnd:
		cs := b.game.Hooks().CStrike()
		if cs == nil {
			return nil, false
		}
		return attach(b, s, kind, fn, prio, cs.RoundEnd(), roundEndCodec)
	case FreezeEnd:
		cs := b.game.Hooks().CStrike()
		if cs == nil {
			return nil, false
		}
		return attach(b, s, kind, fn, prio, cs.FreezeEnd(), freezeEndCodec)
	case PlayerSpawn:
		return attach(b, s, kind, fn, prio, b.game.PlayerHooks().Spawn(), spawnCodec)
	case PlayerTakeDamage:
		return attach(b, s, kind, fn, prio, b.game.PlayerHooks().TakeDamage(), takeDamageCodec)
	case PlayerTraceAttack:
		return attach(b, s, kind, fn, prio, b.game.PlayerHooks().TraceAttack(), traceAttackCodec)
	case PlayerKilled:
		return attach(b, s, kind, fn, prio, b.game.PlayerHooks().Killed(), killedCodec)
	case PlayerGiveShield:
		return attach(b, s, kind, fn, prio, b.game.PlayerHooks().GiveShield(), giveShieldCodec)
	case PlayerDropShield:
		return attach(b, s, kind, fn, prio, b.game.PlayerHooks().DropShield(), dropShieldCodec)
	}
	return nil, false
}

// Unregister removes a registration. Unknown tokens and tokens of another
// kind are ignored.
func (b *Bridge) Unregister(kind Kind, tok value.Ref) bool {
	if tok.Kind != value.RefHookToken {
		return false
	}
	t, ok := b.tokens.Get(tok.ID)
	if !ok || t.kind != kind {
		return false
	}
	b.tokens.Remove(tok.ID)
	t.unregister()
	return true
}

// RevokeScript unregisters every hook owned by a script.
func (b *Bridge) RevokeScript(owner uint32) int {
	n := 0
	b.tokens.Each(func(id handle.ID, t *token) bool {
		if t.owner == owner {
			b.tokens.Remove(id)
			t.unregister()
			n++
		}
		return true
	})
	if n > 0 {
		b.log.Debug("hooks revoked", zap.Uint32("script", owner), zap.Int("count", n))
	}
	return n
}

// Registered is the number of live registrations.
func (b *Bridge) Registered() int { return b.tokens.Len() }

// OpenFrames is the number of hook frames currently on the stack.
func (b *Bridge) OpenFrames() int { return b.frames.Len() }

// Call continues the hook chain behind the hook ref. A stale frame, or a
// frame of another kind, yields the zero result without side effects.
func (b *Bridge) Call(kind Kind, hook value.Ref, args []value.Value, original bool) []value.Value {
	sig, ok := SignatureOf(kind)
	if !ok {
		return nil
	}
	if hook.Kind != value.RefHook {
		return sig.zeroResult()
	}
	f, ok := b.frames.Get(hook.ID)
	if !ok || f.kind != kind {
		b.log.Debug("continuation on stale hook", zap.Stringer("kind", kind))
		return sig.zeroResult()
	}
	return f.cont(sig.conform(args), original)
}

// HookEntity resolves an entity handed to a handler. No liveness check is
// made; the handle dies with its frame.
func (b *Bridge) HookEntity(r value.Ref) (host.Entity, bool) {
	return scopedGet[host.Entity](b, r, value.RefHookEntity)
}

// InfoBuffer resolves an info buffer handed to a handler.
func (b *Bridge) InfoBuffer(r value.Ref) (host.InfoBuffer, bool) {
	return scopedGet[host.InfoBuffer](b, r, value.RefInfoBuffer)
}

// Vector resolves a direction vector handed to a handler. The pointer
// aliases the game's argument.
func (b *Bridge) Vector(r value.Ref) (*host.Vector, bool) {
	return scopedGet[*host.Vector](b, r, value.RefVector)
}

func (b *Bridge) Trace(r value.Ref) (host.TraceResult, bool) {
	return scopedGet[host.TraceResult](b, r, value.RefTrace)
}

type scopedValue struct {
	kind value.RefKind
	v    any
}

func scopedGet[T any](b *Bridge, r value.Ref, k value.RefKind) (T, bool) {
	var zero T
	if r.Kind != k {
		return zero, false
	}
	raw, ok := b.scoped.Get(r.ID)
	if !ok {
		return zero, false
	}
	sv := raw.(scopedValue)
	if sv.kind != k {
		return zero, false
	}
	t, ok := sv.v.(T)
	return t, ok
}
