package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/entity"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/host/sim"
	"github.com/lunahost/luna/internal/value"
)

type testScript struct {
	id     uint32
	L      *lua.LState
	closed bool
}

func (s *testScript) ID() uint32         { return s.id }
func (s *testScript) State() *lua.LState { return s.L }
func (s *testScript) Acquire() bool      { return !s.closed }
func (s *testScript) Release()           {}

type fixture struct {
	engine *sim.Engine
	game   *sim.Game
	bridge *Bridge
	script *testScript
	stale  value.Value
}

// newFixture loads src into a fresh state that can continue hook chains
// through next(kind, hook, ...) and orig(kind, hook, ...).
func newFixture(t *testing.T, src string, opts ...sim.Option) *fixture {
	t.Helper()
	e := sim.NewEngine(4, zap.NewNop())
	g := sim.NewGame(e, opts...)
	b := New(g, entity.NewRegistry(zap.NewNop()), zap.NewNop())

	L := lua.NewState()
	t.Cleanup(L.Close)
	value.Open(L)
	f := &fixture{engine: e, game: g, bridge: b, script: &testScript{id: 1, L: L}}

	cont := func(original bool) lua.LGFunction {
		return func(L *lua.LState) int {
			kind := Kind(L.CheckInt(1))
			hook, _ := value.FromLua(L.Get(2)).Ref(value.RefHook)
			var args []value.Value
			for i := 3; i <= L.GetTop(); i++ {
				args = append(args, value.FromLua(L.Get(i)))
			}
			res := b.Call(kind, hook, args, original)
			for _, v := range res {
				L.Push(value.ToLua(L, v))
			}
			return len(res)
		}
	}
	L.SetGlobal("next", L.NewFunction(cont(false)))
	L.SetGlobal("orig", L.NewFunction(cont(true)))
	L.SetGlobal("keep", L.NewFunction(func(L *lua.LState) int {
		f.stale = value.FromLua(L.Get(1))
		return 0
	}))
	require.NoError(t, L.DoString(src))
	return f
}

func (f *fixture) register(t *testing.T, kind Kind, fn string) value.Ref {
	t.Helper()
	tok, ok := f.bridge.Register(f.script, kind, fn, host.PriorityDefault)
	require.True(t, ok)
	return tok
}

func TestMissingHandler_BehavesLikeCallNext(t *testing.T) {
	type outcome struct {
		connected bool
		cmds      int
		health    float32
		spawns    int
		roundEnd  bool
		frozen    bool
	}
	run := func(t *testing.T, hooked bool) outcome {
		f := newFixture(t, ``, sim.WithCStrike(), sim.WithShields())
		if hooked {
			for _, k := range []Kind{ClientConnect, ClientCmd, ClientInfoChanged, RoundEnd, FreezeEnd,
				PlayerSpawn, PlayerTakeDamage, PlayerTraceAttack, PlayerKilled, PlayerGiveShield, PlayerDropShield} {
				f.register(t, k, "undefined_handler")
			}
		}
		ed, ok, _ := f.game.Connect("frank", "1.2.3.4")
		f.game.ClientCommand(ed)
		f.game.SetInfo(ed, `\name\frankie`)
		p, _ := f.game.BasePlayer(ed)
		p.Spawn()
		f.game.Damage(p, nil, nil, 25, 0)
		f.game.TraceAttack(p, nil, 5, host.Vector{1, 0, 0}, &sim.Trace{Frac: 1}, 0)
		f.game.GiveShield(p, true)
		re := f.game.EndRound(1, 2, 5)
		f.game.EndFreeze()
		f.game.Kill(p, nil, 1)
		assert.Equal(t, 0, f.bridge.OpenFrames())
		return outcome{
			connected: ok,
			cmds:      len(f.game.Commands),
			health:    f.game.Health(ed),
			spawns:    p.(*sim.Player).Spawns(),
			roundEnd:  re,
			frozen:    f.game.Frozen,
		}
	}

	assert.Equal(t, run(t, false), run(t, true))
}

func TestConnect_HandlerRejectsWithReason(t *testing.T) {
	f := newFixture(t, `
function onConnect(hook, edict, name, ip, reason)
	if name == "cheater" then
		next(0, hook, edict, name, ip, "banned")
		return false
	end
	return next(0, hook, edict, name, ip, reason)
end`)
	f.register(t, ClientConnect, "onConnect")

	_, ok, reason := f.game.Connect("cheater", "6.6.6.6")
	assert.False(t, ok)
	assert.Equal(t, "banned", reason)

	_, ok, _ = f.game.Connect("honest", "1.1.1.1")
	assert.True(t, ok)
}

func TestBoolHook_NonBoolResultFallsBackToCallNext(t *testing.T) {
	f := newFixture(t, `function onConnect(hook) return "yes" end`)
	f.register(t, ClientConnect, "onConnect")

	_, ok, _ := f.game.Connect("gina", "1.1.1.1")
	assert.True(t, ok, "original accepts the client")
}

func TestHandlerError_FallsBackToCallNext(t *testing.T) {
	f := newFixture(t, `function onDamage(hook) error("boom") end`)
	f.register(t, PlayerTakeDamage, "onDamage")

	ed, _, _ := f.game.Connect("hank", "1.1.1.1")
	p, _ := f.game.BasePlayer(ed)
	p.Spawn()
	applied, dmg := f.game.Damage(p, nil, nil, 40, 0)
	assert.True(t, applied)
	assert.Equal(t, float32(40), dmg)
	assert.Equal(t, float32(60), f.game.Health(ed))
}

func TestTakeDamage_ContinuationWritesDamage(t *testing.T) {
	f := newFixture(t, `
function onDamage(hook, player, inflictor, attacker, damage, dmgType)
	return next(0x101, hook, player, inflictor, attacker, damage / 2, dmgType)
end`)
	f.register(t, PlayerTakeDamage, "onDamage")

	ed, _, _ := f.game.Connect("ivy", "1.1.1.1")
	p, _ := f.game.BasePlayer(ed)
	p.Spawn()
	applied, dmg := f.game.Damage(p, nil, nil, 50, 0)
	assert.True(t, applied)
	assert.Equal(t, float32(25), dmg, "game sees the halved damage")
	assert.Equal(t, float32(75), f.game.Health(ed))
}

func TestVoidHook_HandlerStopsChain(t *testing.T) {
	f := newFixture(t, `function onCmd(hook, edict) end`)
	f.register(t, ClientCmd, "onCmd")

	ed, _, _ := f.game.Connect("jack", "1.1.1.1")
	f.game.ClientCommand(ed)
	assert.Empty(t, f.game.Commands)
}

func TestCallOriginal(t *testing.T) {
	f := newFixture(t, `function onFreeze(hook) orig(4, hook) end`, sim.WithCStrike())
	f.register(t, FreezeEnd, "onFreeze")

	f.game.EndFreeze()
	assert.False(t, f.game.Frozen)
}

func TestUnavailableKind_ReturnsNoToken(t *testing.T) {
	f := newFixture(t, ``)
	for _, k := range []Kind{RoundEnd, FreezeEnd, PlayerGiveShield, PlayerDropShield, Kind(99)} {
		tok, ok := f.bridge.Register(f.script, k, "fn", host.PriorityDefault)
		assert.False(t, ok, k.String())
		assert.False(t, tok.Valid())
	}
	assert.Equal(t, 0, f.bridge.Registered())
}

func TestStaleHookRef_IsNoOp(t *testing.T) {
	f := newFixture(t, `
function onCmd(hook, edict)
	keep(hook)
	next(1, hook, edict)
end`)
	f.register(t, ClientCmd, "onCmd")
	ed, _, _ := f.game.Connect("kim", "1.1.1.1")
	f.game.ClientCommand(ed)
	require.Len(t, f.game.Commands, 1)

	hook, ok := f.stale.Ref(value.RefHook)
	require.True(t, ok)
	assert.Nil(t, f.bridge.Call(ClientCmd, hook, nil, false))
	assert.Equal(t, []value.Value{value.FromBool(false)}, f.bridge.Call(ClientConnect, hook, nil, false))
	assert.Len(t, f.game.Commands, 1)
}

func TestUnregister(t *testing.T) {
	f := newFixture(t, `function onCmd(hook, edict) end`)
	tok := f.register(t, ClientCmd, "onCmd")

	assert.False(t, f.bridge.Unregister(ClientConnect, tok), "kind mismatch is ignored")
	assert.True(t, f.bridge.Unregister(ClientCmd, tok))
	assert.False(t, f.bridge.Unregister(ClientCmd, tok), "second unhook is ignored")

	ed, _, _ := f.game.Connect("lee", "1.1.1.1")
	f.game.ClientCommand(ed)
	assert.Len(t, f.game.Commands, 1)
}

func TestRevokeScript(t *testing.T) {
	f := newFixture(t, `function onCmd(hook, edict) end`)
	f.register(t, ClientCmd, "onCmd")
	f.register(t, PlayerSpawn, "onSpawn")

	assert.Equal(t, 2, f.bridge.RevokeScript(f.script.id))
	assert.Equal(t, 0, f.bridge.Registered())
}

func TestClosedScript_PassesThrough(t *testing.T) {
	f := newFixture(t, `function onCmd(hook, edict) end`)
	f.register(t, ClientCmd, "onCmd")
	f.script.closed = true

	ed, _, _ := f.game.Connect("max", "1.1.1.1")
	f.game.ClientCommand(ed)
	assert.Len(t, f.game.Commands, 1)
}

func TestHookEntity_ScopedToFrame(t *testing.T) {
	f := newFixture(t, `
function onSpawn(hook, player)
	keep(player)
	next(0x100, hook, player)
end`)
	f.register(t, PlayerSpawn, "onSpawn")
	ed, _, _ := f.game.Connect("nia", "1.1.1.1")
	p, _ := f.game.BasePlayer(ed)
	p.Spawn()

	assert.Equal(t, 1, p.(*sim.Player).Spawns())
	r, ok := f.stale.Ref(value.RefHookEntity)
	require.True(t, ok)
	_, ok = f.bridge.HookEntity(r)
	assert.False(t, ok)
}

func TestKinds(t *testing.T) {
	k, ok := GameKind(3)
	assert.True(t, ok)
	assert.Equal(t, RoundEnd, k)
	_, ok = GameKind(5)
	assert.False(t, ok)

	k, ok = PlayerKind(1)
	assert.True(t, ok)
	assert.Equal(t, PlayerTakeDamage, k)
	_, ok = PlayerKind(6)
	assert.False(t, ok)

	sig, ok := SignatureOf(PlayerTakeDamage)
	require.True(t, ok)
	assert.Equal(t, value.KindBool, sig.Result)
	assert.Len(t, sig.Params, 5)
}
