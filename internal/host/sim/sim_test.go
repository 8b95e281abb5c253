package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/host"
)

func TestChain_PriorityOrderAndCallNext(t *testing.T) {
	var order []string
	c := NewChain(func(n int) int { order = append(order, "original"); return n })

	c.Register(func(h host.Hook[int, int], n int) int {
		order = append(order, "low")
		return h.CallNext(n + 1)
	}, host.PriorityLow)
	c.Register(func(h host.Hook[int, int], n int) int {
		order = append(order, "high")
		return h.CallNext(n * 10)
	}, host.PriorityHigh)

	assert.Equal(t, 11, c.Call(1))
	assert.Equal(t, []string{"high", "low", "original"}, order)
}

func TestChain_CallOriginalSkipsRest(t *testing.T) {
	called := false
	c := NewChain(func(n int) int { return n })
	c.Register(func(h host.Hook[int, int], n int) int { return h.CallOriginal(n + 5) }, host.PriorityHigh)
	c.Register(func(h host.Hook[int, int], n int) int { called = true; return 0 }, host.PriorityLow)

	assert.Equal(t, 6, c.Call(1))
	assert.False(t, called)
}

func TestChain_UnregisterDuringDispatch(t *testing.T) {
	c := NewChain(func(n int) int { return n })
	var second host.HookInfo
	c.Register(func(h host.Hook[int, int], n int) int {
		c.Unregister(second)
		return h.CallNext(n)
	}, host.PriorityHigh)
	second = c.Register(func(h host.Hook[int, int], n int) int { return -1 }, host.PriorityLow)

	assert.Equal(t, 3, c.Call(3))
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Unregister(second))
}

func TestEngine_FreeEdictChangesSerial(t *testing.T) {
	e := NewEngine(4, zap.NewNop())
	ed := e.AllocEdict()
	serial := ed.SerialNumber()
	e.FreeEdict(ed)
	again := e.AllocEdict()

	assert.Same(t, ed, again)
	assert.NotEqual(t, serial, again.SerialNumber())
}

func TestEngine_ExecCommand(t *testing.T) {
	e := NewEngine(4, zap.NewNop())
	var args string
	e.RegisterSrvCommand("luna_test", func() { args = e.CmdArgs() })

	require.True(t, e.Exec("luna_test a b"))
	assert.Equal(t, "a b", args)
	assert.False(t, e.Exec("missing"))
	assert.Equal(t, 0, e.CmdArgc())
}

func TestEngine_Clock(t *testing.T) {
	e := NewEngine(1, zap.NewNop())
	e.Advance(1500 * time.Millisecond)
	assert.InDelta(t, 1.5, e.Time(), 1e-9)
}

func TestGame_ConnectAndDamage(t *testing.T) {
	e := NewEngine(2, zap.NewNop())
	g := NewGame(e)

	ed, ok, _ := g.Connect("alice", "127.0.0.1")
	require.True(t, ok)
	p, ok := g.BasePlayer(ed)
	require.True(t, ok)
	p.Spawn()

	applied, dmg := g.Damage(p, nil, nil, 30, 0)
	assert.True(t, applied)
	assert.Equal(t, float32(30), dmg)
	assert.Equal(t, float32(70), g.Health(ed))
}

func TestGame_OptionalHooks(t *testing.T) {
	g := NewGame(NewEngine(1, zap.NewNop()))
	assert.Nil(t, g.Hooks().CStrike())
	assert.Nil(t, g.PlayerHooks().GiveShield())

	g = NewGame(NewEngine(1, zap.NewNop()), WithCStrike(), WithShields())
	assert.NotNil(t, g.Hooks().CStrike())
	assert.NotNil(t, g.PlayerHooks().DropShield())
}
