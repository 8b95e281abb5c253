package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/host/sim"
	"github.com/lunahost/luna/internal/value"
)

func newWorld(t *testing.T) (*sim.Engine, *sim.Game, *Registry) {
	t.Helper()
	e := sim.NewEngine(4, zap.NewNop())
	return e, sim.NewGame(e), NewRegistry(zap.NewNop())
}

func TestGet_StaleSerialIsPruned(t *testing.T) {
	_, g, reg := newWorld(t)
	ed, ok, _ := g.Connect("bob", "10.0.0.1")
	require.True(t, ok)
	p, ok := g.BasePlayer(ed)
	require.True(t, ok)

	ref := reg.Create(p)
	got, ok := Get[host.Player](reg, ref)
	require.True(t, ok)
	assert.Same(t, p, got)

	// Recycle the slot: entity stays "valid" but the serial moved on.
	g.Disconnect(ed)
	_, ok, _ = g.Connect("carol", "10.0.0.2")
	require.True(t, ok)
	require.True(t, p.IsValid())

	_, ok = Get[host.Player](reg, ref)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len(), "stale entry must be erased")
}

func TestGet_WrongTypeIsNotFound(t *testing.T) {
	_, g, reg := newWorld(t)
	ed, _, _ := g.Connect("dave", "10.0.0.3")
	p, _ := g.BasePlayer(ed)

	item, ok := p.GiveNamedItem("weapon_knife")
	require.True(t, ok)
	ref := reg.Create(item)

	_, ok = Get[host.Player](reg, ref)
	assert.False(t, ok)
	_, ok = Get[host.Entity](reg, ref)
	assert.True(t, ok)
}

func TestGet_PrunesUnrelatedEntries(t *testing.T) {
	e, g, reg := newWorld(t)
	ed, _, _ := g.Connect("erin", "1.1.1.1")
	p, _ := g.BasePlayer(ed)
	first, _ := p.GiveNamedItem("weapon_usp")
	second, _ := p.GiveNamedItem("weapon_ak47")
	reg.Create(first)
	keep := reg.Create(second)
	require.Equal(t, 2, reg.Len())

	e.FreeEdict(first.Edict().(*sim.Edict))
	_, ok := Get[host.Entity](reg, keep)
	assert.True(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestEdict_StableUntilRecycled(t *testing.T) {
	e, _, reg := newWorld(t)
	ed := e.AllocEdict()

	r1 := reg.Edict(ed)
	r2 := reg.Edict(ed)
	assert.Equal(t, r1, r2)

	got, ok := reg.ResolveEdict(r1)
	require.True(t, ok)
	assert.Same(t, ed, got)

	e.FreeEdict(ed)
	_, ok = reg.ResolveEdict(r1)
	assert.False(t, ok)

	again := e.AllocEdict()
	r3 := reg.Edict(again)
	assert.NotEqual(t, r1, r3)
}

func TestResolveEdict_WrongKind(t *testing.T) {
	e, _, reg := newWorld(t)
	r := reg.Edict(e.AllocEdict())
	r.Kind = value.RefEntity
	_, ok := reg.ResolveEdict(r)
	assert.False(t, ok)
}

func TestSweeper_DropsRecycledEdicts(t *testing.T) {
	e, _, reg := newWorld(t)
	ed := e.AllocEdict()
	reg.Edict(ed)
	require.Equal(t, 1, reg.EdictLen())

	e.FreeEdict(ed)
	NewSweeper(reg).Update(0)
	assert.Equal(t, 0, reg.EdictLen())
}
