package sim

import (
	"strings"

	"github.com/lunahost/luna/internal/host"
)

const defaultHealth = 100

// Option configures a Game.
type Option func(*Game)

// WithCStrike enables the round hooks of the ruleset module.
func WithCStrike() Option {
	return func(g *Game) {
		g.cstrike = &cstrikeHooks{
			roundEnd:  NewChain(func(host.RoundEndArgs) bool { return true }),
			freezeEnd: NewChain(func(host.FreezeEndArgs) host.Void { g.Frozen = false; return host.Void{} }),
		}
	}
}

// WithShields enables the GiveShield and DropShield player hooks.
func WithShields() Option {
	return func(g *Game) {
		g.giveShield = NewChain(func(a host.GiveShieldArgs) host.Void {
			if p, ok := a.Player.(*Player); ok {
				p.state().shield = true
			}
			return host.Void{}
		})
		g.dropShield = NewChain(func(a host.DropShieldArgs) host.Void {
			if p, ok := a.Player.(*Player); ok {
				p.state().shield = false
			}
			return host.Void{}
		})
	}
}

// Game implements host.Game on top of an Engine.
type Game struct {
	engine *Engine

	connect     *Chain[host.ClientConnectArgs, bool]
	cmd         *Chain[host.ClientCmdArgs, host.Void]
	infoChanged *Chain[host.ClientInfoChangedArgs, host.Void]
	cstrike     *cstrikeHooks

	spawn       *Chain[host.PlayerSpawnArgs, host.Void]
	takeDamage  *Chain[host.TakeDamageArgs, bool]
	traceAttack *Chain[host.TraceAttackArgs, host.Void]
	killed      *Chain[host.KilledArgs, host.Void]
	giveShield  *Chain[host.GiveShieldArgs, host.Void]
	dropShield  *Chain[host.DropShieldArgs, host.Void]

	players map[int]*playerState

	// Frozen is cleared when the freeze-end chain reaches the original.
	Frozen bool
	// Commands records client commands that reached the original handler.
	Commands []int
}

type playerState struct {
	name    string
	info    host.InfoBuffer
	health  float32
	spawns  int
	shield  bool
	items   []string
	lastGib int32
}

func NewGame(e *Engine, opts ...Option) *Game {
	g := &Game{engine: e, players: make(map[int]*playerState), Frozen: true}
	g.connect = NewChain(func(a host.ClientConnectArgs) bool { return true })
	g.cmd = NewChain(func(a host.ClientCmdArgs) host.Void {
		g.Commands = append(g.Commands, a.Edict.Index())
		return host.Void{}
	})
	g.infoChanged = NewChain(func(a host.ClientInfoChangedArgs) host.Void {
		if ps := g.players[a.Edict.Index()]; ps != nil {
			ps.info = a.Info
			if name := e.InfoKeyValue(a.Info, "name"); name != "" {
				ps.name = name
			}
		}
		return host.Void{}
	})
	g.spawn = NewChain(func(a host.PlayerSpawnArgs) host.Void {
		if p, ok := a.Player.(*Player); ok {
			ps := p.state()
			ps.health = defaultHealth
			ps.spawns++
			p.edict.SetDeadFlag(0)
		}
		return host.Void{}
	})
	g.takeDamage = NewChain(func(a host.TakeDamageArgs) bool {
		p, ok := a.Player.(*Player)
		if !ok || a.Damage == nil {
			return false
		}
		p.state().health -= *a.Damage
		return true
	})
	g.traceAttack = NewChain(func(a host.TraceAttackArgs) host.Void {
		dmg := a.Damage
		g.takeDamage.Call(host.TakeDamageArgs{Player: a.Player, Attacker: a.Attacker, Damage: &dmg, DmgType: a.DmgType})
		return host.Void{}
	})
	g.killed = NewChain(func(a host.KilledArgs) host.Void {
		if p, ok := a.Player.(*Player); ok {
			p.edict.SetDeadFlag(2)
			p.state().lastGib = a.Gib
		}
		return host.Void{}
	})
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Game) Hooks() host.GameHooks         { return gameHooks{g} }
func (g *Game) PlayerHooks() host.PlayerHooks { return playerHooks{g} }

// BasePlayer returns a new wrapper for the player bound to e.
func (g *Game) BasePlayer(e host.Edict) (host.Player, bool) {
	ed, ok := e.(*Edict)
	if !ok || ed == nil || !ed.inUse {
		return nil, false
	}
	if _, ok := g.players[ed.index]; !ok {
		return nil, false
	}
	return &Player{Entity: Entity{edict: ed}, game: g}, true
}

// Connect runs a client connection through the hook chain. On rejection
// the slot is freed and the reason is returned.
func (g *Game) Connect(name, ip string) (*Edict, bool, string) {
	ed := g.engine.allocClient()
	if ed == nil {
		return nil, false, "server is full"
	}
	g.players[ed.index] = &playerState{name: name}
	reason := ""
	ok := g.connect.Call(host.ClientConnectArgs{Edict: ed, Name: name, IP: ip, Reason: &reason})
	if !ok {
		g.Disconnect(ed)
		return nil, false, reason
	}
	return ed, true, ""
}

// Disconnect frees a player slot.
func (g *Game) Disconnect(ed *Edict) {
	delete(g.players, ed.index)
	g.engine.FreeEdict(ed)
}

func (g *Game) ClientCommand(ed *Edict) {
	g.cmd.Call(host.ClientCmdArgs{Edict: ed})
}

func (g *Game) SetInfo(ed *Edict, info host.InfoBuffer) {
	g.infoChanged.Call(host.ClientInfoChangedArgs{Edict: ed, Info: info})
}

// PlayerName is the name recorded for the player at ed.
func (g *Game) PlayerName(ed *Edict) string {
	if ps := g.players[ed.index]; ps != nil {
		return ps.name
	}
	return ""
}

// EndRound fires the round-end chain. It is a no-op without WithCStrike.
func (g *Game) EndRound(status, event int32, delay float32) bool {
	if g.cstrike == nil {
		return false
	}
	return g.cstrike.roundEnd.Call(host.RoundEndArgs{Status: status, Event: event, Delay: delay})
}

func (g *Game) EndFreeze() {
	if g.cstrike != nil {
		g.cstrike.freezeEnd.Call(host.FreezeEndArgs{})
	}
}

// Damage applies damage through the take-damage chain and returns the
// chain result and the damage the game finally applied.
func (g *Game) Damage(p host.Player, inflictor, attacker host.Entity, dmg float32, dmgType int32) (bool, float32) {
	ok := g.takeDamage.Call(host.TakeDamageArgs{Player: p, Inflictor: inflictor, Attacker: attacker, Damage: &dmg, DmgType: dmgType})
	return ok, dmg
}

func (g *Game) TraceAttack(p host.Player, attacker host.Entity, dmg float32, dir host.Vector, tr host.TraceResult, dmgType int32) {
	g.traceAttack.Call(host.TraceAttackArgs{Player: p, Attacker: attacker, Damage: dmg, Dir: &dir, Trace: tr, DmgType: dmgType})
}

func (g *Game) Kill(p host.Player, attacker host.Entity, gib int32) {
	g.killed.Call(host.KilledArgs{Player: p, Attacker: attacker, Gib: gib})
}

func (g *Game) GiveShield(p host.Player, deploy bool) {
	if g.giveShield != nil {
		g.giveShield.Call(host.GiveShieldArgs{Player: p, Deploy: deploy})
	}
}

func (g *Game) DropShield(p host.Player, deploy bool) {
	if g.dropShield != nil {
		g.dropShield.Call(host.DropShieldArgs{Player: p, Deploy: deploy})
	}
}

// Health returns the current health of the player at ed.
func (g *Game) Health(ed *Edict) float32 {
	if ps := g.players[ed.index]; ps != nil {
		return ps.health
	}
	return 0
}

type gameHooks struct{ g *Game }

func (h gameHooks) ClientConnect() host.Chain[host.ClientConnectArgs, bool] { return h.g.connect }
func (h gameHooks) ClientCmd() host.Chain[host.ClientCmdArgs, host.Void]    { return h.g.cmd }
func (h gameHooks) ClientInfoChanged() host.Chain[host.ClientInfoChangedArgs, host.Void] {
	return h.g.infoChanged
}

func (h gameHooks) CStrike() host.CStrikeHooks {
	if h.g.cstrike == nil {
		return nil
	}
	return h.g.cstrike
}

type cstrikeHooks struct {
	roundEnd  *Chain[host.RoundEndArgs, bool]
	freezeEnd *Chain[host.FreezeEndArgs, host.Void]
}

func (c *cstrikeHooks) RoundEnd() host.Chain[host.RoundEndArgs, bool]        { return c.roundEnd }
func (c *cstrikeHooks) FreezeEnd() host.Chain[host.FreezeEndArgs, host.Void] { return c.freezeEnd }

type playerHooks struct{ g *Game }

func (h playerHooks) Spawn() host.Chain[host.PlayerSpawnArgs, host.Void]       { return h.g.spawn }
func (h playerHooks) TakeDamage() host.Chain[host.TakeDamageArgs, bool]        { return h.g.takeDamage }
func (h playerHooks) TraceAttack() host.Chain[host.TraceAttackArgs, host.Void] { return h.g.traceAttack }
func (h playerHooks) Killed() host.Chain[host.KilledArgs, host.Void]           { return h.g.killed }

func (h playerHooks) GiveShield() host.Chain[host.GiveShieldArgs, host.Void] {
	if h.g.giveShield == nil {
		return nil
	}
	return h.g.giveShield
}

func (h playerHooks) DropShield() host.Chain[host.DropShieldArgs, host.Void] {
	if h.g.dropShield == nil {
		return nil
	}
	return h.g.dropShield
}

// Entity implements host.Entity. It stays valid while its slot is in use,
// even if the slot has been recycled for another object.
type Entity struct {
	edict *Edict
	Class string
}

func (e *Entity) Edict() host.Edict { return e.edict }
func (e *Entity) IsValid() bool     { return e.edict != nil && e.edict.inUse }

// Player implements host.Player.
type Player struct {
	Entity
	game *Game
}

func (p *Player) state() *playerState {
	ps := p.game.players[p.edict.index]
	if ps == nil {
		ps = &playerState{}
		p.game.players[p.edict.index] = ps
	}
	return ps
}

func (p *Player) Spawn() {
	p.game.spawn.Call(host.PlayerSpawnArgs{Player: p})
}

func (p *Player) GiveNamedItem(name string) (host.Entity, bool) {
	if !strings.HasPrefix(name, "weapon_") && !strings.HasPrefix(name, "item_") {
		return nil, false
	}
	ps := p.state()
	ps.items = append(ps.items, name)
	ed := p.game.engine.AllocEdict()
	ed.SetEdictProp(PropOwner, p.edict)
	return &Entity{edict: ed, Class: name}, true
}

// Items lists what GiveNamedItem handed to the player.
func (p *Player) Items() []string { return p.state().items }

// HasShield reports the shield state set by the shield hooks.
func (p *Player) HasShield() bool { return p.state().shield }

// Spawns counts how often the spawn chain reached the original.
func (p *Player) Spawns() int { return p.state().spawns }

// PropOwner is the edict property holding an item's owner.
const PropOwner host.Property = 1
