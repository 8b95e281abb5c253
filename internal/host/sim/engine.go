// Package sim is an in-memory host used by the luna binary when no real
// engine is attached, and by tests.
package sim

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/host"
)

// Engine implements host.Engine. Edict 0 is the world; 1..MaxClients are
// reserved for players.
type Engine struct {
	log        *zap.Logger
	maxClients int
	now        time.Duration

	printed []string
	client  []ClientMessage

	commands map[string]func()
	argv     []string

	pool   []string
	edicts []*Edict
}

// ClientMessage is a message recorded by ClientPrint.
type ClientMessage struct {
	Edict int
	Kind  host.PrintType
	Text  string
}

func NewEngine(maxClients int, log *zap.Logger) *Engine {
	if maxClients <= 0 {
		maxClients = 32
	}
	e := &Engine{
		log:        log,
		maxClients: maxClients,
		commands:   make(map[string]func()),
		pool:       []string{""},
		edicts:     make([]*Edict, 0, maxClients+64),
	}
	for i := 0; i <= maxClients; i++ {
		e.edicts = append(e.edicts, newEdict(e, i))
	}
	e.edicts[0].inUse = true
	return e
}

func (e *Engine) Print(msg string) {
	e.printed = append(e.printed, msg)
	e.log.Info(strings.TrimRight(msg, "\n"))
}

// Printed returns everything passed to Print.
func (e *Engine) Printed() []string { return e.printed }

// ClientMessages returns everything passed to ClientPrint.
func (e *Engine) ClientMessages() []ClientMessage { return e.client }

func (e *Engine) Time() float64 { return e.now.Seconds() }

// Advance moves the server clock forward.
func (e *Engine) Advance(dt time.Duration) { e.now += dt }

func (e *Engine) MaxClients() int { return e.maxClients }

func (e *Engine) CmdArgv(i int) string {
	if i < 0 || i >= len(e.argv) {
		return ""
	}
	return e.argv[i]
}

func (e *Engine) CmdArgc() int { return len(e.argv) }

func (e *Engine) CmdArgs() string {
	if len(e.argv) < 2 {
		return ""
	}
	return strings.Join(e.argv[1:], " ")
}

func (e *Engine) RegisterSrvCommand(name string, fn func()) {
	e.commands[strings.ToLower(name)] = fn
}

func (e *Engine) RemoveCmd(name string) {
	delete(e.commands, strings.ToLower(name))
}

// HasCommand reports whether a server command is registered.
func (e *Engine) HasCommand(name string) bool {
	_, ok := e.commands[strings.ToLower(name)]
	return ok
}

// Exec runs one server console line. It returns false for unknown commands.
func (e *Engine) Exec(line string) bool {
	argv := strings.Fields(line)
	if len(argv) == 0 {
		return false
	}
	fn, ok := e.commands[strings.ToLower(argv[0])]
	if !ok {
		e.log.Debug("unknown command", zap.String("cmd", argv[0]))
		return false
	}
	prev := e.argv
	e.argv = argv
	fn()
	e.argv = prev
	return true
}

func (e *Engine) InfoKeyValue(buf host.InfoBuffer, key string) string {
	parts := strings.Split(strings.TrimPrefix(string(buf), `\`), `\`)
	for i := 0; i+1 < len(parts); i += 2 {
		if parts[i] == key {
			return parts[i+1]
		}
	}
	return ""
}

func (e *Engine) ClientPrint(ed host.Edict, kind host.PrintType, msg string) {
	idx := -1
	if ed != nil {
		idx = ed.Index()
	}
	e.client = append(e.client, ClientMessage{Edict: idx, Kind: kind, Text: msg})
}

func (e *Engine) AllocString(s string) host.StringOffset {
	for i, x := range e.pool {
		if x == s {
			return host.StringOffset(i)
		}
	}
	e.pool = append(e.pool, s)
	return host.StringOffset(len(e.pool) - 1)
}

func (e *Engine) String(off host.StringOffset) string {
	if off < 0 || int(off) >= len(e.pool) {
		return ""
	}
	return e.pool[off]
}

// EdictAt returns the slot at idx, or nil.
func (e *Engine) EdictAt(idx int) *Edict {
	if idx < 0 || idx >= len(e.edicts) {
		return nil
	}
	return e.edicts[idx]
}

// AllocEdict claims the first free non-client slot.
func (e *Engine) AllocEdict() *Edict {
	for i := e.maxClients + 1; i < len(e.edicts); i++ {
		if !e.edicts[i].inUse {
			e.edicts[i].inUse = true
			return e.edicts[i]
		}
	}
	ed := newEdict(e, len(e.edicts))
	ed.inUse = true
	e.edicts = append(e.edicts, ed)
	return ed
}

// allocClient claims the first free player slot.
func (e *Engine) allocClient() *Edict {
	for i := 1; i <= e.maxClients; i++ {
		if !e.edicts[i].inUse {
			e.edicts[i].inUse = true
			return e.edicts[i]
		}
	}
	return nil
}

// FreeEdict releases a slot. The serial number changes so any handle that
// captured the old one goes stale.
func (e *Engine) FreeEdict(ed *Edict) {
	if ed == nil || ed.index == 0 || !ed.inUse {
		return
	}
	ed.reset()
	ed.serial++
}
