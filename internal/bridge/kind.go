package bridge

import (
	"fmt"

	"github.com/lunahost/luna/internal/value"
)

// Kind identifies a hookable event. Game hooks and player-class hooks are
// numbered separately for scripts; playerBase keeps them apart here.
type Kind int

const (
	ClientConnect Kind = iota
	ClientCmd
	ClientInfoChanged
	RoundEnd
	FreezeEnd
)

const playerBase Kind = 0x100

const (
	PlayerSpawn Kind = playerBase + iota
	PlayerTakeDamage
	PlayerTraceAttack
	PlayerKilled
	PlayerGiveShield
	PlayerDropShield
)

// GameKind maps the number scripts pass to gameFnHook.
func GameKind(n int64) (Kind, bool) {
	k := Kind(n)
	if n < 0 || k > FreezeEnd {
		return 0, false
	}
	return k, true
}

// PlayerKind maps the number scripts pass to playerClassFnHook.
func PlayerKind(n int64) (Kind, bool) {
	if n < 0 || n > int64(PlayerDropShield-playerBase) {
		return 0, false
	}
	return playerBase + Kind(n), true
}

func (k Kind) String() string {
	switch k {
	case ClientConnect:
		return "ClientConnect"
	case ClientCmd:
		return "ClientCmd"
	case ClientInfoChanged:
		return "ClientInfoChanged"
	case RoundEnd:
		return "RoundEnd"
	case FreezeEnd:
		return "FreezeEnd"
	case PlayerSpawn:
		return "Spawn"
	case PlayerTakeDamage:
		return "TakeDamage"
	case PlayerTraceAttack:
		return "TraceAttack"
	case PlayerKilled:
		return "Killed"
	case PlayerGiveShield:
		return "GiveShield"
	case PlayerDropShield:
		return "DropShield"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Param is one script-visible hook argument.
type Param struct {
	Name string
	Kind value.Kind
	// Ref is the handle kind expected when Kind is value.KindRef.
	Ref value.RefKind
}

// Signature describes the arguments a handler receives after the hook
// ref, in order, and what it must return.
type Signature struct {
	Params []Param
	Result value.Kind
}

func ref(name string, k value.RefKind) Param { return Param{Name: name, Kind: value.KindRef, Ref: k} }
func num(name string) Param                  { return Param{Name: name, Kind: value.KindNumber} }
func integer(name string) Param              { return Param{Name: name, Kind: value.KindInt} }
func str(name string) Param                  { return Param{Name: name, Kind: value.KindString} }
func boolean(name string) Param              { return Param{Name: name, Kind: value.KindBool} }

var signatures = map[Kind]Signature{
	ClientConnect: {
		Params: []Param{ref("edict", value.RefEdict), str("name"), str("ip"), str("reason")},
		Result: value.KindBool,
	},
	ClientCmd: {
		Params: []Param{ref("edict", value.RefEdict)},
	},
	ClientInfoChanged: {
		Params: []Param{ref("edict", value.RefEdict), ref("info", value.RefInfoBuffer)},
	},
	RoundEnd: {
		Params: []Param{integer("status"), integer("event"), num("delay")},
		Result: value.KindBool,
	},
	FreezeEnd: {},
	PlayerSpawn: {
		Params: []Param{ref("player", value.RefHookEntity)},
	},
	PlayerTakeDamage: {
		Params: []Param{
			ref("player", value.RefHookEntity), ref("inflictor", value.RefHookEntity),
			ref("attacker", value.RefHookEntity), num("damage"), integer("dmgType"),
		},
		Result: value.KindBool,
	},
	PlayerTraceAttack: {
		Params: []Param{
			ref("player", value.RefHookEntity), ref("attacker", value.RefHookEntity), num("damage"),
			ref("dir", value.RefVector), ref("trace", value.RefTrace), integer("dmgType"),
		},
	},
	PlayerKilled: {
		Params: []Param{ref("player", value.RefHookEntity), ref("attacker", value.RefHookEntity), integer("gib")},
	},
	PlayerGiveShield: {
		Params: []Param{ref("player", value.RefHookEntity), boolean("deploy")},
	},
	PlayerDropShield: {
		Params: []Param{ref("player", value.RefHookEntity), boolean("deploy")},
	},
}

// SignatureOf returns the descriptor for k.
func SignatureOf(k Kind) (Signature, bool) {
	s, ok := signatures[k]
	return s, ok
}

// zeroResult is what a continuation returns when its frame is gone.
func (s Signature) zeroResult() []value.Value {
	if s.Result == value.KindBool {
		return []value.Value{value.FromBool(false)}
	}
	return nil
}

// conform pads or truncates args to the signature and drops values of the
// wrong kind, so decoders fall back to the original argument.
func (s Signature) conform(args []value.Value) []value.Value {
	out := make([]value.Value, len(s.Params))
	for i, p := range s.Params {
		if i >= len(args) {
			break
		}
		a := args[i]
		switch p.Kind {
		case value.KindRef:
			if _, ok := a.Ref(p.Ref); ok {
				out[i] = a
			}
		case value.KindNumber, value.KindInt:
			if a.Kind() == value.KindNumber || a.Kind() == value.KindInt {
				out[i] = a
			}
		default:
			if a.Kind() == p.Kind {
				out[i] = a
			}
		}
	}
	return out
}
