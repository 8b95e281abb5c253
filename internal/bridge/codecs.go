package bridge

import (
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/value"
)

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Nil()
}

var connectCodec = codec[host.ClientConnectArgs, bool]{
	encode: func(f *frame, a host.ClientConnectArgs) []value.Value {
		reason := ""
		if a.Reason != nil {
			reason = *a.Reason
		}
		return []value.Value{f.edict(a.Edict), value.FromString(a.Name), value.FromString(a.IP), value.FromString(reason)}
	},
	decode: func(f *frame, args []value.Value, a host.ClientConnectArgs) host.ClientConnectArgs {
		a.Edict = f.decodeEdict(arg(args, 0), a.Edict)
		a.Name = decodeString(arg(args, 1), a.Name)
		a.IP = decodeString(arg(args, 2), a.IP)
		// The reason is written through so the game sees it even when a
		// later callback rejects the client.
		if a.Reason != nil {
			*a.Reason = decodeString(arg(args, 3), *a.Reason)
		}
		return a
	},
	result: boolResult,
	parse:  parseBool,
}

var cmdCodec = codec[host.ClientCmdArgs, host.Void]{
	encode: func(f *frame, a host.ClientCmdArgs) []value.Value {
		return []value.Value{f.edict(a.Edict)}
	},
	decode: func(f *frame, args []value.Value, a host.ClientCmdArgs) host.ClientCmdArgs {
		a.Edict = f.decodeEdict(arg(args, 0), a.Edict)
		return a
	},
	result: voidResult,
}

var infoCodec = codec[host.ClientInfoChangedArgs, host.Void]{
	encode: func(f *frame, a host.ClientInfoChangedArgs) []value.Value {
		return []value.Value{f.edict(a.Edict), f.keep(value.RefInfoBuffer, a.Info)}
	},
	decode: func(f *frame, args []value.Value, a host.ClientInfoChangedArgs) host.ClientInfoChangedArgs {
		a.Edict = f.decodeEdict(arg(args, 0), a.Edict)
		if r, ok := arg(args, 1).Ref(value.RefInfoBuffer); ok {
			if buf, ok := f.b.InfoBuffer(r); ok {
				a.Info = buf
			}
		}
		return a
	},
	result: voidResult,
}

var roundEndCodec = codec[host.RoundEndArgs, bool]{
	encode: func(_ *frame, a host.RoundEndArgs) []value.Value {
		return []value.Value{value.FromInt(int64(a.Status)), value.FromInt(int64(a.Event)), value.FromNumber(float64(a.Delay))}
	},
	decode: func(_ *frame, args []value.Value, a host.RoundEndArgs) host.RoundEndArgs {
		a.Status = decodeInt(arg(args, 0), a.Status)
		a.Event = decodeInt(arg(args, 1), a.Event)
		a.Delay = decodeFloat(arg(args, 2), a.Delay)
		return a
	},
	result: boolResult,
	parse:  parseBool,
}

var freezeEndCodec = codec[host.FreezeEndArgs, host.Void]{
	encode: func(*frame, host.FreezeEndArgs) []value.Value { return nil },
	decode: func(_ *frame, _ []value.Value, a host.FreezeEndArgs) host.FreezeEndArgs { return a },
	result: voidResult,
}

var spawnCodec = codec[host.PlayerSpawnArgs, host.Void]{
	encode: func(f *frame, a host.PlayerSpawnArgs) []value.Value {
		return []value.Value{f.player(a.Player)}
	},
	decode: func(f *frame, args []value.Value, a host.PlayerSpawnArgs) host.PlayerSpawnArgs {
		a.Player = f.decodePlayer(arg(args, 0), a.Player)
		return a
	},
	result: voidResult,
}

var takeDamageCodec = codec[host.TakeDamageArgs, bool]{
	encode: func(f *frame, a host.TakeDamageArgs) []value.Value {
		var dmg float32
		if a.Damage != nil {
			dmg = *a.Damage
		}
		return []value.Value{
			f.player(a.Player), f.entity(a.Inflictor), f.entity(a.Attacker),
			value.FromNumber(float64(dmg)), value.FromInt(int64(a.DmgType)),
		}
	},
	decode: func(f *frame, args []value.Value, a host.TakeDamageArgs) host.TakeDamageArgs {
		a.Player = f.decodePlayer(arg(args, 0), a.Player)
		a.Inflictor = f.decodeEntity(arg(args, 1), a.Inflictor)
		a.Attacker = f.decodeEntity(arg(args, 2), a.Attacker)
		// Damage is the game's own variable; the new amount must be
		// visible to the game after the chain unwinds.
		if a.Damage != nil {
			*a.Damage = decodeFloat(arg(args, 3), *a.Damage)
		}
		a.DmgType = decodeInt(arg(args, 4), a.DmgType)
		return a
	},
	result: boolResult,
	parse:  parseBool,
}

var traceAttackCodec = codec[host.TraceAttackArgs, host.Void]{
	encode: func(f *frame, a host.TraceAttackArgs) []value.Value {
		dir := value.Nil()
		if a.Dir != nil {
			dir = f.keep(value.RefVector, a.Dir)
		}
		tr := value.Nil()
		if a.Trace != nil {
			tr = f.keep(value.RefTrace, a.Trace)
		}
		return []value.Value{
			f.player(a.Player), f.entity(a.Attacker), value.FromNumber(float64(a.Damage)),
			dir, tr, value.FromInt(int64(a.DmgType)),
		}
	},
	decode: func(f *frame, args []value.Value, a host.TraceAttackArgs) host.TraceAttackArgs {
		a.Player = f.decodePlayer(arg(args, 0), a.Player)
		a.Attacker = f.decodeEntity(arg(args, 1), a.Attacker)
		a.Damage = decodeFloat(arg(args, 2), a.Damage)
		if r, ok := arg(args, 3).Ref(value.RefVector); ok {
			if v, ok := f.b.Vector(r); ok {
				a.Dir = v
			}
		}
		if r, ok := arg(args, 4).Ref(value.RefTrace); ok {
			if tr, ok := f.b.Trace(r); ok {
				a.Trace = tr
			}
		}
		a.DmgType = decodeInt(arg(args, 5), a.DmgType)
		return a
	},
	result: voidResult,
}

var killedCodec = codec[host.KilledArgs, host.Void]{
	encode: func(f *frame, a host.KilledArgs) []value.Value {
		return []value.Value{f.player(a.Player), f.entity(a.Attacker), value.FromInt(int64(a.Gib))}
	},
	decode: func(f *frame, args []value.Value, a host.KilledArgs) host.KilledArgs {
		a.Player = f.decodePlayer(arg(args, 0), a.Player)
		a.Attacker = f.decodeEntity(arg(args, 1), a.Attacker)
		a.Gib = decodeInt(arg(args, 2), a.Gib)
		return a
	},
	result: voidResult,
}

var giveShieldCodec = codec[host.GiveShieldArgs, host.Void]{
	encode: func(f *frame, a host.GiveShieldArgs) []value.Value {
		return []value.Value{f.player(a.Player), value.FromBool(a.Deploy)}
	},
	decode: func(f *frame, args []value.Value, a host.GiveShieldArgs) host.GiveShieldArgs {
		a.Player = f.decodePlayer(arg(args, 0), a.Player)
		a.Deploy = decodeBool(arg(args, 1), a.Deploy)
		return a
	},
	result: voidResult,
}

var dropShieldCodec = codec[host.DropShieldArgs, host.Void]{
	encode: func(f *frame, a host.DropShieldArgs) []value.Value {
		return []value.Value{f.player(a.Player), value.FromBool(a.Deploy)}
	},
	decode: func(f *frame, args []value.Value, a host.DropShieldArgs) host.DropShieldArgs {
		a.Player = f.decodePlayer(arg(args, 0), a.Player)
		a.Deploy = decodeBool(arg(args, 1), a.Deploy)
		return a
	},
	result: voidResult,
}
