package natives

import (
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/value"
)

// onEdict builds a native whose first argument is an edict handle. A stale
// or missing edict makes the native return nil.
func onEdict(name string, rest []value.Kind, results int, fn func(c *Call, ed host.Edict) []value.Value) Native {
	return Native{
		Name:    name,
		Params:  append([]value.Kind{kRef}, rest...),
		Results: results,
		Fn: func(c *Call) []value.Value {
			ed, ok := c.edict(0)
			if !ok {
				return nil
			}
			return fn(c, ed)
		},
	}
}

func prop(c *Call) host.Property { return host.Property(c.Arg(1).Int()) }

func (e *Env) edictNatives() []Native {
	n := []Native{
		onEdict("setFloatProperty", params(kInt, kNum), 0, func(c *Call, ed host.Edict) []value.Value {
			ed.SetFloat(prop(c), float32(c.Arg(2).Number()))
			return nil
		}),
		onEdict("getFloatProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			return number(float64(ed.Float(prop(c))))
		}),
		onEdict("setIntProperty", params(kInt, kInt), 0, func(c *Call, ed host.Edict) []value.Value {
			ed.SetInt(prop(c), int32(c.Arg(2).Int()))
			return nil
		}),
		onEdict("getIntProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			return integer(int64(ed.Int(prop(c))))
		}),
		onEdict("setVecProperty", params(kInt, kNum, kNum, kNum), 0, func(c *Call, ed host.Edict) []value.Value {
			ed.SetVec(prop(c), host.Vector{
				float32(c.Arg(2).Number()),
				float32(c.Arg(3).Number()),
				float32(c.Arg(4).Number()),
			})
			return nil
		}),
		onEdict("getVecProperty", params(kInt), 3, func(c *Call, ed host.Edict) []value.Value {
			v := ed.Vec(prop(c))
			return []value.Value{
				value.FromNumber(float64(v[0])),
				value.FromNumber(float64(v[1])),
				value.FromNumber(float64(v[2])),
			}
		}),
		onEdict("setStrProperty", params(kInt, kStr), 0, func(c *Call, ed host.Edict) []value.Value {
			off := c.deps.Engine.AllocString(c.deps.Charset.ToEngine(c.Arg(2).String()))
			ed.SetStr(prop(c), off)
			return nil
		}),
		onEdict("getStrProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			return str(c.deps.Charset.FromEngine(c.deps.Engine.String(ed.Str(prop(c)))))
		}),
		onEdict("setShortProperty", params(kInt, kInt), 0, func(c *Call, ed host.Edict) []value.Value {
			ed.SetShort(prop(c), int16(c.Arg(2).Int()))
			return nil
		}),
		onEdict("getShortProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			return integer(int64(ed.Short(prop(c))))
		}),
		onEdict("setUShortProperty", params(kInt, kInt), 0, func(c *Call, ed host.Edict) []value.Value {
			ed.SetUShort(prop(c), uint16(c.Arg(2).Int()))
			return nil
		}),
		onEdict("getUShortProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			return integer(int64(ed.UShort(prop(c))))
		}),
		onEdict("setByteProperty", params(kInt, kInt), 0, func(c *Call, ed host.Edict) []value.Value {
			ed.SetByte(prop(c), uint8(c.Arg(2).Int()))
			return nil
		}),
		onEdict("getByteProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			return integer(int64(ed.Byte(prop(c))))
		}),
		onEdict("setEdictProperty", params(kInt, kRef), 0, func(c *Call, ed host.Edict) []value.Value {
			other, _ := c.edict(2)
			ed.SetEdictProp(prop(c), other)
			return nil
		}),
		onEdict("getEdictProperty", params(kInt), 1, func(c *Call, ed host.Edict) []value.Value {
			other := ed.EdictProp(prop(c))
			if other == nil {
				return nil
			}
			return ref(c.deps.Entities.Edict(other))
		}),
		onEdict("getEdictIndex", nil, 1, func(c *Call, ed host.Edict) []value.Value {
			return integer(int64(ed.Index()))
		}),
		onEdict("getController", nil, 4, func(c *Call, ed host.Edict) []value.Value {
			b := ed.Controller()
			return bytesOut(b[:])
		}),
		onEdict("setController", params(kInt, kInt, kInt, kInt), 0, func(c *Call, ed host.Edict) []value.Value {
			var b [4]uint8
			bytesIn(c, b[:])
			ed.SetController(b)
			return nil
		}),
		onEdict("getBlending", nil, 2, func(c *Call, ed host.Edict) []value.Value {
			b := ed.Blending()
			return bytesOut(b[:])
		}),
		onEdict("setBlending", params(kInt, kInt), 0, func(c *Call, ed host.Edict) []value.Value {
			var b [2]uint8
			bytesIn(c, b[:])
			ed.SetBlending(b)
			return nil
		}),
	}

	fields := []struct {
		name string
		get  func(host.Edict) int32
		set  func(host.Edict, int32)
	}{
		{"FixAngle", host.Edict.FixAngle, host.Edict.SetFixAngle},
		{"ModelIndex", host.Edict.ModelIndex, host.Edict.SetModelIndex},
		{"SolidType", host.Edict.SolidType, host.Edict.SetSolidType},
		{"Effects", host.Edict.Effects, host.Edict.SetEffects},
		{"RenderMode", host.Edict.RenderMode, host.Edict.SetRenderMode},
		{"DeadFlag", host.Edict.DeadFlag, host.Edict.SetDeadFlag},
		{"SpawnFlag", host.Edict.SpawnFlag, host.Edict.SetSpawnFlag},
	}
	for _, f := range fields {
		get, set := f.get, f.set
		n = append(n,
			onEdict("get"+f.name, nil, 1, func(c *Call, ed host.Edict) []value.Value {
				return integer(int64(get(ed)))
			}),
			onEdict("set"+f.name, params(kInt), 0, func(c *Call, ed host.Edict) []value.Value {
				set(ed, int32(c.Arg(1).Int()))
				return nil
			}),
		)
	}
	return n
}

func bytesOut(b []uint8) []value.Value {
	out := make([]value.Value, len(b))
	for i, x := range b {
		out[i] = value.FromInt(int64(x))
	}
	return out
}

// bytesIn fills b from the arguments following the edict.
func bytesIn(c *Call, b []uint8) {
	for i := range b {
		b[i] = uint8(c.Arg(i + 1).Int())
	}
}
