package value

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/lunahost/luna/internal/core/handle"
)

const refTypeName = "luna_ref"

// Open registers the metatable used for handles in L.
func Open(L *lua.LState) {
	mt := L.NewTypeMetatable(refTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(refToString))
	L.SetField(mt, "__eq", L.NewFunction(refEqual))
	L.SetField(mt, "__metatable", lua.LString("locked"))
}

func refToString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if r, ok := ud.Value.(Ref); ok {
		L.Push(lua.LString(r.String()))
		return 1
	}
	L.Push(lua.LString("ref:?"))
	return 1
}

func refEqual(L *lua.LState) int {
	a, aok := L.CheckUserData(1).Value.(Ref)
	b, bok := L.CheckUserData(2).Value.(Ref)
	L.Push(lua.LBool(aok && bok && a == b))
	return 1
}

// ToLua converts v into a Lua value owned by L.
func ToLua(L *lua.LState, v Value) lua.LValue {
	switch v.kind {
	case KindBool:
		return lua.LBool(v.b)
	case KindInt:
		return lua.LNumber(v.i)
	case KindNumber:
		return lua.LNumber(v.n)
	case KindString:
		return lua.LString(v.s)
	case KindRef:
		ud := L.NewUserData()
		ud.Value = v.ref
		L.SetMetatable(ud, L.GetTypeMetatable(refTypeName))
		return ud
	default:
		return lua.LNil
	}
}

// FromLua converts a Lua value. Integral numbers become KindInt; tables,
// functions and foreign userdata become none.
func FromLua(lv lua.LValue) Value {
	switch x := lv.(type) {
	case lua.LBool:
		return FromBool(bool(x))
	case lua.LNumber:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return FromInt(int64(f))
		}
		return FromNumber(f)
	case lua.LString:
		return FromString(string(x))
	case *lua.LUserData:
		if r, ok := x.Value.(Ref); ok {
			return FromRef(r)
		}
	}
	return Nil()
}

// Coerce converts lv into the expected kind. It returns false when lv
// cannot represent k; none is accepted for every kind.
func Coerce(lv lua.LValue, k Kind) (Value, bool) {
	if lv == lua.LNil {
		return Nil(), true
	}
	v := FromLua(lv)
	switch k {
	case KindNone:
		return v, true
	case KindBool:
		if lv.Type() == lua.LTBool {
			return v, true
		}
	case KindInt:
		if n, ok := lv.(lua.LNumber); ok {
			return FromInt(int64(n)), true
		}
	case KindNumber:
		if n, ok := lv.(lua.LNumber); ok {
			return FromNumber(float64(n)), true
		}
	case KindString:
		switch x := lv.(type) {
		case lua.LString:
			return v, true
		case lua.LNumber:
			return FromString(x.String()), true
		}
	case KindRef:
		if v.kind == KindRef {
			return v, true
		}
	}
	return Nil(), false
}

// RefOf is shorthand for building a handle value.
func RefOf(k RefKind, id handle.ID) Value {
	return FromRef(Ref{Kind: k, ID: id})
}
