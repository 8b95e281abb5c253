package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/lunahost/luna/internal/core/handle"
)

func TestFromLua_Scalars(t *testing.T) {
	assert.Equal(t, KindNone, FromLua(lua.LNil).Kind())
	assert.True(t, FromLua(lua.LTrue).Bool())
	assert.Equal(t, int64(7), FromLua(lua.LNumber(7)).Int())
	assert.Equal(t, KindInt, FromLua(lua.LNumber(7)).Kind())
	assert.Equal(t, KindNumber, FromLua(lua.LNumber(0.5)).Kind())
	assert.Equal(t, "hi", FromLua(lua.LString("hi")).String())
}

func TestRef_RoundTripThroughLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	Open(L)

	r := Ref{Kind: RefEdict, ID: handle.NewID(3, 1)}
	lv := ToLua(L, FromRef(r))
	require.Equal(t, lua.LTUserData, lv.Type())

	got, ok := FromLua(lv).Ref(RefEdict)
	require.True(t, ok)
	assert.Equal(t, r, got)

	_, ok = FromLua(lv).Ref(RefEntity)
	assert.False(t, ok, "kind mismatch must not resolve")
}

func TestRef_EqualityInLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	Open(L)

	r := FromRef(Ref{Kind: RefTimer, ID: handle.NewID(0, 1)})
	L.SetGlobal("a", ToLua(L, r))
	L.SetGlobal("b", ToLua(L, r))
	require.NoError(t, L.DoString(`same = (a == b)`))
	assert.Equal(t, lua.LTrue, L.GetGlobal("same"))
}

func TestFromRef_ZeroIsNil(t *testing.T) {
	assert.True(t, FromRef(Ref{Kind: RefEdict}).IsNil())
	assert.True(t, FromRef(Ref{ID: handle.NewID(1, 1)}).IsNil())
}

func TestCoerce(t *testing.T) {
	v, ok := Coerce(lua.LNumber(2.9), KindInt)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Int())

	v, ok = Coerce(lua.LNumber(3), KindString)
	require.True(t, ok)
	assert.Equal(t, "3", v.String())

	_, ok = Coerce(lua.LString("x"), KindBool)
	assert.False(t, ok)

	v, ok = Coerce(lua.LNil, KindRef)
	require.True(t, ok)
	assert.True(t, v.IsNil())
}

func TestScalar(t *testing.T) {
	assert.True(t, Nil().Scalar())
	assert.True(t, FromString("x").Scalar())
	assert.False(t, FromRef(Ref{Kind: RefHook, ID: handle.NewID(0, 1)}).Scalar())
}
