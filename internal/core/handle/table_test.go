package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ZeroIDNeverAlive(t *testing.T) {
	p := NewPool()
	id := p.Create()
	assert.False(t, id.IsZero())
	assert.True(t, p.Alive(id))
	assert.False(t, p.Alive(0))
}

func TestPool_DestroyBumpsGeneration(t *testing.T) {
	p := NewPool()
	a := p.Create()
	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "double destroy is a no-op")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index(), "slot is reused")
	assert.Equal(t, a.Generation()+1, b.Generation())
	assert.True(t, p.Alive(b))
}

func TestTable_InsertGetRemove(t *testing.T) {
	tbl := NewTable[string]()
	id := tbl.Insert("edict")

	v, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, "edict", v)
	assert.Equal(t, 1, tbl.Len())

	v, ok = tbl.Remove(id)
	require.True(t, ok)
	assert.Equal(t, "edict", v)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Get(id)
	assert.False(t, ok)
}

func TestTable_StaleIDAfterReuse(t *testing.T) {
	tbl := NewTable[int]()
	old := tbl.Insert(1)
	tbl.Remove(old)
	fresh := tbl.Insert(2)

	_, ok := tbl.Get(old)
	assert.False(t, ok)
	v, ok := tbl.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTable_RemoveDuringEach(t *testing.T) {
	tbl := NewTable[int]()
	ids := make([]ID, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, tbl.Insert(i))
	}

	var seen []int
	tbl.Each(func(id ID, v int) bool {
		seen = append(seen, v)
		if v%2 == 0 {
			tbl.Remove(id)
		}
		if v == 1 {
			tbl.Remove(ids[3]) // remove an entry not yet visited
		}
		return true
	})

	assert.Equal(t, []int{0, 1, 2, 4}, seen)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_Clear(t *testing.T) {
	tbl := NewTable[int]()
	a := tbl.Insert(1)
	tbl.Insert(2)
	tbl.Clear()

	assert.Equal(t, 0, tbl.Len())
	assert.False(t, tbl.Contains(a))
}
