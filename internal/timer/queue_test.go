package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/core/handle"
	"github.com/lunahost/luna/internal/host/sim"
	"github.com/lunahost/luna/internal/value"
)

func newQueue(t *testing.T) (*sim.Engine, *Queue) {
	t.Helper()
	e := sim.NewEngine(1, zap.NewNop())
	return e, NewQueue(e, zap.NewNop())
}

func TestRepeatingTimer_FiresOncePerInterval(t *testing.T) {
	e, q := newQueue(t)
	var fired []float64
	_, ok := q.Add(0.1, func(value.Value) bool {
		fired = append(fired, e.Time())
		return true
	}, value.Nil(), true, false, 1)
	require.True(t, ok)

	const frame = 10 * time.Millisecond
	for i := 0; i < 200; i++ {
		e.Advance(frame)
		q.Update(frame)
	}

	require.GreaterOrEqual(t, len(fired), 19)
	assert.LessOrEqual(t, fired[0], 0.1+frame.Seconds()+epsilon)
	for i := 1; i < len(fired); i++ {
		gap := fired[i] - fired[i-1]
		assert.GreaterOrEqual(t, gap, 0.1-epsilon, "fired twice within one interval")
		assert.LessOrEqual(t, gap, 0.1+frame.Seconds()+epsilon, "missed an interval")
	}
}

func TestInterval_ClampedToMinimum(t *testing.T) {
	e, q := newQueue(t)
	n := 0
	q.Add(0, func(value.Value) bool { n++; return true }, value.Nil(), true, false, 1)

	e.Advance(50 * time.Millisecond)
	q.Update(0)
	assert.Equal(t, 0, n)

	e.Advance(50 * time.Millisecond)
	q.Update(0)
	assert.Equal(t, 1, n)
}

func TestExecNowOneShotReturningFalse_NeverQueued(t *testing.T) {
	e, q := newQueue(t)
	n := 0
	id, ok := q.Add(1, func(value.Value) bool { n++; return false }, value.Nil(), false, true, 1)

	assert.False(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Contains(id))

	e.Advance(5 * time.Second)
	q.Update(0)
	assert.Equal(t, 1, n)
}

func TestExecNowRepeating_StaysQueued(t *testing.T) {
	_, q := newQueue(t)
	_, ok := q.Add(1, func(value.Value) bool { return true }, value.Nil(), true, true, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestOneShot_RemovedAfterFiring(t *testing.T) {
	e, q := newQueue(t)
	var got value.Value
	q.Add(0.5, func(p value.Value) bool { got = p; return true }, value.FromString("payload"), false, false, 1)

	e.Advance(time.Second)
	q.Update(0)
	assert.Equal(t, "payload", got.String())
	assert.Equal(t, 0, q.Len())
}

func TestRepeating_StopsOnFalse(t *testing.T) {
	e, q := newQueue(t)
	n := 0
	q.Add(0.1, func(value.Value) bool { n++; return n < 3 }, value.Nil(), true, false, 1)

	for i := 0; i < 10; i++ {
		e.Advance(100 * time.Millisecond)
		q.Update(0)
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, q.Len())
}

func TestUpdate_CallbackRemovesLaterTimer(t *testing.T) {
	e, q := newQueue(t)
	otherFired := false
	var other handle.ID

	q.Add(0.1, func(value.Value) bool { q.Remove(other); return false }, value.Nil(), true, false, 1)
	other, _ = q.Add(0.1, func(value.Value) bool { otherFired = true; return true }, value.Nil(), true, false, 1)

	e.Advance(200 * time.Millisecond)
	q.Update(0)
	assert.False(t, otherFired)
	assert.Equal(t, 0, q.Len())
}

func TestRemoveOwner(t *testing.T) {
	_, q := newQueue(t)
	q.Add(1, func(value.Value) bool { return true }, value.Nil(), true, false, 1)
	q.Add(1, func(value.Value) bool { return true }, value.Nil(), true, false, 2)
	q.Add(1, func(value.Value) bool { return true }, value.Nil(), true, false, 1)

	assert.Equal(t, 2, q.RemoveOwner(1))
	assert.Equal(t, 1, q.Len())
}
