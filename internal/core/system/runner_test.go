package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_PhaseOrder(t *testing.T) {
	var order []string
	r := NewRunner()
	r.Register(Func{P: PhaseCleanup, Fn: func(time.Duration) { order = append(order, "cleanup") }})
	r.Register(Func{P: PhaseTimers, Fn: func(time.Duration) { order = append(order, "timers-a") }})
	r.Register(Func{P: PhaseFrameStart, Fn: func(time.Duration) { order = append(order, "start") }})
	r.Register(Func{P: PhaseTimers, Fn: func(time.Duration) { order = append(order, "timers-b") }})

	require.Equal(t, 4, r.Len())
	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"start", "timers-a", "timers-b", "cleanup"}, order)
}
