// Package timer runs deferred script callbacks off the host frame tick.
package timer

import (
	"time"

	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/core/handle"
	"github.com/lunahost/luna/internal/core/system"
	"github.com/lunahost/luna/internal/value"
)

// MinInterval is the shortest interval a timer can have, in seconds.
const MinInterval = 0.1

// epsilon absorbs float rounding in the due check so a timer whose
// interval has elapsed exactly is not pushed to the next frame.
const epsilon = 1e-6

// Clock reports host time in seconds.
type Clock interface {
	Time() float64
}

// Callback runs when a timer fires. For repeating timers, returning false
// stops the timer.
type Callback func(payload value.Value) bool

type entry struct {
	interval float64
	cb       Callback
	payload  value.Value
	repeat   bool
	lastExec float64
	owner    uint32
}

// exec runs the callback and reports whether the timer stays scheduled.
func (e *entry) exec(now float64) bool {
	e.lastExec = now
	keep := e.cb(e.payload)
	return e.repeat && keep
}

// Queue is polled once per host frame. Not safe for concurrent use.
type Queue struct {
	clock  Clock
	log    *zap.Logger
	timers *handle.Table[*entry]
}

func NewQueue(clock Clock, log *zap.Logger) *Queue {
	return &Queue{
		clock:  clock,
		log:    log,
		timers: handle.NewTable[*entry](),
	}
}

// Add schedules cb every interval seconds. With execNow the callback runs
// immediately; a timer that is finished after that first run is never
// enqueued and Add returns false.
func (q *Queue) Add(interval float64, cb Callback, payload value.Value, repeat, execNow bool, owner uint32) (handle.ID, bool) {
	if interval < MinInterval {
		interval = MinInterval
	}
	if !payload.Scalar() {
		payload = value.Nil()
	}
	e := &entry{
		interval: interval,
		cb:       cb,
		payload:  payload,
		repeat:   repeat,
		owner:    owner,
	}
	now := q.clock.Time()
	if execNow {
		if !e.exec(now) {
			return 0, false
		}
	} else {
		e.lastExec = now
	}
	id := q.timers.Insert(e)
	q.log.Debug("timer added",
		zap.Float64("interval", interval),
		zap.Bool("repeat", repeat),
		zap.Uint32("owner", owner),
	)
	return id, true
}

// Remove cancels a timer. Unknown or finished timers are ignored.
func (q *Queue) Remove(id handle.ID) bool {
	_, ok := q.timers.Remove(id)
	return ok
}

// RemoveOwner cancels every timer created by a script.
func (q *Queue) RemoveOwner(owner uint32) int {
	n := 0
	q.timers.Each(func(id handle.ID, e *entry) bool {
		if e.owner == owner {
			q.timers.Remove(id)
			n++
		}
		return true
	})
	return n
}

func (q *Queue) Len() int { return q.timers.Len() }

// Contains reports whether id is still scheduled.
func (q *Queue) Contains(id handle.ID) bool { return q.timers.Contains(id) }

// Clear drops every timer without running it.
func (q *Queue) Clear() { q.timers.Clear() }

func (q *Queue) Phase() system.Phase { return system.PhaseTimers }

// Update fires every due timer once. Callbacks may add or remove timers.
func (q *Queue) Update(_ time.Duration) {
	now := q.clock.Time()
	q.timers.Each(func(id handle.ID, e *entry) bool {
		if now+epsilon < e.lastExec+e.interval {
			return true
		}
		if !e.exec(now) {
			q.timers.Remove(id)
		}
		return true
	})
}
