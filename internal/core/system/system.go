package system

import "time"

// Phase defines execution ordering within a single host frame.
type Phase int

const (
	PhaseFrameStart Phase = iota // 0: advance host clock, drain console input
	PhaseTimers                  // 1: fire due script timers
	PhaseUpdate                  // 2: host simulation
	PhaseCleanup                 // 3: drop stale entity and edict handles
)

func (p Phase) String() string {
	switch p {
	case PhaseFrameStart:
		return "frame_start"
	case PhaseTimers:
		return "timers"
	case PhaseUpdate:
		return "update"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is anything ticked once per host frame.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a function to a System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
