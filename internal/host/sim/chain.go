package sim

import (
	"sort"

	"github.com/lunahost/luna/internal/host"
)

// Chain is an in-memory hook chain. Callbacks run in priority order,
// highest first, ties in registration order.
type Chain[A, R any] struct {
	original func(A) R
	regs     []*registration[A, R]
	seq      uint64
}

type registration[A, R any] struct {
	cb   host.Callback[A, R]
	prio host.Priority
	seq  uint64
	dead bool
}

func (r *registration[A, R]) Priority() host.Priority { return r.prio }

func NewChain[A, R any](original func(A) R) *Chain[A, R] {
	return &Chain[A, R]{original: original}
}

func (c *Chain[A, R]) Register(cb host.Callback[A, R], prio host.Priority) host.HookInfo {
	c.seq++
	r := &registration[A, R]{cb: cb, prio: prio, seq: c.seq}
	c.regs = append(c.regs, r)
	sort.SliceStable(c.regs, func(i, j int) bool {
		return c.regs[i].prio > c.regs[j].prio
	})
	return r
}

func (c *Chain[A, R]) Unregister(info host.HookInfo) bool {
	r, ok := info.(*registration[A, R])
	if !ok {
		return false
	}
	for i, x := range c.regs {
		if x == r {
			r.dead = true
			c.regs = append(c.regs[:i], c.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Len is the number of registered callbacks.
func (c *Chain[A, R]) Len() int { return len(c.regs) }

// Call dispatches args through the chain as the game would.
func (c *Chain[A, R]) Call(args A) R {
	snapshot := make([]*registration[A, R], len(c.regs))
	copy(snapshot, c.regs)
	return (&dispatch[A, R]{chain: c, regs: snapshot, pos: -1}).CallNext(args)
}

// Original runs the game's default implementation directly.
func (c *Chain[A, R]) Original(args A) R {
	return c.original(args)
}

// dispatch is the Hook handed to callbacks. Callbacks unregistered while
// the chain is running are skipped.
type dispatch[A, R any] struct {
	chain *Chain[A, R]
	regs  []*registration[A, R]
	pos   int
}

func (d *dispatch[A, R]) CallNext(args A) R {
	for i := d.pos + 1; i < len(d.regs); i++ {
		if d.regs[i].dead {
			continue
		}
		next := &dispatch[A, R]{chain: d.chain, regs: d.regs, pos: i}
		return d.regs[i].cb(next, args)
	}
	return d.chain.original(args)
}

func (d *dispatch[A, R]) CallOriginal(args A) R {
	return d.chain.original(args)
}
