// Package entity owns the game-entity wrappers handed to scripts and the
// edict handles that refer to engine slots.
package entity

import (
	"time"

	"go.uber.org/zap"

	"github.com/lunahost/luna/internal/core/handle"
	"github.com/lunahost/luna/internal/core/system"
	"github.com/lunahost/luna/internal/host"
	"github.com/lunahost/luna/internal/value"
)

// ownedEntity pairs an entity with the serial its edict had at creation.
type ownedEntity struct {
	ent    host.Entity
	edict  host.Edict
	serial uint32
}

func (o *ownedEntity) valid() bool {
	return o.ent.IsValid() && o.edict != nil && o.serial == o.edict.SerialNumber()
}

// Registry resolves script handles to live engine objects. Single goroutine.
type Registry struct {
	log      *zap.Logger
	entities *handle.Table[*ownedEntity]

	edicts  *handle.Table[edictRef]
	byEdict map[host.Edict]handle.ID
}

type edictRef struct {
	edict  host.Edict
	serial uint32
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:      log,
		entities: handle.NewTable[*ownedEntity](),
		edicts:   handle.NewTable[edictRef](),
		byEdict:  make(map[host.Edict]handle.ID),
	}
}

// Create takes ownership of ent and returns its handle.
func (r *Registry) Create(ent host.Entity) value.Ref {
	if ent == nil {
		return value.Ref{}
	}
	ed := ent.Edict()
	var serial uint32
	if ed != nil {
		serial = ed.SerialNumber()
	}
	id := r.entities.Insert(&ownedEntity{ent: ent, edict: ed, serial: serial})
	return value.Ref{Kind: value.RefEntity, ID: id}
}

// Get prunes every stale entity, then resolves ref and asserts it to T.
// A failed assertion is reported as not found.
func Get[T host.Entity](r *Registry, ref value.Ref) (T, bool) {
	var zero T
	r.Prune()
	if ref.Kind != value.RefEntity {
		return zero, false
	}
	o, ok := r.entities.Get(ref.ID)
	if !ok {
		return zero, false
	}
	t, ok := o.ent.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Prune erases entities whose object died or whose slot was recycled.
// It returns the number removed.
func (r *Registry) Prune() int {
	n := 0
	r.entities.Each(func(id handle.ID, o *ownedEntity) bool {
		if !o.valid() {
			r.entities.Remove(id)
			n++
		}
		return true
	})
	if n > 0 {
		r.log.Debug("pruned stale entities", zap.Int("count", n))
	}
	return n
}

func (r *Registry) Len() int { return r.entities.Len() }

// Edict returns the handle for ed. The same live slot always maps to the
// same handle until its serial number changes.
func (r *Registry) Edict(ed host.Edict) value.Ref {
	if ed == nil {
		return value.Ref{}
	}
	if id, ok := r.byEdict[ed]; ok {
		if e, ok := r.edicts.Get(id); ok && e.serial == ed.SerialNumber() {
			return value.Ref{Kind: value.RefEdict, ID: id}
		}
		r.edicts.Remove(id)
	}
	id := r.edicts.Insert(edictRef{edict: ed, serial: ed.SerialNumber()})
	r.byEdict[ed] = id
	return value.Ref{Kind: value.RefEdict, ID: id}
}

// ResolveEdict returns the slot behind ref if it has not been recycled.
func (r *Registry) ResolveEdict(ref value.Ref) (host.Edict, bool) {
	if ref.Kind != value.RefEdict {
		return nil, false
	}
	e, ok := r.edicts.Get(ref.ID)
	if !ok {
		return nil, false
	}
	if e.serial != e.edict.SerialNumber() {
		r.edicts.Remove(ref.ID)
		delete(r.byEdict, e.edict)
		return nil, false
	}
	return e.edict, true
}

// EdictLen is the number of edict handles issued and not yet dropped.
func (r *Registry) EdictLen() int { return r.edicts.Len() }

// sweepEdicts drops edict handles whose slot has been recycled.
func (r *Registry) sweepEdicts() {
	r.edicts.Each(func(id handle.ID, e edictRef) bool {
		if e.serial != e.edict.SerialNumber() {
			r.edicts.Remove(id)
			delete(r.byEdict, e.edict)
		}
		return true
	})
}

// Clear drops every handle. Used at shutdown.
func (r *Registry) Clear() {
	r.entities.Clear()
	r.edicts.Clear()
	r.byEdict = make(map[host.Edict]handle.ID)
}

// Sweeper is the cleanup system that drops stale handles once per frame.
type Sweeper struct {
	reg *Registry
}

func NewSweeper(reg *Registry) *Sweeper { return &Sweeper{reg: reg} }

func (s *Sweeper) Phase() system.Phase { return system.PhaseCleanup }

func (s *Sweeper) Update(_ time.Duration) {
	s.reg.Prune()
	s.reg.sweepEdicts()
}
