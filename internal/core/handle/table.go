package handle

// Table is a generational arena of values addressed by ID.
// Removal during Each is safe: slots are visited by index and a slot freed
// mid-scan is skipped, and slots added mid-scan are visited.
type Table[T any] struct {
	pool  *Pool
	slots []slot[T]
	count int
}

type slot[T any] struct {
	id   ID
	val  T
	used bool
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{
		pool:  NewPool(),
		slots: make([]slot[T], 0, 64),
	}
}

// Insert stores v and returns its ID.
func (t *Table[T]) Insert(v T) ID {
	id := t.pool.Create()
	idx := int(id.Index())
	for idx >= len(t.slots) {
		t.slots = append(t.slots, slot[T]{})
	}
	t.slots[idx] = slot[T]{id: id, val: v, used: true}
	t.count++
	return id
}

// Get returns the value for id, or false if id is stale or unknown.
func (t *Table[T]) Get(id ID) (T, bool) {
	var zero T
	if !t.pool.Alive(id) {
		return zero, false
	}
	s := &t.slots[id.Index()]
	if !s.used || s.id != id {
		return zero, false
	}
	return s.val, true
}

// Contains reports whether id is live.
func (t *Table[T]) Contains(id ID) bool {
	_, ok := t.Get(id)
	return ok
}

// Remove frees id and returns the value it held.
func (t *Table[T]) Remove(id ID) (T, bool) {
	var zero T
	v, ok := t.Get(id)
	if !ok {
		return zero, false
	}
	t.slots[id.Index()] = slot[T]{}
	t.pool.Destroy(id)
	t.count--
	return v, true
}

func (t *Table[T]) Len() int {
	return t.count
}

// Each calls fn for every live value in slot order until fn returns false.
func (t *Table[T]) Each(fn func(ID, T) bool) {
	for i := 0; i < len(t.slots); i++ {
		s := t.slots[i]
		if !s.used {
			continue
		}
		if !fn(s.id, s.val) {
			return
		}
	}
}

// Clear removes every value.
func (t *Table[T]) Clear() {
	for i := range t.slots {
		if t.slots[i].used {
			t.pool.Destroy(t.slots[i].id)
			t.slots[i] = slot[T]{}
		}
	}
	t.count = 0
}
