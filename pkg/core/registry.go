package core

import "fmt"

// Handle is a stable reference to a mounted component's arena entry. A
// handle becomes stale once the component unmounts; the zero Handle is
// never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.index, h.gen)
}

// entry holds the per-identity state of one component.
type entry struct {
	gen       uint32
	live      bool
	component *Component

	// slots is created by the first hook call of the component.
	slots []*slot
	// hooks is the hook count of the last completed render pass, or -1.
	hooks int
}

// Registry is the identity arena: it maps handles to component state and
// recycles released entries. Generations make stale handles detectable.
//
// Registry is NOT thread-safe. It is owned by one Runtime.
type Registry struct {
	entries []entry
	free    []uint32
	live    int
}

// NewRegistry creates an empty arena.
func NewRegistry() *Registry {
	return &Registry{}
}

// acquire allocates an entry for c and returns its handle.
func (r *Registry) acquire(c *Component) Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.entries))
		r.entries = append(r.entries, entry{})
	}
	e := &r.entries[idx]
	e.gen++
	e.live = true
	e.component = c
	e.slots = nil
	e.hooks = -1
	r.live++
	return Handle{index: idx, gen: e.gen}
}

// lookup returns the live entry for h.
func (r *Registry) lookup(h Handle) (*entry, bool) {
	if h.IsZero() || int(h.index) >= len(r.entries) {
		return nil, false
	}
	e := &r.entries[h.index]
	if !e.live || e.gen != h.gen {
		return nil, false
	}
	return e, true
}

// release frees the entry for h. It reports whether h was live.
func (r *Registry) release(h Handle) bool {
	e, ok := r.lookup(h)
	if !ok {
		return false
	}
	e.live = false
	e.component = nil
	e.slots = nil
	r.free = append(r.free, h.index)
	r.live--
	return true
}

// Valid reports whether h refers to a mounted component.
func (r *Registry) Valid(h Handle) bool {
	_, ok := r.lookup(h)
	return ok
}

// Component returns the component for h, or nil for a stale handle.
func (r *Registry) Component(h Handle) *Component {
	if e, ok := r.lookup(h); ok {
		return e.component
	}
	return nil
}

// SlotCount returns the number of slots allocated for h.
func (r *Registry) SlotCount(h Handle) int {
	if e, ok := r.lookup(h); ok {
		return len(e.slots)
	}
	return 0
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return r.live
}
