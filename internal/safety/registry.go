package safety

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Component is the capability set spec.md §6 calls the "Component
// contract": activate, make_safe, name. It is an open set, known to the
// registry only through this interface — the same dynamic-dispatch-over-a-
// bounded-array shape spec.md §9 calls out explicitly.
type Component interface {
	// Activate brings the component into its running state. A false
	// return means activation failed.
	Activate() bool
	// MakeSafe idempotently drives the component to its safe state. It
	// must not panic and must always make forward progress even if called
	// repeatedly.
	MakeSafe()
	// Name identifies the component for fault descriptions.
	Name() string
}

// Registry is the bounded Component Registry of §4.2 (C3). It is
// independently mutexed from the fault store to avoid interleaving
// component activation/safing with fault reporting, per §5.
type Registry struct {
	mu       sync.Mutex
	capacity int
	members  []Component
}

// NewRegistry returns an empty registry bounded at capacity entries
// (spec.md §6 COMPONENT_CAPACITY, default 32).
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 32
	}
	return &Registry{capacity: capacity}
}

// Register adds c if it is not already present and capacity remains.
func (r *Registry) Register(c Component) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.members {
		if existing == c {
			return false
		}
	}
	if len(r.members) >= r.capacity {
		return false
	}
	r.members = append(r.members, c)
	return true
}

// Unregister removes c by identity. Removal compacts by shifting, so the
// remaining components keep their registration order.
func (r *Registry) Unregister(c Component) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.members {
		if existing == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns a copy of the current membership taken under lock, so
// callers can invoke component methods without holding the registry lock —
// the "snapshot-then-invoke outside the lock" rationale of §4.2 that
// prevents reentrancy deadlocks when a component's Activate/MakeSafe itself
// registers or unregisters.
func (r *Registry) snapshot() []Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Component, len(r.members))
	copy(out, r.members)
	return out
}

// ActivateAll invokes Activate on every registered component in
// registration order. On the first failure it captures the failing
// component's name, invokes MakeSafeAll, and returns that name as a
// non-empty string with ok=false.
func (r *Registry) ActivateAll() (ok bool, failedName string) {
	members := r.snapshot()
	for _, c := range members {
		if !c.Activate() {
			r.MakeSafeAll()
			return false, c.Name()
		}
	}
	return true, ""
}

// MakeSafeAll invokes MakeSafe on every registered component. It never
// short-circuits: a misbehaving component (one that panics) is recovered so
// every remaining component still gets a chance to reach its safe state,
// matching the §8 testable property "make_safe_all never skips a
// registered component even if earlier make_safe calls misbehave". The
// fan-out uses golang.org/x/sync/errgroup the way the teacher uses it to
// orchestrate concurrent hypervisor setup, collecting panics rather than
// letting one component's bug take down the others.
func (r *Registry) MakeSafeAll() {
	members := r.snapshot()
	var g errgroup.Group
	for _, c := range members {
		c := c
		g.Go(func() error {
			defer func() {
				_ = recover()
			}()
			c.MakeSafe()
			return nil
		})
	}
	_ = g.Wait()
}

// Count returns the current number of registered components.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
