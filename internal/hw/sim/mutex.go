package sim

import "sync"

// CrossCoreMutex models the cross-core mutex of §4.1. On real hardware this
// additionally masks interrupts on the acquiring core; in the simulation a
// plain sync.Mutex already gives us the exclusion property the safety core
// depends on, so the interrupt-masking half of the contract is documentation
// rather than code here.
type CrossCoreMutex struct {
	mu    sync.Mutex
	ready bool
	once  sync.Once
}

// NewCrossCoreMutex returns a ready-to-use cross-core mutex.
func NewCrossCoreMutex() *CrossCoreMutex {
	m := &CrossCoreMutex{}
	m.once.Do(func() { m.ready = true })
	return m
}

// Lock acquires the mutex, masking interrupts on the calling core in a real
// implementation.
func (m *CrossCoreMutex) Lock() { m.mu.Lock() }

// Unlock releases the mutex.
func (m *CrossCoreMutex) Unlock() { m.mu.Unlock() }

// TryLock reports whether the mutex is initialised and was free to acquire.
// A mutex that has not been constructed through NewCrossCoreMutex reports
// false so callers take the §4.1 pre-init degraded path.
func (m *CrossCoreMutex) TryLock() bool {
	if !m.ready {
		return false
	}
	return m.mu.TryLock()
}
