package sim

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/t76/instrument-core/internal/hw"
)

// Region is an in-memory, optionally file-backed simulation of the
// persistent RAM region from §6. The multi-field buffer (last_fault,
// history) is plain bytes guarded by whatever cross-core mutex the caller
// holds; the handful of single-word fields live in their own atomics so
// readers outside the mutex observe a consistent value, matching §5's
// lock-free ordering guarantee.
type Region struct {
	mu   sync.Mutex
	buf  []byte
	path string // empty for pure in-memory regions

	words [hw.FieldCount]atomic.Uint32
}

// NewMemoryRegion returns a Region that exists only for the lifetime of the
// process — equivalent to persistent RAM that is never checked against a
// stable copy, i.e. "survives soft reset" but not a full power cycle.
func NewMemoryRegion(size int) *Region {
	return &Region{buf: make([]byte, size)}
}

// NewFileRegion returns a Region backed by a file at path, loading its prior
// contents if the file exists. Sync persists the current buffer back to
// disk, so a process that exits and restarts against the same path observes
// the fault history left by the previous run — the clearest demonstration
// of "persistent RAM survives reboot" a single host process can give.
func NewFileRegion(path string, size int) (*Region, bool, error) {
	r := &Region{buf: make([]byte, size), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, false, nil
		}
		return nil, false, err
	}
	n := copy(r.buf, data)
	return r, n > 0, nil
}

// Bytes returns the raw backing buffer. Callers must hold the associated
// cross-core mutex before reading or writing spans covering more than one
// word.
func (r *Region) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf
}

// Word implements hw.Region.
func (r *Region) Word(f hw.Field) uint32 {
	return r.words[f].Load()
}

// SetWord implements hw.Region.
func (r *Region) SetWord(f hw.Field, v uint32) {
	r.words[f].Store(v)
}

// Sync flushes the buffer to disk when the region is file-backed; it is a
// no-op for a pure in-memory region.
func (r *Region) Sync() error {
	if r.path == "" {
		return nil
	}
	r.mu.Lock()
	data := append([]byte(nil), r.buf...)
	r.mu.Unlock()
	return os.WriteFile(r.path, data, 0o600)
}
