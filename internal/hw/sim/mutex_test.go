package sim

import "testing"

func TestCrossCoreMutexExclusion(t *testing.T) {
	m := NewCrossCoreMutex()
	if !m.TryLock() {
		t.Fatalf("TryLock on a free, initialised mutex should succeed")
	}
	if m.TryLock() {
		t.Fatalf("TryLock while already held should fail")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatalf("TryLock after Unlock should succeed")
	}
	m.Unlock()
}

func TestCrossCoreMutexUninitialisedTryLockFails(t *testing.T) {
	var m CrossCoreMutex
	if m.TryLock() {
		t.Fatalf("TryLock on a zero-value mutex should report unavailable")
	}
}
