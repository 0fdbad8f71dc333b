package search

import (
	"sync/atomic"
	"testing"
	"time"
)

func newTestAutoDeleter(t *testing.T) *AutoDeleter {
	t.Helper()
	a := NewAutoDeleterWithDelay(20 * time.Millisecond)
	t.Cleanup(a.StopAll)
	return a
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	a := newTestAutoDeleter(t)

	var fired int32
	a.Schedule(1, 1, func() { atomic.StoreInt32(&fired, 1) })

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestCancelPreventsDeletion(t *testing.T) {
	a := newTestAutoDeleter(t)

	var fired int32
	a.Schedule(2, 2, func() { atomic.StoreInt32(&fired, 1) })
	a.Cancel(2, 2)

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("fired = %d, want 0 after cancel", got)
	}
}

func TestRescheduleCancelsPriorTimer(t *testing.T) {
	a := newTestAutoDeleter(t)

	var calls int32
	del := func() { atomic.AddInt32(&calls, 1) }

	a.Schedule(3, 3, del)
	time.Sleep(5 * time.Millisecond)
	a.Schedule(3, 3, del)

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want exactly 1", got)
	}
}

func TestPendingReflectsScheduledCount(t *testing.T) {
	a := NewAutoDeleterWithDelay(time.Hour)
	t.Cleanup(a.StopAll)

	a.Schedule(1, 1, func() {})
	a.Schedule(1, 2, func() {})
	if got := a.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	a.Cancel(1, 1)
	if got := a.Pending(); got != 1 {
		t.Fatalf("Pending() after cancel = %d, want 1", got)
	}
}
