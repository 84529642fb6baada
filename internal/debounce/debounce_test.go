package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

const cooldown = 40 * time.Millisecond

func waitIdle(t *testing.T, d *Debouncer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for d.State() != Idle {
		if time.Now().After(deadline) {
			t.Fatal("debouncer did not return to idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFirstCallRunsImmediately(t *testing.T) {
	var n atomic.Int32
	d := New(cooldown, func() { n.Add(1) })
	defer d.Close()

	d.Call()
	if got := n.Load(); got != 1 {
		t.Fatalf("calls after leading edge = %d, want 1", got)
	}
	if d.State() != Debouncing {
		t.Errorf("state = %v, want debouncing", d.State())
	}

	waitIdle(t, d)
	if got := n.Load(); got != 1 {
		t.Errorf("single call produced %d executions, want 1", got)
	}
}

func TestBurstCoalescesToOneTrailing(t *testing.T) {
	var n atomic.Int32
	d := New(cooldown, func() { n.Add(1) })
	defer d.Close()

	for i := 0; i < 10; i++ {
		d.Call()
	}
	if got := n.Load(); got != 1 {
		t.Fatalf("executions during burst = %d, want 1", got)
	}

	waitIdle(t, d)
	if got := n.Load(); got != 2 {
		t.Errorf("executions after burst = %d, want 2 (leading + trailing)", got)
	}
}

func TestCallAfterIdleRunsImmediatelyAgain(t *testing.T) {
	var n atomic.Int32
	d := New(cooldown, func() { n.Add(1) })
	defer d.Close()

	d.Call()
	waitIdle(t, d)
	d.Call()
	if got := n.Load(); got != 2 {
		t.Errorf("executions = %d, want 2", got)
	}
}

func TestCloseCancelsTrailing(t *testing.T) {
	var n atomic.Int32
	d := New(cooldown, func() { n.Add(1) })

	d.Call()
	d.Call()
	d.Close()

	time.Sleep(3 * cooldown)
	if got := n.Load(); got != 1 {
		t.Errorf("executions = %d, want 1 (trailing cancelled)", got)
	}

	d.Call()
	if got := n.Load(); got != 1 {
		t.Errorf("call after Close executed")
	}
}

func TestCallDuringExecutionSchedulesTrailing(t *testing.T) {
	var n atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	d := New(cooldown, func() {
		if n.Add(1) == 1 {
			close(started)
			<-release
		}
	})
	defer d.Close()

	go d.Call()
	<-started
	d.Call()
	close(release)

	waitIdle(t, d)
	if got := n.Load(); got != 2 {
		t.Errorf("executions = %d, want 2", got)
	}
}
