package utils

import (
	"fmt"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-client-go/internal/sync"
)

const DefaultTestWaitTimeout = time.Second * 12

// TestWaiter is a sync.WaitGroup whose wait can time out.
type TestWaiter struct {
	wg sync.WaitGroup
}

func NewTestWaiter(delta int) *TestWaiter {
	w := new(TestWaiter)
	w.wg.Add(delta)
	return w
}

func (w *TestWaiter) Add(delta int) { w.wg.Add(delta) }

func (w *TestWaiter) Done() { w.wg.Done() }

func (w *TestWaiter) Wait() { w.wg.Wait() }

// WaitTimeout fails the test if Done isn't called enough times within timeout.
func (w *TestWaiter) WaitTimeout(t *testing.T, timeout time.Duration) (timedout bool) {
	t.Helper()
	if waitTimeout(&w.wg, timeout) {
		t.Error("timeout exceeded")
		return true
	}
	return false
}

// TestWaiterString waits for named steps. Each step must be done exactly once.
type TestWaiterString struct {
	wg      sync.WaitGroup
	pending mapset.Set[string]
}

func NewTestWaiterString() *TestWaiterString {
	return &TestWaiterString{
		pending: mapset.NewSet[string](),
	}
}

func (w *TestWaiterString) Add(s string) {
	if !w.pending.Add(s) {
		panic(fmt.Errorf("TestWaiterString: '%s' is already pending", s))
	}
	w.wg.Add(1)
}

func (w *TestWaiterString) Done(s string) {
	if !w.pending.Contains(s) {
		panic(fmt.Errorf("TestWaiterString: Done was called on '%s' which is not pending", s))
	}
	w.pending.Remove(s)
	w.wg.Done()
}

func (w *TestWaiterString) Wait() { w.wg.Wait() }

// WaitTimeout fails the test with the steps that weren't done within timeout.
func (w *TestWaiterString) WaitTimeout(t *testing.T, timeout time.Duration) (timedout bool) {
	t.Helper()
	if waitTimeout(&w.wg, timeout) {
		t.Errorf("timeout exceeded. Pending: %v", w.pending.ToSlice())
		return true
	}
	return false
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) (timedout bool) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		return false
	case <-time.After(timeout):
		return true
	}
}
