//go:build sio_deadlock

package sync

import "github.com/sasha-s/go-deadlock"

// Build with `-tags sio_deadlock` to detect lock ordering problems
// in the manager and socket state machines.
type (
	Mutex     = deadlock.Mutex
	RWMutex   = deadlock.RWMutex
	Once      = deadlock.Once
	WaitGroup = deadlock.WaitGroup
)
