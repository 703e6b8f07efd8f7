package clock

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	current Clock = SystemClock{}
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// TestClock is a clock frozen at a given time until moved forward.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewTestClockAt(date time.Time) *TestClock {
	return &TestClock{now: date}
}

func (c *TestClock) FastForward(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func CurrentClock() Clock {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Now is the same as time.Now() but can be controlled from tests.
func Now() time.Time {
	return CurrentClock().Now()
}

func FreezeAt(now time.Time) *TestClock {
	testClock := NewTestClockAt(now)
	mu.Lock()
	current = testClock
	mu.Unlock()
	return testClock
}

// Freeze stops the time at the current second.
func Freeze() *TestClock {
	return FreezeAt(time.Now().Truncate(time.Second))
}

func Unfreeze() {
	mu.Lock()
	current = SystemClock{}
	mu.Unlock()
}
