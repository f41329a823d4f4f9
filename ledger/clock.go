package ledger

import (
	"sync"
	"time"
)

// Clock provides the timestamps of mined blocks.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock. Consecutive blocks are not guaranteed to
// have non-decreasing timestamps.
var SystemClock Clock = ClockFunc(time.Now)

// StepClock is a logical clock that returns start, start+step, start+2*step
// and so on. It makes mined chains reproducible across runs and is safe for
// concurrent use.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock returns a StepClock whose first reading is start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{next: start, step: step}
}

// Now returns the current reading and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.next
	c.next = c.next.Add(c.step)
	return now
}
