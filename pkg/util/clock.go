package util

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock returns the same instant on every call, advanced by Step
// after each read when Step is non-zero.
type FixedClock struct {
	T    time.Time
	Step time.Duration
}

func (c *FixedClock) Now() time.Time {
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}
