// Package clock abstracts "now" so that core logic never reads the wall
// clock directly. Generation and scheduling take time as an input, which
// keeps re-runs reproducible and lets tests freeze or step time.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock. Use only at entry points (cmd/*).
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. For tests.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Func adapts a function to a Clock, for tests that need stepping time.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

var (
	_ Clock = Real{}
	_ Clock = Fixed{}
	_ Clock = Func(nil)
)
