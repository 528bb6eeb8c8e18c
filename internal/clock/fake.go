package clock

import "time"

// FakeClock is a manually stepped Clock for tests. Time only moves when
// the test advances it.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// AdvanceTo jumps to an absolute instant. It never moves backwards.
func (c *FakeClock) AdvanceTo(t time.Time) {
	t = t.UTC()
	if t.After(c.now) {
		c.now = t
	}
}
