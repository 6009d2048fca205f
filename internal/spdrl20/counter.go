package spdrl20

import (
	"fmt"
	"strconv"
)

// Counter is the tally attached to one outer button (AsT, ErsGT, FHT, WHT)
// and publishes the running total on every increment, matching the Counter
// element in spdrl20.py. Signal increments the ErsGT counter on each Zs1
// start and the FHT counter on each route release; nothing increments the
// AsT or WHT counters.
type Counter struct {
	base
	count int
}

func newCounter(tower *Tower, name string, button *OuterButton) (*Counter, error) {
	if button == nil {
		return nil, fmt.Errorf("spdrl20: counter %q: button is required", name)
	}
	c := &Counter{base: newBase(tower, KindCounter, name)}
	c.wireCommonTopics(func(v string) { c.pushed = ToBool(v) }, func(v string) { c.occupied = ToBool(v) })
	return c, nil
}

func (c *Counter) render() string {
	return strconv.Itoa(c.count)
}

// Publish sends the current count.
func (c *Counter) Publish() {
	c.publish(c.render())
}

// Increment bumps the count and publishes the new total.
func (c *Counter) Increment() {
	c.count++
	c.Publish()
}

// Count returns the current tally.
func (c *Counter) Count() int {
	return c.count
}

// Reset zeroes the count and publishes it, matching power-on state.
func (c *Counter) Reset() {
	c.count = 0
	c.Publish()
}
