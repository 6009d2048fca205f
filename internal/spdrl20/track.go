package spdrl20

// Track is a simple track circuit: it reports occupancy and can be locked
// as part of a route (spec.md §4.4). Its wire value is "occupied,locked"
// since, unlike Signal/Counter/OuterButton, Track's properties include
// occupied (spdrl20.py extends rather than replaces the base property list).
type Track struct {
	base
	locked bool
}

func newTrack(tower *Tower, name string) *Track {
	t := &Track{base: newBase(tower, KindTrack, name)}
	t.wireCommonTopics(t.onButton, t.onOccupied)
	return t
}

func (t *Track) render() string {
	return joinFields(boolDigit(t.occupied), boolDigit(t.locked))
}

// Publish sends the current occupied,locked state.
func (t *Track) Publish() {
	t.publish(t.render())
}

func (t *Track) onButton(value string) {
	t.pushed = ToBool(value)
}

func (t *Track) onOccupied(value string) {
	t.occupied = ToBool(value)
	t.Publish()
}

// Locked reports whether a route currently holds this track.
func (t *Track) Locked() bool {
	return t.locked
}

// SetLocked sets the lock flag and publishes, implementing Lockable.
func (t *Track) SetLocked(v bool) {
	t.locked = v
	t.Publish()
}

// Reset clears locked (occupied is trackside-reported truth, left as-is)
// and publishes.
func (t *Track) Reset() {
	t.locked = false
	t.Publish()
}
