package spdrl20

// OuterButton is one of the tower's fixed command buttons (SGT, HaGT,
// ErsGT, FHT, WGT, WHT, BlGT, AsT). It never publishes: it only records
// pushed/occupied state for Tower.IsOuterButton and for signals/turnouts to
// consult when dispatching a chord (spec.md §4.3).
type OuterButton struct {
	base
}

func newOuterButton(tower *Tower, name string) *OuterButton {
	btn := &OuterButton{base: newBase(tower, "", name)}
	btn.wireCommonTopics(btn.onButton, btn.onOccupied)
	return btn
}

func (b *OuterButton) onButton(value string) {
	b.pushed = ToBool(value)
}

// onOccupied is wired for symmetry with every other Element but is never
// expected to fire: nothing in spec.md §1's topology publishes occupancy
// under an outer button's name.
func (b *OuterButton) onOccupied(value string) {
	b.occupied = ToBool(value)
}

// Reset restores the button to its unpushed power-on state.
func (b *OuterButton) Reset() {
	b.pushed = false
}
