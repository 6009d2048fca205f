// Package spdrl20 implements the SpDrL20 relay interlocking core: the
// element model, the chord-button command recognizer, the route-setting
// state machine, and the distant-signal aspect propagation, all driven
// through the bus package's publish/subscribe primitives.
package spdrl20

import "github.com/vvmev/spdrl20-core/internal/bus"

// Kind tags an element's wire identity: the panel topic segment its
// published value appears under. DistantSignal shares KindSignal's
// namespace because from the panel's perspective it is just another
// signal face (spec.md §4.8). OuterButton has no wire kind; it never
// publishes.
type Kind string

const (
	KindBlockEnd   Kind = "blockend"
	KindBlockStart Kind = "blockstart"
	KindCounter    Kind = "counter"
	KindSignal     Kind = "signal"
	KindTrack      Kind = "track"
	KindTurnout    Kind = "turnout"
)

// base holds the identity and machinery common to every element kind:
// the name, the latest panel-button and trackside-occupancy state, and
// the on_update fan-out fired on every publish. Concrete kinds embed
// base and, since Go has no virtual dispatch through embedding, each
// defines its own Publish/Reset/render rather than overriding a base
// method (spec.md §9's note on replacing the property bag with typed
// per-kind setters).
type base struct {
	tower    *Tower
	kind     Kind
	name     string
	pushed   bool
	occupied bool
	onUpdate *bus.UpdateTopic
}

func newBase(tower *Tower, kind Kind, name string) base {
	return base{tower: tower, kind: kind, name: name, onUpdate: bus.NewUpdateTopic(name)}
}

func (b *base) Name() string     { return b.name }
func (b *base) Kind() Kind       { return b.kind }
func (b *base) Pushed() bool     { return b.pushed }
func (b *base) Occupied() bool   { return b.occupied }
func (b *base) SetPushed(v bool) { b.pushed = v }

func (b *base) panelTopic() string {
	return b.tower.panelTopic(string(b.kind), b.name)
}

// publish sends value on this element's panel topic and fires onUpdate,
// mirroring Element.publish in spec.md §4.2.
func (b *base) publish(value string) {
	b.tower.publish(b.panelTopic(), value)
	b.onUpdate.Publish(value)
	b.tower.notifyElementUpdate(string(b.kind), b.name, value)
}

// wireCommonTopics subscribes onButton to this element's panel button
// topic and onOccupied to its trackside track topic, as every Element
// does at construction (spec.md §4.2).
func (b *base) wireCommonTopics(onButton, onOccupied func(value string)) {
	b.tower.subscribe(b.tower.buttonTopic(b.name), func(_, payload string) { onButton(payload) })
	b.tower.subscribe(b.tower.tracksideTopic("track", b.name), func(_, payload string) { onOccupied(payload) })
}
