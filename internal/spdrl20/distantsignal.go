package spdrl20

const (
	AspectVr0 Aspect = "Vr0"
	AspectVr1 Aspect = "Vr1"
	AspectVr2 Aspect = "Vr2"

	// aspectExtinguished is published literally when a DistantSignal is
	// mounted below a home signal currently showing Hp0: the distant face
	// goes dark rather than showing Vr0 (spdrl20.py DistantSignal.publish).
	aspectExtinguished = "-"
)

// translateHomeToDistant maps a home signal's aspect to the distant-signal
// face that announces it in advance (spec.md §4.8). Only Hp0/Hp1/Hp2 have a
// Vr counterpart; any other aspect (Sh1, Zs1) passes through unchanged,
// matching spdrl20.py's start_distant, which only rewrites aspect when it
// is a key of translated_aspects and otherwise republishes it verbatim.
func translateHomeToDistant(a Aspect) Aspect {
	switch a {
	case AspectHp0:
		return AspectVr0
	case AspectHp1:
		return AspectVr1
	case AspectHp2:
		return AspectVr2
	default:
		return a
	}
}

// distantSelector names which home signal a DistantSignal currently
// announces. With only `straight` set, that signal always applies. With
// both `straight` and `diverging` set, the answer depends on turnout's
// position at the moment a home signal actually fires — replacing
// spdrl20.py's two independent closures (each capturing its own signal)
// with a single decision point, which also resolves the ambiguity noted in
// spec.md §9 REDESIGN FLAGS about which of the two closures is authoritative.
type distantSelector struct {
	turnout   *Turnout
	straight  *Signal
	diverging *Signal
}

// active returns the home signal currently governing this distant signal.
func (d distantSelector) active() *Signal {
	if d.turnout == nil {
		return d.straight
	}
	if d.turnout.position {
		return d.diverging
	}
	return d.straight
}

// DistantSignal repeats a home signal's aspect (translated to a Vr face) in
// advance of it, optionally extinguishing when mounted directly below a
// home signal showing Hp0 (spec.md §4.8). It shares the signal panel
// namespace (KindSignal) since it is, from the panel's perspective, just
// another signal face.
type DistantSignal struct {
	base
	aspect    Aspect
	mountedAt *Signal
	selector  distantSelector
}

func newDistantSignal(tower *Tower, name string, selector distantSelector, mountedAt *Signal) *DistantSignal {
	ds := &DistantSignal{
		base:      newBase(tower, KindSignal, name),
		aspect:    AspectVr0,
		mountedAt: mountedAt,
		selector:  selector,
	}

	if selector.straight != nil {
		selector.straight.onUpdate.Subscribe(func(string) { ds.onHomeUpdate(selector.straight) })
	}
	if selector.diverging != nil {
		selector.diverging.onUpdate.Subscribe(func(string) { ds.onHomeUpdate(selector.diverging) })
	}
	if mountedAt != nil {
		mountedAt.onUpdate.Subscribe(func(string) { ds.Publish() })
	}

	return ds
}

// onHomeUpdate fires whenever one of this distant signal's candidate home
// signals changes aspect. It only actually republishes if that signal is
// the one currently selected — at fire time, not at wiring time, since the
// turnout governing the selection can move independently.
func (ds *DistantSignal) onHomeUpdate(firing *Signal) {
	if ds.selector.active() != firing {
		return
	}
	ds.aspect = translateHomeToDistant(firing.Aspect())
	ds.Publish()
}

// Publish sends the current distant aspect, unless this signal is mounted
// directly below a home signal currently at Hp0, in which case it
// publishes the literal extinguished marker directly to the broker without
// firing onUpdate — mirroring spdrl20.py's override of publish() for the
// mounted_at case, which deliberately bypasses the on_update fan-out that
// the base publish() always triggers.
func (ds *DistantSignal) Publish() {
	if ds.mountedAt != nil && ds.mountedAt.Aspect() == AspectHp0 {
		ds.tower.publish(ds.panelTopic(), aspectExtinguished)
		ds.tower.notifyElementUpdate(string(ds.kind), ds.name, aspectExtinguished)
		return
	}
	ds.publish(string(ds.aspect))
}

// Reset restores power-on state: Vr0, and publishes.
func (ds *DistantSignal) Reset() {
	ds.aspect = AspectVr0
	ds.Publish()
}
