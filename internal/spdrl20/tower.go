package spdrl20

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vvmev/spdrl20-core/internal/bus"
	"github.com/vvmev/spdrl20-core/internal/config"
)

// outerButtonNames lists the fixed outer buttons every tower registers at
// construction, matching Tower.__init__ in spdrl20.py. outerButtonsWithCounter
// marks which of those also get a Counter element.
var outerButtonNames = []string{"AsT", "BlGT", "ErsGT", "FHT", "HaGT", "SGT", "WGT", "WHT"}
var outerButtonsWithCounter = map[string]bool{"AsT": true, "ErsGT": true, "FHT": true, "WHT": true}

// Tower is a single interlocking station: its element registries, its
// actor-loop job queue, and the MQTT dispatcher it rides on. Every mutation
// to an element happens on the single goroutine draining jobs, so elements
// themselves need no locking (spec.md §4.1, §7).
type Tower struct {
	name       string
	cfg        *config.Config
	dispatcher *bus.Dispatcher
	logger     *slog.Logger

	jobs chan func()

	outerButtons   map[string]*OuterButton
	counters       map[string]*Counter
	tracks         map[string]*Track
	turnouts       map[string]*Turnout
	signals        map[string]*Signal
	distantSignals map[string]*DistantSignal
	blockEnds      map[string]*BlockEnd
	blockStarts    map[string]*BlockStart
	routes         map[string]*Route
	routeOrder     []*Route

	onElementUpdate   func(kind, name, value string)
	onRouteLockChange func(name string, locked bool)
}

// OnElementUpdate registers fn to run after every element publish, keyed by
// wire kind, name and the published value. Used to wire observability
// (internal/obsmetrics counters, internal/audit's black-box log) without
// those packages' dependencies leaking into the element model itself.
func (tw *Tower) OnElementUpdate(fn func(kind, name, value string)) {
	tw.onElementUpdate = fn
}

func (tw *Tower) notifyElementUpdate(kind, name, value string) {
	if tw.onElementUpdate != nil {
		tw.onElementUpdate(kind, name, value)
	}
}

// OnRouteLockChange registers fn to run whenever a route locks or unlocks,
// feeding internal/obsmetrics' RoutesArmed gauge.
func (tw *Tower) OnRouteLockChange(fn func(name string, locked bool)) {
	tw.onRouteLockChange = fn
}

func (tw *Tower) notifyRouteLockChange(name string, locked bool) {
	if tw.onRouteLockChange != nil {
		tw.onRouteLockChange(name, locked)
	}
}

// NewTower creates a Tower and registers its fixed outer buttons (and their
// counters) but does not start its actor loop or connect to a broker; call
// Run for that.
func NewTower(name string, cfg *config.Config, dispatcher *bus.Dispatcher, logger *slog.Logger) *Tower {
	if logger == nil {
		logger = slog.Default()
	}

	tw := &Tower{
		name:           name,
		cfg:            cfg,
		dispatcher:     dispatcher,
		logger:         logger,
		jobs:           make(chan func(), 64),
		outerButtons:   make(map[string]*OuterButton),
		counters:       make(map[string]*Counter),
		tracks:         make(map[string]*Track),
		turnouts:       make(map[string]*Turnout),
		signals:        make(map[string]*Signal),
		distantSignals: make(map[string]*DistantSignal),
		blockEnds:      make(map[string]*BlockEnd),
		blockStarts:    make(map[string]*BlockStart),
		routes:         make(map[string]*Route),
	}

	for _, name := range outerButtonNames {
		btn := newOuterButton(tw, name)
		tw.outerButtons[name] = btn
		if outerButtonsWithCounter[name] {
			// A counter shares its button's name (spdrl20.py's
			// OuterButton.add_counter passes self.name straight through).
			cnt, err := newCounter(tw, name, btn)
			if err != nil {
				panic(fmt.Sprintf("spdrl20: wiring fixed outer button counter %q: %v", name, err))
			}
			tw.counters[cnt.Name()] = cnt
		}
	}

	return tw
}

// AddTrack registers a new Track.
func (tw *Tower) AddTrack(name string) *Track {
	tr := newTrack(tw, name)
	tw.tracks[name] = tr
	return tr
}

// AddTurnout registers a new Turnout.
func (tw *Tower) AddTurnout(name string) *Turnout {
	t := newTurnout(tw, name, tw.cfg.Delays.MovingDelay())
	tw.turnouts[name] = t
	return t
}

// AddSignal registers a new Signal.
func (tw *Tower) AddSignal(name string) *Signal {
	s := newSignal(tw, name, tw.cfg.Delays.AltDelay())
	tw.signals[name] = s
	return s
}

// AddDistantSignal registers a DistantSignal that always propagates the
// named home signal's aspect (spdrl20.py's single-string `home` form).
func (tw *Tower) AddDistantSignal(name, homeSignal, mountedAt string) (*DistantSignal, error) {
	home, ok := tw.signals[homeSignal]
	if !ok {
		return nil, fmt.Errorf("spdrl20: distant signal %q: unknown home signal %q", name, homeSignal)
	}
	var mounted *Signal
	if mountedAt != "" {
		mounted, ok = tw.signals[mountedAt]
		if !ok {
			return nil, fmt.Errorf("spdrl20: distant signal %q: unknown mounted_at signal %q", name, mountedAt)
		}
	}
	ds := newDistantSignal(tw, name, distantSelector{straight: home}, mounted)
	tw.distantSignals[name] = ds
	return ds, nil
}

// AddDistantSignalSelected registers a DistantSignal whose propagated home
// signal depends on a turnout's position (spdrl20.py's dict `home` form).
func (tw *Tower) AddDistantSignalSelected(name, turnoutName, straightSignal, divergingSignal, mountedAt string) (*DistantSignal, error) {
	turnout, ok := tw.turnouts[turnoutName]
	if !ok {
		return nil, fmt.Errorf("spdrl20: distant signal %q: unknown turnout %q", name, turnoutName)
	}
	straight, ok := tw.signals[straightSignal]
	if !ok {
		return nil, fmt.Errorf("spdrl20: distant signal %q: unknown straight signal %q", name, straightSignal)
	}
	diverging, ok := tw.signals[divergingSignal]
	if !ok {
		return nil, fmt.Errorf("spdrl20: distant signal %q: unknown diverging signal %q", name, divergingSignal)
	}
	var mounted *Signal
	if mountedAt != "" {
		mounted, ok = tw.signals[mountedAt]
		if !ok {
			return nil, fmt.Errorf("spdrl20: distant signal %q: unknown mounted_at signal %q", name, mountedAt)
		}
	}
	ds := newDistantSignal(tw, name, distantSelector{turnout: turnout, straight: straight, diverging: diverging}, mounted)
	tw.distantSignals[name] = ds
	return ds, nil
}

// AddBlockEnd registers a new BlockEnd.
func (tw *Tower) AddBlockEnd(name, blockStartTopic, clearanceLockReleaseTopic string) *BlockEnd {
	be := newBlockEnd(tw, name, blockStartTopic, clearanceLockReleaseTopic)
	tw.blockEnds[name] = be
	return be
}

// AddBlockStart registers a new BlockStart.
func (tw *Tower) AddBlockStart(name, blockEndTopic, blockingTrackTopic string) *BlockStart {
	bs := newBlockStart(tw, name, blockEndTopic, blockingTrackTopic)
	tw.blockStarts[name] = bs
	return bs
}

// AddRoute registers a new Route between the two named signals, whose
// combined names ("s1,s2") become its own name, matching spdrl20.py's Route
// naming. releaseTopic is a track-occupancy topic (a bare name is
// namespaced under this tower's trackside/track prefix) whose transition
// to unoccupied unlocks the route, just as FHT does.
func (tw *Tower) AddRoute(s1Name, s2Name, releaseTopic string) (*Route, error) {
	name := s1Name + "," + s2Name
	s1, ok := tw.signals[s1Name]
	if !ok {
		return nil, fmt.Errorf("spdrl20: route %q: unknown signal %q", name, s1Name)
	}
	s2, ok := tw.signals[s2Name]
	if !ok {
		return nil, fmt.Errorf("spdrl20: route %q: unknown signal %q", name, s2Name)
	}
	r := newRoute(tw, name, s1, s2, releaseTopic, tw.cfg.Delays.StepDelay())
	tw.routes[name] = r
	tw.routeOrder = append(tw.routeOrder, r)
	return r, nil
}

// IsOuterButton reports whether name is pushed and no other outer button is
// pushed, the gate spec.md §4.3 requires before honoring a panel button.
func (tw *Tower) IsOuterButton(name string) bool {
	btn, ok := tw.outerButtons[name]
	if !ok || !btn.Pushed() {
		return false
	}
	for other, b := range tw.outerButtons {
		if other != name && b.Pushed() {
			return false
		}
	}
	return true
}

// routesInOrder returns routes in registration order, used for the FHT
// unlock tie-break (first-registered route wins).
func (tw *Tower) routesInOrder() []*Route {
	return tw.routeOrder
}

// ArmedRouteCount returns how many registered routes are currently locked.
// Safe to call from any goroutine for status reporting (e.g. /health);
// takes the actor loop to read a consistent snapshot.
func (tw *Tower) ArmedRouteCount() int {
	return callR(tw, func() int {
		n := 0
		for _, r := range tw.routeOrder {
			if r.locked {
				n++
			}
		}
		return n
	})
}

// findRouteBySignals looks up the route connecting a and b regardless of
// which was pushed first (spec.md §4.10 chord recognition).
func (tw *Tower) findRouteBySignals(a, b *Signal) *Route {
	for _, r := range tw.routeOrder {
		if (r.s1 == a && r.s2 == b) || (r.s1 == b && r.s2 == a) {
			return r
		}
	}
	return nil
}

func (tw *Tower) panelTopic(kind, subject string) string {
	return fmt.Sprintf("frischen/%s/panel/%s/%s", tw.name, kind, subject)
}

func (tw *Tower) buttonTopic(subject string) string {
	return tw.panelTopic("button", subject)
}

func (tw *Tower) tracksideTopic(kind, subject string) string {
	return fmt.Sprintf("frischen/%s/trackside/%s/%s", tw.name, kind, subject)
}

// qualifyTracksideTopic returns topicOrName unchanged if it already looks
// like a qualified MQTT topic (contains '/'), otherwise namespaces it under
// this tower's trackside/<kind> prefix — matching spdrl20.py's bare-name
// convenience for same-station block partners.
func (tw *Tower) qualifyTracksideTopic(kind, topicOrName string) string {
	for i := 0; i < len(topicOrName); i++ {
		if topicOrName[i] == '/' {
			return topicOrName
		}
	}
	return tw.tracksideTopic(kind, topicOrName)
}

// subscribe wraps dispatcher.Subscribe so every delivered message is
// re-entered onto the actor loop via enqueue. Elements must always go
// through this — never call tw.dispatcher.Subscribe directly — or a
// broker-delivered message could mutate element state from paho's own
// goroutine instead of the single serializing loop goroutine.
func (tw *Tower) subscribe(topic string, fn bus.MessageFunc) {
	tw.dispatcher.Subscribe(topic, func(topic, payload string) {
		tw.enqueue(func() { fn(topic, payload) })
	})
}

// publish sends value on topic via the dispatcher. Fire-and-forget; dropped
// silently if the broker connection is currently down (spec.md §7).
func (tw *Tower) publish(topic, value string) {
	tw.dispatcher.Publish(topic, value)
}

// enqueue schedules fn to run on the actor loop without waiting for it.
func (tw *Tower) enqueue(fn func()) {
	tw.jobs <- fn
}

// call schedules fn on the actor loop and blocks until it has run. Safe to
// call from any goroutine except the loop goroutine itself.
func (tw *Tower) call(fn func()) {
	done := make(chan struct{})
	tw.jobs <- func() {
		fn()
		close(done)
	}
	<-done
}

// callR is call's generic, result-returning counterpart.
func callR[T any](tw *Tower, fn func() T) T {
	var result T
	tw.call(func() { result = fn() })
	return result
}

// StartLoop starts the actor loop goroutine, draining jobs until ctx is
// cancelled. Exported so tests can drive the loop without a live broker.
func (tw *Tower) StartLoop(ctx context.Context) {
	go func() {
		for {
			select {
			case job := <-tw.jobs:
				job()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ResetAll resets every registered element to its power-on state, mirroring
// Tower.reset_all() in spdrl20.py. Must run on the actor loop.
func (tw *Tower) ResetAll() {
	for _, b := range tw.outerButtons {
		b.Reset()
	}
	for _, c := range tw.counters {
		c.Reset()
	}
	for _, t := range tw.tracks {
		t.Reset()
	}
	for _, t := range tw.turnouts {
		t.Reset()
	}
	for _, s := range tw.signals {
		s.Reset()
	}
	for _, d := range tw.distantSignals {
		d.Reset()
	}
	for _, b := range tw.blockEnds {
		b.Reset()
	}
	for _, b := range tw.blockStarts {
		b.Reset()
	}
	for _, r := range tw.routeOrder {
		r.Reset()
	}
}

// Run starts the actor loop, arranges for ResetAll to run exactly once
// after the first successful broker connection, then connects and blocks
// until ctx is cancelled — mirroring Tower.run()'s
// connect -> connected=True -> reset_all() -> dispatch loop sequence.
func (tw *Tower) Run(ctx context.Context) error {
	tw.StartLoop(ctx)
	tw.dispatcher.OnFirstConnect(func() { tw.call(tw.ResetAll) })
	return tw.dispatcher.Start(ctx)
}
