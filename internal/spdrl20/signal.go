package spdrl20

import (
	"context"
	"time"
)

// Aspect is a signal face: the value published on a signal's panel topic.
type Aspect string

const (
	AspectHp0 Aspect = "Hp0"
	AspectHp1 Aspect = "Hp1"
	AspectHp2 Aspect = "Hp2"
	AspectSh1 Aspect = "Sh1"
	AspectZs1 Aspect = "Zs1"
)

// Signal is a home/combination signal. It answers panel button chords
// (spec.md §4.10): SGT starts shunting, HaGT forces halt, ErsGT starts the
// timed substitute-signal sequence, FHT releases the first route it heads
// that is currently locked, and any other pair of pushed signals is looked
// up as a route start.
type Signal struct {
	base
	aspect   Aspect
	aspects  map[Aspect]bool
	altDelay time.Duration
	cancel   context.CancelFunc
}

func newSignal(tower *Tower, name string, altDelay time.Duration) *Signal {
	s := &Signal{
		base:     newBase(tower, KindSignal, name),
		aspect:   AspectHp0,
		aspects:  map[Aspect]bool{},
		altDelay: altDelay,
	}
	s.wireCommonTopics(s.onButton, s.onOccupied)
	return s
}

// AddHome enables the Hp0/Hp1/Hp2 home aspects on this signal.
func (s *Signal) AddHome() *Signal {
	s.aspects[AspectHp0] = true
	s.aspects[AspectHp1] = true
	s.aspects[AspectHp2] = true
	return s
}

// AddShunting enables the Sh1 shunting aspect on this signal.
func (s *Signal) AddShunting() *Signal {
	s.aspects[AspectSh1] = true
	return s
}

// AddAlt enables the Zs1 substitute-signal aspect on this signal.
func (s *Signal) AddAlt() *Signal {
	s.aspects[AspectZs1] = true
	return s
}

// Aspect returns the currently displayed aspect.
func (s *Signal) Aspect() Aspect {
	return s.aspect
}

func (s *Signal) render() string {
	return string(s.aspect)
}

// Publish sends the current aspect.
func (s *Signal) Publish() {
	s.publish(s.render())
}

// StartHome sets the aspect directly, bypassing button gating — used by
// Route to clear a signal to Hp1 on arming and back to Hp0 on unlock.
func (s *Signal) StartHome(aspect Aspect) {
	s.aspect = aspect
	s.Publish()
}

func (s *Signal) onOccupied(value string) {
	s.occupied = ToBool(value)
}

func (s *Signal) onButton(value string) {
	s.pushed = ToBool(value)
	if !s.pushed {
		return
	}

	switch {
	case s.tower.IsOuterButton("SGT"):
		s.startChangeShunting()
	case s.tower.IsOuterButton("HaGT"):
		s.startHalt()
	case s.tower.IsOuterButton("ErsGT"):
		s.startAlt()
	case s.tower.IsOuterButton("FHT"):
		s.releaseFirstLockedRoute()
	default:
		s.tryStartRoute()
	}
}

func (s *Signal) startChangeShunting() {
	if !s.aspects[AspectSh1] || s.aspect != AspectHp0 {
		return
	}
	s.aspect = AspectSh1
	s.Publish()
}

func (s *Signal) startHalt() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.aspect != AspectHp0 {
		s.aspect = AspectHp0
		s.Publish()
	}
}

// startAlt begins the timed Zs1 (substitute signal) display: Zs1 now,
// automatically reverting to Hp0 after altDelay, matching Signal.start_alt
// and change_alt in spdrl20.py.
func (s *Signal) startAlt() {
	if !s.aspects[AspectZs1] || s.aspect != AspectHp0 {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.aspect = AspectZs1
	s.Publish()

	if cnt, ok := s.tower.counters["ErsGT"]; ok {
		cnt.Increment()
	}

	go func() {
		select {
		case <-time.After(s.altDelay):
		case <-ctx.Done():
			return
		}
		s.tower.call(func() {
			if ctx.Err() != nil {
				return
			}
			s.aspect = AspectHp0
			s.Publish()
		})
	}()
}

// releaseFirstLockedRoute implements FHT: release the first route (in
// registration order) with this signal as s1 and currently locked, then
// stop — only ever one route is released per FHT press.
func (s *Signal) releaseFirstLockedRoute() {
	for _, r := range s.tower.routesInOrder() {
		if r.s1 == s && r.locked {
			if cnt, ok := s.tower.counters["FHT"]; ok {
				cnt.Increment()
			}
			r.Unlock()
			return
		}
	}
}

// tryStartRoute implements the "exactly two signals pushed" chord: collect
// every currently pushed signal; if there are exactly two, look up the
// route between them and start it.
func (s *Signal) tryStartRoute() {
	var pushed []*Signal
	for _, other := range s.tower.signals {
		if other.pushed {
			pushed = append(pushed, other)
		}
	}
	if len(pushed) != 2 {
		return
	}
	route := s.tower.findRouteBySignals(pushed[0], pushed[1])
	if route == nil {
		return
	}
	route.Start()
}

// Reset restores power-on state: cancels any pending substitute-signal
// timer, sets Hp0, and publishes. The pushed flag is left as-is.
func (s *Signal) Reset() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.aspect = AspectHp0
	s.Publish()
}
