package spdrl20

import "testing"

func TestTower_ResetAll(t *testing.T) {
	tw := newTestTower(t)
	w1 := tw.AddTurnout("W1")
	f1 := tw.AddSignal("f1").AddHome()
	tr := tw.AddTrack("1-1")
	w1.position = true
	w1.locked = true
	f1.aspect = AspectHp2
	tr.locked = true

	tw.call(tw.ResetAll)

	if w1.position || w1.locked {
		t.Error("ResetAll should restore turnout to normal, unlocked")
	}
	if f1.Aspect() != AspectHp0 {
		t.Errorf("ResetAll should restore signal to Hp0, got %v", f1.Aspect())
	}
	if tr.Locked() {
		t.Error("ResetAll should unlock tracks")
	}
}

func TestTower_QualifyTracksideTopic(t *testing.T) {
	tw := newTestTower(t)

	if got := tw.qualifyTracksideTopic("blockstart", "bare"); got != tw.tracksideTopic("blockstart", "bare") {
		t.Errorf("bare name not qualified: %q", got)
	}
	if got := tw.qualifyTracksideTopic("blockstart", "already/qualified/topic"); got != "already/qualified/topic" {
		t.Errorf("qualified topic was rewritten: %q", got)
	}
}

func TestTower_FindRouteBySignals_EitherOrder(t *testing.T) {
	tw := newTestTower(t)
	a := tw.AddSignal("a").AddHome()
	b := tw.AddSignal("b").AddHome()
	route, err := tw.AddRoute("a", "b", "release")
	if err != nil {
		t.Fatalf("AddRoute error: %v", err)
	}

	if tw.findRouteBySignals(a, b) != route {
		t.Error("findRouteBySignals(a, b) should find the route")
	}
	if tw.findRouteBySignals(b, a) != route {
		t.Error("findRouteBySignals(b, a) should find the route regardless of order")
	}
}

func TestTower_AddRoute_UnknownSignalErrors(t *testing.T) {
	tw := newTestTower(t)
	tw.AddSignal("a")
	if _, err := tw.AddRoute("a", "nope", "release"); err == nil {
		t.Fatal("AddRoute with unknown signal should error")
	}
}

func TestTower_FixedOuterButtonsRegistered(t *testing.T) {
	tw := newTestTower(t)
	for _, name := range outerButtonNames {
		if _, ok := tw.outerButtons[name]; !ok {
			t.Errorf("outer button %q not registered", name)
		}
	}
	for name := range outerButtonsWithCounter {
		if _, ok := tw.counters[name]; !ok {
			t.Errorf("counter for %q not registered", name)
		}
	}
}
