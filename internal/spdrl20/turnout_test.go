package spdrl20

import (
	"testing"
	"time"
)

func TestTurnout_WGTChordStartsMotion(t *testing.T) {
	tw := newTestTower(t)
	w1 := tw.AddTurnout("W1")

	push(tw, "WGT", true)
	push(tw, "W1", true)
	settle(tw)

	if !w1.moving {
		t.Fatal("turnout should be moving after WGT+W1 chord")
	}
	if !w1.position {
		t.Fatal("turnout should have committed the new (reverse) position eagerly")
	}

	waitFor(t, time.Second, func() bool {
		return callR(tw, func() bool { return w1.moving }) == false
	})
}

func TestTurnout_NoMotionWithoutWGT(t *testing.T) {
	tw := newTestTower(t)
	w1 := tw.AddTurnout("W1")

	push(tw, "W1", true)
	settle(tw)

	if w1.moving || w1.position {
		t.Fatal("turnout should not move without the WGT chord")
	}
}

func TestTurnout_LockedBlocksMotion(t *testing.T) {
	tw := newTestTower(t)
	w1 := tw.AddTurnout("W1")
	w1.locked = true

	push(tw, "WGT", true)
	push(tw, "W1", true)
	settle(tw)

	if w1.moving {
		t.Fatal("locked turnout should not move")
	}
}

func TestTurnout_StartChangeSupersedesPending(t *testing.T) {
	tw := newTestTower(t)
	w1 := tw.AddTurnout("W1")

	var done1 <-chan struct{}
	tw.call(func() { done1 = w1.StartChange(nil) })
	target := false
	tw.call(func() { w1.StartChange(&target) })

	select {
	case <-done1:
		t.Fatal("superseded motion's done channel should not close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTurnout_Reset(t *testing.T) {
	tw := newTestTower(t)
	w1 := tw.AddTurnout("W1")
	w1.position = true
	w1.locked = true

	w1.Reset()

	if w1.position || w1.locked || w1.moving {
		t.Error("Reset should restore normal, unlocked, not moving")
	}
}
