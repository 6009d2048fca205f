package spdrl20

import "testing"

func TestBlockStart_ClearsWhenBlockEndUnblocks(t *testing.T) {
	tw := newTestTower(t)
	bs := tw.AddBlockStart("ABS", "neighbor/blockend", "neighbor/blockingtrack")
	bs.blocked = true

	tw.call(func() { bs.onBlockEnd("0") })

	if bs.blocked {
		t.Fatal("block start should clear when the remote block end reports unblocked")
	}
	if bs.render() != "0,0" {
		t.Errorf("render() = %q, want %q", bs.render(), "0,0")
	}
}

func TestBlockStart_BlocksWhenBlockingTrackClears(t *testing.T) {
	tw := newTestTower(t)
	bs := tw.AddBlockStart("ABS", "neighbor/blockend", "neighbor/blockingtrack")

	tw.call(func() { bs.onBlockingTrack("0") })

	if !bs.blocked {
		t.Fatal("block start should block once the blocking track reports unoccupied")
	}
}

func TestBlockStart_Reset(t *testing.T) {
	tw := newTestTower(t)
	bs := tw.AddBlockStart("ABS", "neighbor/blockend", "neighbor/blockingtrack")
	bs.blocked = true

	bs.Reset()

	if bs.blocked {
		t.Error("Reset should clear blocked flag")
	}
}
