package spdrl20

import (
	"context"
	"testing"
	"time"

	"github.com/vvmev/spdrl20-core/internal/bus"
	"github.com/vvmev/spdrl20-core/internal/config"
)

// newTestTower builds a Tower whose dispatcher is never connected to a real
// broker: Subscribe/DispatchOne work for driving tests, and Publish is a
// silent no-op (the element's onUpdate fan-out still fires). The actor
// loop runs for the duration of the test.
func newTestTower(t *testing.T) *Tower {
	t.Helper()
	cfg := &config.Config{
		Station: "test",
		Delays: config.DelaysConfig{
			MovingDelaySec: 0.02,
			AltDelaySec:    0.03,
			StepDelaySec:   0.005,
		},
	}
	d := bus.NewDispatcher(config.MQTTConfig{Broker: "mqtt://unused"}, "test-client", nil)
	tw := NewTower("test", cfg, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	tw.StartLoop(ctx)
	t.Cleanup(cancel)
	return tw
}

// push simulates a panel button press/release for name.
func push(tw *Tower, name string, v bool) {
	topic := tw.buttonTopic(name)
	payload := "0"
	if v {
		payload = "1"
	}
	tw.dispatcher.DispatchOne(topic, payload)
}

// occupy simulates trackside occupancy for name.
func occupy(tw *Tower, name string, v bool) {
	topic := tw.tracksideTopic("track", name)
	payload := "0"
	if v {
		payload = "1"
	}
	tw.dispatcher.DispatchOne(topic, payload)
}

// settle gives the actor loop and any spawned goroutines a moment to drain
// pending jobs queued by DispatchOne (which itself re-enqueues onto the
// loop), without tying the test to a fixed sleep for real element delays.
func settle(tw *Tower) {
	tw.call(func() {})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}
