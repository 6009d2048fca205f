package bus

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/vvmev/spdrl20-core/internal/config"
)

// Dispatcher wires Topics to an MQTT v5 broker via autopaho's managed
// connection. Subscribe installs a Topic for an MQTT topic filter on first
// use; on every (re-)connection one bulk SUBSCRIBE is issued for the union
// of registered filters at QoS 2, since autopaho does not resubscribe
// automatically after a reconnect.
type Dispatcher struct {
	cfg       config.MQTTConfig
	clientID  string
	logger    *slog.Logger
	cm        *autopaho.ConnectionManager
	onMessage MessageFunc

	mu        sync.Mutex
	topics    map[string]*Topic
	connected bool

	onFirstConnect   func()
	firstConnectOnce sync.Once
}

// NewDispatcher creates a Dispatcher but does not connect. Call Start to
// begin the connection. clientID should be stable across restarts of the
// same tower instance (see internal/towerid).
func NewDispatcher(cfg config.MQTTConfig, clientID string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		clientID: clientID,
		logger:   logger,
		topics:   make(map[string]*Topic),
	}
}

// Subscribe registers fn under the given MQTT topic filter, creating the
// Topic on first use. Must be called before Start to be included in the
// initial bulk SUBSCRIBE (later calls take effect only on the next
// reconnect's resubscribe).
func (d *Dispatcher) Subscribe(topic string, fn MessageFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.topics[topic]
	if !ok {
		t = NewTopic(topic)
		d.topics[topic] = t
	}
	t.Subscribe(fn)
}

// OnFirstConnect registers fn to run exactly once, after the first
// successful broker connection (not on later reconnects). Used by Tower.Run
// to reset every element to its power-on state only after the connection
// that will carry those resets is actually up, mirroring the teacher's
// OnConnectionUp-driven discovery pattern. Must be called before Start.
func (d *Dispatcher) OnFirstConnect(fn func()) {
	d.mu.Lock()
	d.onFirstConnect = fn
	d.mu.Unlock()
}

// DispatchOne delivers payload to every subscriber of topic. Exported so
// tests can drive the dispatcher without a broker; also called internally
// from autopaho's publish-received hook.
func (d *Dispatcher) DispatchOne(topic, payload string) {
	d.mu.Lock()
	t, ok := d.topics[topic]
	d.mu.Unlock()
	if !ok {
		return
	}
	t.Publish(topic, payload)
}

// Connected reports whether the dispatcher currently has a live broker
// connection.
func (d *Dispatcher) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Start connects to the MQTT broker and blocks until ctx is cancelled.
// On every (re-)connect it resubscribes to all registered topics at QoS 2.
func (d *Dispatcher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(d.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	willTopic := d.clientID + "/status"

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: d.cfg.Username,
		ConnectPassword: []byte(d.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   willTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			d.mu.Lock()
			d.connected = true
			d.mu.Unlock()
			d.logger.Info("mqtt connected to broker", "broker", d.cfg.Broker)
			subCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			d.resubscribe(subCtx, cm)

			d.mu.Lock()
			fn := d.onFirstConnect
			d.mu.Unlock()
			if fn != nil {
				d.firstConnectOnce.Do(fn)
			}
		},
		OnConnectError: func(err error) {
			d.mu.Lock()
			d.connected = false
			d.mu.Unlock()
			d.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: d.clientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	d.cm = cm

	cm.AddOnPublishReceived(func(pr autopaho.PublishReceived) (bool, error) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("mqtt message handler panicked",
						"topic", pr.Packet.Topic, "panic", r)
				}
			}()
			d.DispatchOne(pr.Packet.Topic, string(pr.Packet.Payload))
		}()
		return true, nil
	})

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		d.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	<-ctx.Done()
	return nil
}

// Stop disconnects from the broker. The provided context bounds how long
// to wait for a clean disconnect.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.connected = false
	cm := d.cm
	d.mu.Unlock()
	if cm == nil {
		return nil
	}
	return cm.Disconnect(ctx)
}

// Publish sends payload to topic fire-and-forget: if currently
// disconnected the publish is silently dropped (matching spec.md §4.12 and
// §7 — publish never blocks on reconnection).
func (d *Dispatcher) Publish(topic, payload string) {
	d.mu.Lock()
	cm := d.cm
	connected := d.connected
	d.mu.Unlock()

	if cm == nil || !connected {
		d.logger.Debug("mqtt publish dropped, not connected", "topic", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: []byte(payload),
		QoS:     0,
	}); err != nil {
		d.logger.Debug("mqtt publish failed", "topic", topic, "error", err)
	}
}

func (d *Dispatcher) resubscribe(ctx context.Context, cm *autopaho.ConnectionManager) {
	d.mu.Lock()
	if len(d.topics) == 0 {
		d.mu.Unlock()
		return
	}
	subs := make([]paho.SubscribeOptions, 0, len(d.topics))
	names := make([]string, 0, len(d.topics))
	for topic := range d.topics {
		subs = append(subs, paho.SubscribeOptions{Topic: topic, QoS: 2})
		names = append(names, topic)
	}
	d.mu.Unlock()

	if _, err := cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		d.logger.Error("mqtt subscribe failed", "error", err, "topics", names)
	} else {
		d.logger.Info("mqtt subscribed to topics", "topics", names)
	}
}
