// Package alerts forwards emergency events to an MQTT broker so off-robot
// systems can react to safety triggers. Publishing is best-effort; a broker
// outage never blocks the interlock's trigger path.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/eclipse/paho.golang/paho/session/state"

	"github.com/teslashibe/go-sarus/internal/log"
	"github.com/teslashibe/go-sarus/pkg/safety"
)

// Config for the MQTT alert publisher. An empty Broker disables alerts.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      int
}

func DefaultConfig() Config {
	return Config{
		Topic:    "sarus/alerts",
		ClientID: "sarus-robot",
		QoS:      1,
	}
}

// Publisher is the interlock's alert sink.
type Publisher interface {
	// PublishEvent forwards one emergency event. Never blocks the caller
	// for long; delivery is best-effort.
	PublishEvent(ev safety.Event)

	// Close disconnects from the broker.
	Close() error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ev safety.Event) {}

func (NopPublisher) Close() error { return nil }

// MQTTPublisher publishes emergency events over MQTT with automatic
// reconnection.
type MQTTPublisher struct {
	cfg    Config
	cm     *autopaho.ConnectionManager
	cancel context.CancelFunc
	logger *slog.Logger
	events chan safety.Event
}

// NewMQTT connects to the broker and starts the delivery loop. The
// returned publisher reconnects on its own until Close.
func NewMQTT(ctx context.Context, cfg Config) (*MQTTPublisher, error) {
	serverURL, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("alerts: parse broker url: %w", err)
	}

	logger := log.Component("alerts")
	ctx, cancel := context.WithCancel(ctx)

	p := &MQTTPublisher{
		cfg:    cfg,
		cancel: cancel,
		logger: logger,
		events: make(chan safety.Event, 32),
	}

	clientCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     60,
		CleanStartOnInitialConnection: false,
		SessionExpiryInterval:         60,
		ReconnectBackoff:              autopaho.NewConstantBackoff(5 * time.Second),
		OnConnectionUp: func(cm *autopaho.ConnectionManager, c *paho.Connack) {
			logger.Info("mqtt connection up", "broker", cfg.Broker)
		},
		OnConnectError: func(err error) {
			logger.Warn("mqtt connect error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			Session:  state.NewInMemory(),
			OnClientError: func(err error) {
				logger.Warn("mqtt client error", "error", err)
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, clientCfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("alerts: connect: %w", err)
	}
	p.cm = cm

	go p.deliverLoop(ctx)
	return p, nil
}

// PublishEvent queues an event for delivery. A full queue drops the
// event; every emergency is also logged locally by the interlock.
func (p *MQTTPublisher) PublishEvent(ev safety.Event) {
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("alert queue full, dropping event", "kind", ev.Kind)
	}
}

func (p *MQTTPublisher) deliverLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			p.deliver(ctx, ev)
		}
	}
}

func (p *MQTTPublisher) deliver(ctx context.Context, ev safety.Event) {
	if err := p.cm.AwaitConnection(ctx); err != nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("encode event", "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := p.cm.Publish(pubCtx, &paho.Publish{
		QoS:     byte(p.cfg.QoS),
		Topic:   p.cfg.Topic,
		Payload: payload,
	}); err != nil {
		p.logger.Warn("publish failed", "kind", ev.Kind, "error", err)
		return
	}
	p.logger.Info("alert published", "kind", ev.Kind, "topic", p.cfg.Topic)
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.cm.Disconnect(shutdownCtx)
}

var (
	_ Publisher = (*MQTTPublisher)(nil)
	_ Publisher = NopPublisher{}
)
