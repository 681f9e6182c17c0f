package publisher

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
)

// PersistentPublisher maintains one long-lived broker connection across poll
// cycles, reconnecting with backoff when the link drops. While the link is
// down, Publish fails fast with [shared.ErrNotConnected] instead of blocking
// the poll cycle.
type PersistentPublisher struct {
	cfg     shared.BrokerConfig
	client  mqtt.Client
	timeout time.Duration
}

// NewPersistent creates a [PersistentPublisher] and starts connecting in the
// background. The initial connect retries until it succeeds, so construction
// never blocks on broker availability.
func NewPersistent(cfg shared.BrokerConfig) *PersistentPublisher {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("prism-publisher-%d", time.Now().UnixNano())
	}

	opts := clientOptions(cfg, clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(30 * time.Second)

	client := mqtt.NewClient(opts)
	client.Connect()

	return &PersistentPublisher{cfg: cfg, client: client, timeout: timeoutFor(cfg)}
}

// Publish sends the snapshot over the standing connection.
func (p *PersistentPublisher) Publish(ctx context.Context, snapshot *models.PlaybackSnapshot) error {
	payload, err := encode(snapshot)
	if err != nil {
		return err
	}

	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("%w: reconnect in progress", shared.ErrNotConnected)
	}

	pub := p.client.Publish(p.cfg.Topic, byte(p.cfg.QoS), false, payload)
	if !pub.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: no ack within %s", shared.ErrPublishTimeout, p.timeout)
	}
	if err := pub.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPublishFailed, err)
	}

	return nil
}

// Close tears down the standing connection.
func (p *PersistentPublisher) Close() {
	p.client.Disconnect(250)
}
