package publisher

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
)

// EphemeralPublisher opens a fresh broker connection for every publish and
// closes it afterwards. The whole connect-publish-disconnect sequence is
// bounded by the configured timeout; exceeding it yields
// [shared.ErrPublishTimeout] regardless of connection state.
type EphemeralPublisher struct {
	cfg     shared.BrokerConfig
	timeout time.Duration
}

// NewEphemeral creates an [EphemeralPublisher] for the broker config.
func NewEphemeral(cfg shared.BrokerConfig) *EphemeralPublisher {
	return &EphemeralPublisher{cfg: cfg, timeout: timeoutFor(cfg)}
}

// Publish connects, publishes the snapshot once, and disconnects.
func (p *EphemeralPublisher) Publish(ctx context.Context, snapshot *models.PlaybackSnapshot) error {
	payload, err := encode(snapshot)
	if err != nil {
		return err
	}

	// Unique client id per attempt so a lingering half-closed session on the
	// broker never rejects the next cycle.
	clientID := p.cfg.ClientID
	if clientID == "" {
		clientID = "prism-publisher"
	}
	clientID = fmt.Sprintf("%s-%d", clientID, time.Now().UnixNano())

	client := mqtt.NewClient(clientOptions(p.cfg, clientID).SetConnectTimeout(p.timeout))
	defer client.Disconnect(250)

	// Connect and publish share one deadline; time spent connecting comes
	// out of the publish budget.
	deadline := time.Now().Add(p.timeout)

	connect := client.Connect()
	if !waitUntil(connect, deadline) {
		return fmt.Errorf("%w: broker connect exceeded %s", shared.ErrPublishTimeout, p.timeout)
	}
	if err := connect.Error(); err != nil {
		return fmt.Errorf("%w: connect: %v", shared.ErrPublishFailed, err)
	}

	pub := client.Publish(p.cfg.Topic, byte(p.cfg.QoS), false, payload)
	if !waitUntil(pub, deadline) {
		return fmt.Errorf("%w: no ack within %s", shared.ErrPublishTimeout, p.timeout)
	}
	if err := pub.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPublishFailed, err)
	}

	return nil
}

// waitUntil waits on a token for whatever budget remains before the deadline.
func waitUntil(token mqtt.Token, deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	return token.WaitTimeout(remaining)
}

// Close is a no-op; every connection is already closed after its publish.
func (p *EphemeralPublisher) Close() {}
