// package publisher serializes playback snapshots and delivers them to the
// visualizer's MQTT topic.
//
// Two strategies implement [Publisher]: ephemeral (connect, publish,
// disconnect per cycle) and persistent (one reconnecting connection shared
// across cycles). Delivery is at-most-once (QoS 0) or at-least-once (QoS 1);
// exactly-once is not provided. A failed publish is never retried within a
// cycle; the next cycle supersedes it with a fresh snapshot.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
)

// DefaultTimeout bounds each connect and publish attempt when the config
// does not set one.
const DefaultTimeout = 10 * time.Second

// Publisher delivers one snapshot to the configured topic.
type Publisher interface {
	Publish(ctx context.Context, snapshot *models.PlaybackSnapshot) error
	Close()
}

// New selects the publisher implementation named by the broker config.
func New(cfg shared.BrokerConfig) (Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: broker url is required", shared.ErrMissingConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: broker topic is required", shared.ErrMissingConfig)
	}

	switch cfg.Strategy {
	case "", "ephemeral":
		return NewEphemeral(cfg), nil
	case "persistent":
		return NewPersistent(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown publish strategy %q", shared.ErrInvalidConfig, cfg.Strategy)
	}
}

// clientOptions builds the shared paho options for a broker config.
func clientOptions(cfg shared.BrokerConfig, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().AddBroker(cfg.URL).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	return opts
}

func timeoutFor(cfg shared.BrokerConfig) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return DefaultTimeout
}

func encode(snapshot *models.PlaybackSnapshot) ([]byte, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return payload, nil
}
