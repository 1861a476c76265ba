package vault

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/pkg/plugin"
)

// Event topics emitted by the vault module. Payloads carry identifiers
// only, never credential material.
const (
	EventCredentialCreated = "vault.credential.created"
	EventCredentialUpdated = "vault.credential.updated"
	EventCredentialDeleted = "vault.credential.deleted"
	EventTokenRegenerated  = "vault.token.regenerated"
)

// busPublisher adapts the plugin event bus to the service's publisher.
// Publish failures are logged, not surfaced; events are advisory.
type busPublisher struct {
	bus    plugin.Publisher
	logger *zap.Logger
}

func newBusPublisher(bus plugin.Publisher, logger *zap.Logger) *busPublisher {
	return &busPublisher{bus: bus, logger: logger}
}

func (p *busPublisher) Publish(ctx context.Context, topic string, payload any) {
	if p.bus == nil {
		return
	}
	err := p.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "vault",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		p.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// nopPublisher discards events. Used in tests and before Init completes.
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}
