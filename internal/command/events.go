package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netcmd/netcmd/pkg/plugin"
)

// Event topics emitted by the command module.
const (
	EventCommandCreated     = "commands.command.created"
	EventCommandUpdated     = "commands.command.updated"
	EventCommandDeleted     = "commands.command.deleted"
	EventExecutionCompleted = "commands.execution.completed"
)

// EventPublisher is the subset of the event bus the command module
// emits on.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

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
		Source:    "commands",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		p.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}
