package event

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netcmd/netcmd/pkg/plugin"
	"go.uber.org/zap"
)

func TestPublish_TopicAndWildcard(t *testing.T) {
	b := NewBus(zap.NewNop())

	var topicCalls, allCalls atomic.Int32
	b.Subscribe("vault.credential.created", func(ctx context.Context, e plugin.Event) {
		topicCalls.Add(1)
	})
	b.SubscribeAll(func(ctx context.Context, e plugin.Event) {
		allCalls.Add(1)
	})

	_ = b.Publish(context.Background(), plugin.Event{Topic: "vault.credential.created", Source: "vault"})
	_ = b.Publish(context.Background(), plugin.Event{Topic: "commands.executed", Source: "commands"})

	if got := topicCalls.Load(); got != 1 {
		t.Errorf("topic handler calls = %d, want 1", got)
	}
	if got := allCalls.Load(); got != 2 {
		t.Errorf("wildcard handler calls = %d, want 2", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus(zap.NewNop())

	var calls atomic.Int32
	unsub := b.Subscribe("t", func(ctx context.Context, e plugin.Event) { calls.Add(1) })
	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	unsub()
	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})

	if got := calls.Load(); got != 1 {
		t.Errorf("calls after unsubscribe = %d, want 1", got)
	}
}

func TestPublish_HandlerPanicIsContained(t *testing.T) {
	b := NewBus(zap.NewNop())

	b.Subscribe("t", func(ctx context.Context, e plugin.Event) { panic("boom") })
	var calls atomic.Int32
	b.Subscribe("t", func(ctx context.Context, e plugin.Event) { calls.Add(1) })

	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})

	if got := calls.Load(); got != 1 {
		t.Errorf("second handler calls = %d, want 1 (panic must not abort dispatch)", got)
	}
}

func TestPublishAsync(t *testing.T) {
	b := NewBus(zap.NewNop())

	done := make(chan struct{})
	b.Subscribe("t", func(ctx context.Context, e plugin.Event) { close(done) })

	b.PublishAsync(context.Background(), plugin.Event{Topic: "t"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler was not invoked")
	}
}
