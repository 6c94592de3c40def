package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/models"
)

func drain(t *testing.T, ch <-chan Message, want EventType) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed before %s", want)
		require.Equal(t, want, msg.Type)
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", want)
		return Message{}
	}
}

func TestSubscribe_SendsConnectedImmediately(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe := bus.Subscribe(ctx, "job-1")
	defer unsubscribe()

	drain(t, ch, EventTypeConnected)
}

func TestSubscribe_LateJoinerGetsSynthesizedSnapshot(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus.PublishStatusUpdate(&models.Job{ID: "job-2", Status: models.StatusProcessing})

	ch, unsubscribe := bus.Subscribe(ctx, "job-2")
	defer unsubscribe()

	drain(t, ch, EventTypeConnected)
	msg := drain(t, ch, EventTypeStatusUpdate)
	assert.Contains(t, string(msg.Data), "job-2")
}

func TestPublishStatusUpdate_ReachesExistingSubscriber(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe := bus.Subscribe(ctx, "job-3")
	defer unsubscribe()
	drain(t, ch, EventTypeConnected)

	bus.PublishStatusUpdate(&models.Job{ID: "job-3", Status: models.StatusDone})
	drain(t, ch, EventTypeStatusUpdate)
}

func TestPublishDone_RetiresTopic(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe := bus.Subscribe(ctx, "job-4")
	defer unsubscribe()
	drain(t, ch, EventTypeConnected)

	bus.PublishDone("job-4")
	drain(t, ch, EventTypeDone)

	bus.mu.Lock()
	_, exists := bus.topics["job-4"]
	bus.mu.Unlock()
	assert.False(t, exists)
}

func TestSend_DropsOldestWhenSubscriberIsSlow(t *testing.T) {
	ch := make(chan Message, 2)
	for i := 0; i < 5; i++ {
		send(ch, newMessage(EventTypeHeartbeat, heartbeatPayload{Type: EventTypeHeartbeat, JobID: "x"}))
	}
	assert.Len(t, ch, 2)
}
