package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string
}

func TestQueuePublishConsume(t *testing.T) {
	ctx := context.Background()
	q := NewQueue[payload](DefaultConfig())

	require.NoError(t, q.Publish(ctx, &payload{Value: "first"}))
	require.NoError(t, q.Publish(ctx, &payload{Value: "second"}))
	assert.Equal(t, 2, q.Size())

	msg, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", msg.T().Value)
	require.NoError(t, msg.Ack())
	assert.Error(t, msg.Ack())
}

func TestQueueConsumeHonoursContext(t *testing.T) {
	q := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// A producer must never wedge on a full buffer: with no consumer attached,
// publishing far past capacity evicts the oldest messages to the dead-letter
// queue and keeps the newest in the buffer.
func TestQueuePublishNeverBlocks(t *testing.T) {
	ctx := context.Background()
	q := NewQueue[payload](Config{MaxRetries: 0, RetryDelay: time.Millisecond, DeadLetter: true, QueueBuffer: 8})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 150; i++ {
			assert.NoError(t, q.Publish(ctx, &payload{Value: fmt.Sprintf("event-%d", i)}))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full buffer with no consumer")
	}

	assert.Equal(t, 8, q.Size())
	assert.Equal(t, 150-8, q.DLQSize())

	// the buffer holds the most recent events
	msg, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "event-142", msg.T().Value)
}

func TestQueuePublishDropsWithoutDeadLetter(t *testing.T) {
	ctx := context.Background()
	q := NewQueue[payload](Config{MaxRetries: 0, RetryDelay: time.Millisecond, DeadLetter: false, QueueBuffer: 4})

	for i := 0; i < 20; i++ {
		require.NoError(t, q.Publish(ctx, &payload{Value: "event"}))
	}
	assert.Equal(t, 4, q.Size())
	assert.Equal(t, 0, q.DLQSize())
}

func TestQueueNackDeadLetters(t *testing.T) {
	ctx := context.Background()
	q := NewQueue[payload](Config{MaxRetries: 0, RetryDelay: time.Millisecond, DeadLetter: true, QueueBuffer: 4})

	require.NoError(t, q.Publish(ctx, &payload{Value: "poison"}))
	msg, err := q.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, msg.Nack(assert.AnError))
	assert.Equal(t, 1, q.DLQSize())
}
