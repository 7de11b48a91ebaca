package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(seq uint64) Event {
	return Event{Type: TypeResumed, Resumed: time.Duration(seq).String()}
}

func TestBroadcastOrder(t *testing.T) {
	b := NewBroadcaster(8)
	sub := b.Subscribe()

	for i := 0; i < 5; i++ {
		b.Publish(testEvent(uint64(i)))
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e, err := sub.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, testEvent(uint64(i)), e)
	}
}

func TestSubscribersAreIndependent(t *testing.T) {
	b := NewBroadcaster(8)
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(testEvent(1))
	b.Publish(testEvent(2))

	ctx := context.Background()
	e, err := a.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, testEvent(1), e)

	// c is at its own position, unaffected by a's reads.
	e, err = c.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, testEvent(1), e)
}

func TestSubscribeOnlySeesFutureEvents(t *testing.T) {
	b := NewBroadcaster(8)
	b.Publish(testEvent(1))

	sub := b.Subscribe()
	b.Publish(testEvent(2))

	e, err := sub.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testEvent(2), e)
}

func TestSlowSubscriberLags(t *testing.T) {
	b := NewBroadcaster(4)
	sub := b.Subscribe()

	// Overflow the ring: the first events are overwritten.
	for i := 0; i < 10; i++ {
		b.Publish(testEvent(uint64(i)))
	}

	_, err := sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrSlowSubscriber)

	// After the lag signal the cursor sits at the oldest retained event.
	e, err := sub.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testEvent(6), e)
}

func TestRecvBlocksUntilPublish(t *testing.T) {
	b := NewBroadcaster(4)
	sub := b.Subscribe()

	done := make(chan Event, 1)
	go func() {
		e, err := sub.Recv(context.Background())
		if err == nil {
			done <- e
		}
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(testEvent(7))

	select {
	case e := <-done:
		assert.Equal(t, testEvent(7), e)
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake on publish")
	}
}

func TestRecvHonoursContext(t *testing.T) {
	b := NewBroadcaster(4)
	sub := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseDrainsThenFails(t *testing.T) {
	b := NewBroadcaster(4)
	sub := b.Subscribe()

	b.Publish(testEvent(1))
	b.Close()

	e, err := sub.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testEvent(1), e)

	_, err = sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrBusClosed)

	// Publishing after close is a no-op rather than a panic.
	b.Publish(testEvent(2))
	_, err = sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrBusClosed)
}
