package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribeSubject_OnlyDeliversMatchingSubject(t *testing.T) {
	bus := NewEventBus()
	alice := bus.SubscribeSubject("alice", TypeNewClaim)
	defer bus.Unsubscribe(alice)
	all := bus.Subscribe(TypeNewClaim)
	defer bus.Unsubscribe(all)

	bus.Emit(TypeNewClaim, "distributor/0", "bob", map[string]interface{}{"unlocked": 1})
	bus.Emit(TypeNewClaim, "distributor/0", "alice", map[string]interface{}{"unlocked": 2})

	select {
	case ev := <-alice:
		assert.Equal(t, "alice", ev.Subject)
	case <-time.After(time.Second):
		t.Fatal("expected alice's event to arrive")
	}
	select {
	case ev := <-alice:
		t.Fatalf("subject-scoped subscriber received an event for a different subject: %+v", ev)
	default:
	}

	received := 0
	for i := 0; i < 2; i++ {
		select {
		case <-all:
			received++
		case <-time.After(time.Second):
			t.Fatal("expected unscoped subscriber to see both events")
		}
	}
	assert.Equal(t, 2, received)
}

func TestEventBus_Unsubscribe_ClosesChannel(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TypeClaimed)
	bus.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestEventBus_Publish_DropsOnFullChannelWithoutBlocking(t *testing.T) {
	bus := NewEventBus()
	bus.bufferSize = 1
	ch := bus.Subscribe(TypeClawback)
	defer bus.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Emit(TypeClawback, "distributor/0", "", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

func TestNewCloudEvent_SetsCloudEventsEnvelope(t *testing.T) {
	ev := NewCloudEvent(TypeNewClaim, "distributor/7", "claimant-1", map[string]interface{}{"x": 1})
	require.Equal(t, "1.0", ev.SpecVersion)
	assert.Equal(t, TypeNewClaim, ev.Type)
	assert.Equal(t, "distributor/7", ev.Source)
	assert.Equal(t, "claimant-1", ev.Subject)
	assert.NotEmpty(t, ev.ID)

	sse, err := ev.SSEFormat()
	require.NoError(t, err)
	assert.Contains(t, string(sse), "event: "+TypeNewClaim)
}
