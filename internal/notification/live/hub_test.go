package live

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string) LiveNotification {
	return LiveNotification{NotificationID: id, Type: "GATEPASS_ISSUED", Title: "Pass issued"}
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "emp:7", EmpChannel(7))
	assert.Equal(t, "role:reception", RoleChannel(" Reception "))
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()

	first, backlog, err := hub.Subscribe(EmpChannel(7))
	require.NoError(t, err)
	defer first.Close()
	assert.Empty(t, backlog)

	second, _, err := hub.Subscribe(EmpChannel(7))
	require.NoError(t, err)
	defer second.Close()

	hub.Publish(EmpChannel(7), event("n1"))

	assert.Equal(t, "n1", (<-first.Events()).NotificationID)
	assert.Equal(t, "n1", (<-second.Events()).NotificationID)
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.Publish(EmpChannel(7), event("n1"))
	hub.Publish("", event("n2"))

	// A later subscriber starts fresh; nothing buffered before the
	// channel existed.
	sub, backlog, err := hub.Subscribe(EmpChannel(7))
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)
}

func TestSubscribeReplaysRecentEvents(t *testing.T) {
	hub := NewHub()

	warm, _, err := hub.Subscribe(RoleChannel("RECEPTION"))
	require.NoError(t, err)
	defer warm.Close()

	for i := 0; i < DefaultBufferSize+10; i++ {
		hub.Publish(RoleChannel("RECEPTION"), event(fmt.Sprintf("n%d", i)))
	}

	late, backlog, err := hub.Subscribe(RoleChannel("RECEPTION"))
	require.NoError(t, err)
	defer late.Close()

	require.Len(t, backlog, DefaultBufferSize)
	assert.Equal(t, fmt.Sprintf("n%d", 10), backlog[0].NotificationID)
	assert.Equal(t, fmt.Sprintf("n%d", DefaultBufferSize+9), backlog[len(backlog)-1].NotificationID)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()

	sub, _, err := hub.Subscribe(EmpChannel(7))
	require.NoError(t, err)
	defer sub.Close()

	// Never drained; publishes beyond the subscriber buffer must not block.
	for i := 0; i < DefaultSubscriberBuffer*3; i++ {
		hub.Publish(EmpChannel(7), event(fmt.Sprintf("n%d", i)))
	}

	assert.Len(t, sub.Events(), DefaultSubscriberBuffer)
	assert.Equal(t, "n0", (<-sub.Events()).NotificationID)
}

func TestCloseIsIdempotent(t *testing.T) {
	hub := NewHub()

	sub, _, err := hub.Subscribe(EmpChannel(7))
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	// Publishing after the last subscriber left reaches nobody.
	hub.Publish(EmpChannel(7), event("n1"))
	select {
	case got, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event after close: %s", got.NotificationID)
		}
	default:
	}

	var nilSub *Subscription
	nilSub.Close()
	assert.Nil(t, nilSub.Events())
}

func TestSubscribeValidation(t *testing.T) {
	hub := NewHub()
	_, _, err := hub.Subscribe("  ")
	assert.Error(t, err)

	var nilHub *Hub
	_, _, err = nilHub.Subscribe(EmpChannel(1))
	assert.Error(t, err)
	nilHub.Publish(EmpChannel(1), event("n1"))
}
