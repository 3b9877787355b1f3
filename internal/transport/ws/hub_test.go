package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chronofeed/internal/domain"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return NewClient(hub, nil, userID)
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var evt Event
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event: %s", data)
	default:
	}
}

func textEvent(t *testing.T, sender, receiver uuid.UUID, text string) *Event {
	t.Helper()
	evt, err := NewEvent(EventTypeReceiveMessage, ReceiveMessagePayload{
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    domain.Content{Text: text},
	})
	require.NoError(t, err)
	return evt
}

func TestHubRelayReachesEveryConnectionOfReceiver(t *testing.T) {
	hub := NewHub()
	alice, bob := uuid.New(), uuid.New()

	bobTab1 := newTestClient(hub, bob)
	bobTab2 := newTestClient(hub, bob)
	aliceConn := newTestClient(hub, alice)
	hub.Join(bobTab1)
	hub.Join(bobTab2)
	hub.Join(aliceConn)

	delivered := hub.Relay(bob, textEvent(t, alice, bob, "hi"))

	assert.Equal(t, 2, delivered)
	for _, c := range []*Client{bobTab1, bobTab2} {
		evt := receive(t, c)
		assert.Equal(t, EventTypeReceiveMessage, evt.Type)
		var p ReceiveMessagePayload
		require.NoError(t, json.Unmarshal(evt.Payload, &p))
		assert.Equal(t, alice, p.SenderID)
		assert.Equal(t, "hi", p.Content.Text)
	}
	assertNothing(t, aliceConn)
}

func TestHubRelayToAbsentReceiverIsDropped(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Relay(uuid.New(), textEvent(t, uuid.New(), uuid.New(), "anyone?")))
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	c := newTestClient(hub, user)

	hub.Join(c)
	hub.Join(c)

	assert.Equal(t, 1, hub.RoomSize(user))
}

func TestHubLeaveDeletesEmptyRoom(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	c1, c2 := newTestClient(hub, user), newTestClient(hub, user)
	hub.Join(c1)
	hub.Join(c2)

	hub.Leave(c1)
	assert.Equal(t, 1, hub.RoomSize(user))

	hub.Leave(c2)
	assert.Equal(t, 0, hub.RoomSize(user))
	hub.mu.RLock()
	_, exists := hub.rooms[user]
	hub.mu.RUnlock()
	assert.False(t, exists)

	select {
	case <-c2.done:
	default:
		t.Fatal("client was not closed on leave")
	}

	// Leaving again must not panic on the closed channel.
	hub.Leave(c2)
}

func TestHubDropsConnectionWithFullBuffer(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	slow := newTestClient(hub, user)
	fast := newTestClient(hub, user)
	hub.Join(slow)
	hub.Join(fast)

	for range sendBufSize {
		slow.send <- []byte(`{}`)
	}

	delivered := hub.Relay(user, textEvent(t, uuid.New(), user, "overflow"))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.RoomSize(user))
	evt := receive(t, fast)
	assert.Equal(t, EventTypeReceiveMessage, evt.Type)
}

type recordingBridge struct {
	receivers []uuid.UUID
}

func (b *recordingBridge) Publish(_ context.Context, receiverID uuid.UUID, _ []byte) error {
	b.receivers = append(b.receivers, receiverID)
	return nil
}

func TestHubRelayPublishesToBridge(t *testing.T) {
	hub := NewHub()
	bridge := &recordingBridge{}
	hub.SetBridge(bridge)

	receiver := uuid.New()
	hub.Relay(receiver, textEvent(t, uuid.New(), receiver, "elsewhere"))

	assert.Equal(t, []uuid.UUID{receiver}, bridge.receivers)
}

func TestHubShutdownClosesAllConnections(t *testing.T) {
	hub := NewHub()
	a, b := newTestClient(hub, uuid.New()), newTestClient(hub, uuid.New())
	hub.Join(a)
	hub.Join(b)

	hub.Shutdown()

	assert.Zero(t, hub.RoomSize(a.userID))
	assert.Zero(t, hub.RoomSize(b.userID))
	for _, c := range []*Client{a, b} {
		select {
		case <-c.done:
		default:
			t.Fatal("client was not closed on shutdown")
		}
	}
}

func TestHubDeliverLocalWhileJoining(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	// Below the buffer size so no connection is evicted.
	const n = sendBufSize - 1

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range n {
			hub.Join(newTestClient(hub, user))
		}
	}()
	go func() {
		defer wg.Done()
		for range n {
			hub.DeliverLocal(user, []byte(`{}`))
		}
	}()
	wg.Wait()

	assert.Equal(t, n, hub.RoomSize(user))
}
