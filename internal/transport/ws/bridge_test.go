package ws

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeDeliversForeignEnvelopes(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	c := newTestClient(hub, user)
	hub.Join(c)

	b := &RedisBridge{hub: hub, origin: "instance-a"}
	payload, err := json.Marshal(bridgeEnvelope{
		Origin:     "instance-b",
		ReceiverID: user,
		Data:       json.RawMessage(`{"type":"pong"}`),
	})
	require.NoError(t, err)

	b.handle(payload)

	assert.Equal(t, EventTypePong, receive(t, c).Type)
}

func TestBridgeSkipsOwnEnvelopes(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	c := newTestClient(hub, user)
	hub.Join(c)

	b := &RedisBridge{hub: hub, origin: "instance-a"}
	payload, err := json.Marshal(bridgeEnvelope{
		Origin:     "instance-a",
		ReceiverID: user,
		Data:       json.RawMessage(`{"type":"pong"}`),
	})
	require.NoError(t, err)

	b.handle(payload)
	b.handle([]byte("not json"))

	assertNothing(t, c)
}
