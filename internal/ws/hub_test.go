package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func testClient(hub *Hub, userID int64) *Client {
	return newClient(hub, nil, nil, ConnInfo{ConnID: "test", UserID: userID})
}

func drainOne(t *testing.T, c *Client) models.ServerEvent {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev models.ServerEvent
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	default:
		t.Fatal("expected a queued event")
		return models.ServerEvent{}
	}
}

func TestPresenceTracksConnections(t *testing.T) {
	hub := NewHub()
	first := testClient(hub, 1)
	second := testClient(hub, 1)

	assert.False(t, hub.UserOnline(1))

	hub.Register(first)
	hub.Register(second)
	assert.True(t, hub.UserOnline(1))

	hub.Unregister(first)
	assert.True(t, hub.UserOnline(1), "one connection still open")

	hub.Unregister(second)
	assert.False(t, hub.UserOnline(1), "presence key must vanish with the last connection")
}

func TestJoinAndLeaveThread(t *testing.T) {
	hub := NewHub()
	c := testClient(hub, 1)
	hub.Register(c)

	assert.False(t, hub.InRoom(5, c))
	hub.JoinThread(5, c)
	hub.JoinThread(5, c)
	assert.True(t, hub.InRoom(5, c))

	hub.LeaveThread(5, c)
	assert.False(t, hub.InRoom(5, c))
}

func TestUnregisterSweepsRooms(t *testing.T) {
	hub := NewHub()
	c := testClient(hub, 1)
	hub.Register(c)
	hub.JoinThread(5, c)
	hub.JoinThread(6, c)

	hub.Unregister(c)

	assert.False(t, hub.InRoom(5, c))
	assert.False(t, hub.InRoom(6, c))
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub()
	member := testClient(hub, 1)
	outsider := testClient(hub, 2)
	hub.Register(member)
	hub.Register(outsider)
	hub.JoinThread(5, member)

	hub.BroadcastToThread(5, models.ServerEvent{Type: models.EventMessageNew})

	ev := drainOne(t, member)
	assert.Equal(t, models.EventMessageNew, ev.Type)
	assert.Empty(t, outsider.send)
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	hub := NewHub()
	typist := testClient(hub, 1)
	listener := testClient(hub, 2)
	hub.Register(typist)
	hub.Register(listener)
	hub.JoinThread(5, typist)
	hub.JoinThread(5, listener)

	hub.BroadcastToThreadExcept(5, typist, models.ServerEvent{Type: models.EventTyping})

	ev := drainOne(t, listener)
	assert.Equal(t, models.EventTyping, ev.Type)
	assert.Empty(t, typist.send)
}

func TestDeliverToUserCountsConnections(t *testing.T) {
	hub := NewHub()
	phone := testClient(hub, 1)
	laptop := testClient(hub, 1)
	hub.Register(phone)
	hub.Register(laptop)

	reached := hub.DeliverToUser(1, models.ServerEvent{Type: models.EventThreadPoke})

	assert.Equal(t, 2, reached)
	assert.Equal(t, models.EventThreadPoke, drainOne(t, phone).Type)
	assert.Equal(t, models.EventThreadPoke, drainOne(t, laptop).Type)

	assert.Equal(t, 0, hub.DeliverToUser(42, models.ServerEvent{Type: models.EventThreadPoke}))
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()
	c := testClient(hub, 1)

	for i := 0; i < egressBuffer+10; i++ {
		c.Enqueue(models.ServerEvent{Type: models.EventMessageNew})
	}

	assert.Len(t, c.send, egressBuffer, "overflow must be dropped, not block")
}
