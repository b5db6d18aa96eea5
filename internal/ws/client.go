package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/chat"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

const (
	// egressBuffer bounds each connection's outbound queue; a consumer that
	// falls further behind loses pushes and re-syncs over REST.
	egressBuffer = 64
	opTimeout    = 10 * time.Second
)

// Client is one live connection. All outbound traffic goes through the send
// queue and a single write pump, so fan-out to one connection can never
// block fan-out to another.
type Client struct {
	hub  *Hub
	svc  *chat.Service
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	info ConnInfo
}

func newClient(hub *Hub, svc *chat.Service, conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		hub:  hub,
		svc:  svc,
		conn: conn,
		send: make(chan []byte, egressBuffer),
		done: make(chan struct{}),
		info: info,
	}
}

// Enqueue queues an event for the connection without blocking. Events for a
// full queue are dropped and counted.
func (c *Client) Enqueue(event models.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws marshal error: %v", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- payload:
	default:
		observability.IncWSDropped()
		log.Printf("ws egress queue full, dropping %s for conn %s", event.Type, c.info.ConnID)
	}
}

func (c *Client) shutdown() {
	close(c.done)
	c.conn.Close()
}

func (c *Client) writePump() {
	for {
		select {
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump consumes client events until the connection drops and returns
// the close reason.
func (c *Client) readPump() string {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err.Error()
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.Enqueue(models.ServerEvent{Type: models.EventError, Error: &models.ErrorNote{
				Code:    "validation_failed",
				Message: "malformed event",
			}})
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev models.ClientEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	observability.IncWSEvent(ev.Type)

	switch ev.Type {
	case models.EventThreadJoin:
		// Membership is verified and failures are swallowed so a probe
		// cannot enumerate which threads exist.
		if _, err := c.svc.ThreadForParticipant(ctx, ev.ThreadID, c.info.UserID); err != nil {
			return
		}
		c.hub.JoinThread(ev.ThreadID, c)

	case models.EventThreadLeave:
		c.hub.LeaveThread(ev.ThreadID, c)

	case models.EventThreadOpen:
		if _, err := c.svc.ThreadForParticipant(ctx, ev.ThreadID, c.info.UserID); err != nil {
			return
		}
		c.hub.JoinThread(ev.ThreadID, c)
		if _, err := c.svc.MarkThreadRead(ctx, c.info.UserID, ev.ThreadID); err != nil {
			log.Printf("thread open read-mark failed for thread %d: %v", ev.ThreadID, err)
		}

	case models.EventMessageSend:
		msg, err := c.svc.SendMessage(ctx, c.info.UserID, ev.ThreadID, ev.Body, ev.Attachments)
		if err != nil {
			c.Enqueue(models.ServerEvent{Type: models.EventError, Ref: ev.Ref, Error: &models.ErrorNote{
				Code:    chat.ErrorCode(err),
				Message: err.Error(),
			}})
			return
		}
		c.Enqueue(models.ServerEvent{Type: models.EventAck, Ref: ev.Ref, Message: &msg})

	case models.EventTyping:
		if !c.hub.InRoom(ev.ThreadID, c) {
			return
		}
		c.hub.BroadcastToThreadExcept(ev.ThreadID, c, models.ServerEvent{Type: models.EventTyping, Typing: &models.TypingNote{
			ThreadID: ev.ThreadID,
			UserID:   c.info.UserID,
			IsTyping: ev.IsTyping,
		}})

	default:
		c.Enqueue(models.ServerEvent{Type: models.EventError, Ref: ev.Ref, Error: &models.ErrorNote{
			Code:    "validation_failed",
			Message: "unknown event type",
		}})
	}
}
