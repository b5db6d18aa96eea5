package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/auth"
	"messaging-service/internal/chat"
	"messaging-service/internal/observability"
)

// Handler upgrades live-channel connections and runs their session.
type Handler struct {
	hub      *Hub
	svc      *chat.Service
	verifier *auth.Verifier
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, svc *chat.Service, verifier *auth.Verifier) *Handler {
	return &Handler{hub: hub, svc: svc, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, upgrades the connection and registers
// it in the presence registry until the peer disconnects.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}

	ident, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      ident.UserID,
		Role:        ident.Role,
		DeviceID:    deviceIDFromRequest(c.Request),
		IP:          ipFromRequest(c.Request),
		RequestID:   requestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	client := newClient(h.hub, h.svc, conn, info)
	h.hub.Register(client)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.messaging", connEnvelope(info, "ws_connect", 0, ""),
		observability.BuildHeaders(info.RequestID, info.TraceID))

	go client.writePump()
	go func() {
		closeReason := client.readPump()

		h.hub.Unregister(client)
		client.shutdown()

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(context.Background(), "ws_events.messaging",
			connEnvelope(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			observability.BuildHeaders(info.RequestID, info.TraceID))
	}()
}

func (h *Handler) validateToken(header string) (auth.Identity, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return h.verifier.Verify(parts[1])
	}
	return auth.Identity{}, fmt.Errorf("invalid token")
}

func connEnvelope(info ConnInfo, event string, durationMS int64, reason string) observability.EventEnvelope {
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"role":      info.Role,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}
}
