package models

import "time"

// Client-to-server event types.
const (
	EventThreadJoin  = "thread:join"
	EventThreadLeave = "thread:leave"
	EventThreadOpen  = "thread:open"
	EventMessageSend = "message:send"
	EventTyping      = "typing"
)

// Server-to-client event types.
const (
	EventMessageNew       = "message:new"
	EventMessageDelivered = "message:delivered"
	EventBulkRead         = "message:read:bulk"
	EventThreadPoke       = "thread:poke"
	EventAck              = "ack"
	EventError            = "error"
)

// ClientEvent is the envelope read from a websocket connection.
type ClientEvent struct {
	Type        string   `json:"type"`
	ThreadID    int64    `json:"thread_id,omitempty"`
	Body        string   `json:"body,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	IsTyping    bool     `json:"is_typing,omitempty"`
	// Ref is an opaque client tag echoed back on ack/error so the client
	// can reconcile an optimistic local placeholder.
	Ref string `json:"ref,omitempty"`
}

// ServerEvent is the envelope broadcast through websocket connections.
type ServerEvent struct {
	Type     string        `json:"type"`
	Ref      string        `json:"ref,omitempty"`
	Message  *Message      `json:"message,omitempty"`
	Delivery *DeliveryNote `json:"delivery,omitempty"`
	Read     *BulkRead     `json:"read,omitempty"`
	Typing   *TypingNote   `json:"typing,omitempty"`
	Poke     *ThreadPoke   `json:"poke,omitempty"`
	Error    *ErrorNote    `json:"error,omitempty"`
}

// DeliveryNote tells room listeners a message reached a live recipient.
type DeliveryNote struct {
	ThreadID    int64     `json:"thread_id"`
	MessageID   int64     `json:"message_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// BulkRead tells room listeners the reader stamped everything addressed
// to them in the thread.
type BulkRead struct {
	ThreadID int64     `json:"thread_id"`
	ReaderID int64     `json:"reader_id"`
	ReadAt   time.Time `json:"read_at"`
}

// TypingNote is the ephemeral typing indicator. No delivery guarantee;
// receivers time out their indicator on their own.
type TypingNote struct {
	ThreadID int64 `json:"thread_id"`
	UserID   int64 `json:"user_id"`
	IsTyping bool  `json:"is_typing"`
}

// ThreadPoke nudges a recipient that a thread has new activity.
type ThreadPoke struct {
	ThreadID int64     `json:"thread_id"`
	From     int64     `json:"from"`
	At       time.Time `json:"at"`
}

// ErrorNote is a structured failure returned to the calling connection.
type ErrorNote struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
