package models

import (
	"time"

	"github.com/lib/pq"
)

// Message is a single unit of communication inside a thread. It is immutable
// once created except for the two receipt timestamps, which transition from
// null to a value at most once.
type Message struct {
	ID          int64          `db:"id" json:"id"`
	ThreadID    int64          `db:"thread_id" json:"thread_id"`
	SenderID    int64          `db:"sender_id" json:"sender_id"`
	RecipientID int64          `db:"recipient_id" json:"recipient_id"`
	Body        string         `db:"body" json:"body"`
	Attachments pq.StringArray `db:"attachments" json:"attachments"`
	DeliveredAt *time.Time     `db:"delivered_at" json:"delivered_at"`
	ReadAt      *time.Time     `db:"read_at" json:"read_at"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
