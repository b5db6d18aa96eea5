package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

const messageColumns = `id, thread_id, sender_id, recipient_id, body, attachments,
    delivered_at, read_at, created_at`

// MessageRepository defines interactions for thread messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, threadID, senderID, recipientID int64, body string, attachments []string, preview, recipientSide string) (models.Message, error)
	ListMessages(ctx context.Context, threadID int64, before *time.Time, limit int) ([]models.Message, error)
	MarkDelivered(ctx context.Context, messageID int64, at time.Time) error
	MarkThreadRead(ctx context.Context, threadID, readerID int64, readerSide string, at time.Time) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage inserts the message and applies the thread's counter,
// preview and last-activity update in one transaction, so a crash never
// leaves the counter moved without the message existing or vice versa.
func (r *MessageRepo) CreateMessage(ctx context.Context, threadID, senderID, recipientID int64, body string, attachments []string, preview, recipientSide string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	if attachments == nil {
		attachments = []string{}
	}

	var msg models.Message
	err = tx.GetContext(ctx, &msg, `INSERT INTO messages (thread_id, sender_id, recipient_id, body, attachments)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+messageColumns, threadID, senderID, recipientID, body, pq.StringArray(attachments))
	if err != nil {
		return models.Message{}, err
	}

	// The unread counter moves by an atomic delta against the stored value,
	// never a read-modify-write of a stale copy.
	counter := "unread_for_landlord"
	if recipientSide == models.RoleTenant {
		counter = "unread_for_tenant"
	}
	_, err = tx.ExecContext(ctx, `UPDATE threads
        SET last_message_at=$2, last_message_preview=$3, `+counter+` = `+counter+` + 1
        WHERE id=$1`, threadID, msg.CreatedAt, preview)
	if err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns one reverse-chronological page before the cursor,
// re-ordered oldest to newest for display.
func (r *MessageRepo) ListMessages(ctx context.Context, threadID int64, before *time.Time, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE thread_id=$1 AND ($2::timestamptz IS NULL OR created_at < $2)
        ORDER BY created_at DESC, id DESC
        LIMIT $3`, threadID, before, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkDelivered stamps delivered_at once; a message already delivered is
// left untouched.
func (r *MessageRepo) MarkDelivered(ctx context.Context, messageID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET delivered_at=$2
        WHERE id=$1 AND delivered_at IS NULL`, messageID, at)
	return err
}

// MarkThreadRead stamps read_at on every unread message addressed to the
// reader and resets the reader-side counter to the recomputed unread count
// in one transaction. Message state is the system of record, the counter a
// display optimization, so any counter drift heals here on every open.
// Returns the number of messages newly stamped.
func (r *MessageRepo) MarkThreadRead(ctx context.Context, threadID, readerID int64, readerSide string, at time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE messages SET read_at=$3
        WHERE thread_id=$1 AND recipient_id=$2 AND read_at IS NULL`, threadID, readerID, at)
	if err != nil {
		return 0, err
	}
	stamped, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	remaining, err := countUnread(ctx, tx, threadID, readerID)
	if err != nil {
		return 0, err
	}

	counter := "unread_for_landlord"
	if readerSide == models.RoleTenant {
		counter = "unread_for_tenant"
	}
	if _, err := tx.ExecContext(ctx, `UPDATE threads SET `+counter+` = $2 WHERE id=$1`, threadID, remaining); err != nil {
		return 0, err
	}

	return stamped, tx.Commit()
}

func countUnread(ctx context.Context, q sqlx.QueryerContext, threadID, recipientID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM messages
        WHERE thread_id=$1 AND recipient_id=$2 AND read_at IS NULL`, threadID, recipientID)
	return count, err
}
