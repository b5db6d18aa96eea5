package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrThreadNotFound = errors.New("thread not found")

const threadColumns = `id, tenant_id, landlord_id, property_id, last_message_at,
    last_message_preview, unread_for_tenant, unread_for_landlord, created_at`

// ThreadRepository abstracts thread persistence.
type ThreadRepository interface {
	EnsureThread(ctx context.Context, tenantID, landlordID int64, propertyID *int64) (models.Thread, error)
	GetThread(ctx context.Context, threadID int64) (models.Thread, error)
	ListThreadsFor(ctx context.Context, userID int64) ([]models.Thread, error)
}

// ThreadRepo is a sqlx implementation of ThreadRepository.
type ThreadRepo struct {
	db *sqlx.DB
}

// NewThreadRepo constructs a ThreadRepo.
func NewThreadRepo(db *sqlx.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

// EnsureThread finds or creates the unique thread for the key. Concurrent
// calls are guarded by the store's uniqueness constraint; the loser of a
// creation race re-reads the winner's row.
func (r *ThreadRepo) EnsureThread(ctx context.Context, tenantID, landlordID int64, propertyID *int64) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread, `INSERT INTO threads (tenant_id, landlord_id, property_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (tenant_id, landlord_id, COALESCE(property_id, 0)) DO NOTHING
        RETURNING `+threadColumns, tenantID, landlordID, propertyID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, err
	}

	err = r.db.GetContext(ctx, &thread, `SELECT `+threadColumns+` FROM threads
        WHERE tenant_id=$1 AND landlord_id=$2 AND COALESCE(property_id, 0)=COALESCE($3::bigint, 0)`,
		tenantID, landlordID, propertyID)
	return thread, err
}

// GetThread fetches a thread by id.
func (r *ThreadRepo) GetThread(ctx context.Context, threadID int64) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread, `SELECT `+threadColumns+` FROM threads WHERE id=$1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// ListThreadsFor returns the user's threads, most recent activity first.
// Threads with no messages yet sort last, by creation time.
func (r *ThreadRepo) ListThreadsFor(ctx context.Context, userID int64) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.SelectContext(ctx, &threads, `SELECT `+threadColumns+` FROM threads
        WHERE tenant_id=$1 OR landlord_id=$1
        ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, userID)
	return threads, err
}
