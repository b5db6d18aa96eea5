package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"messaging-service/internal/auth"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// previewLimit bounds the thread's last-message preview.
const previewLimit = 100

// Broadcaster is the live fan-out surface the service pushes into. The
// registry behind it is ephemeral and never a source of truth for delivery:
// only the persisted message matters for durability.
type Broadcaster interface {
	BroadcastToThread(threadID int64, event models.ServerEvent)
	DeliverToUser(userID int64, event models.ServerEvent) int
	UserOnline(userID int64) bool
}

// Service implements the messaging operations shared by the live gateway
// and the REST fallback, so both paths perform identical writes and return
// identical message representations.
type Service struct {
	threads   repositories.ThreadRepository
	messages  repositories.MessageRepository
	directory repositories.DirectoryRepository
	hub       Broadcaster
}

// NewService builds a Service.
func NewService(threads repositories.ThreadRepository, messages repositories.MessageRepository, directory repositories.DirectoryRepository, hub Broadcaster) *Service {
	return &Service{threads: threads, messages: messages, directory: directory, hub: hub}
}

// EnsureThread finds or creates the unique thread for the
// (tenant, landlord, property) key on behalf of requesterID.
func (s *Service) EnsureThread(ctx context.Context, requesterID, tenantID, landlordID int64, propertyID *int64) (models.Thread, error) {
	if requesterID != tenantID && requesterID != landlordID {
		return models.Thread{}, ErrForbidden
	}

	role, err := s.directory.UserRole(ctx, tenantID)
	if err != nil || role != models.RoleTenant {
		if err != nil && err != repositories.ErrUserNotFound {
			return models.Thread{}, err
		}
		return models.Thread{}, ErrInvalidTenant
	}
	role, err = s.directory.UserRole(ctx, landlordID)
	if err != nil || role != models.RoleLandlord {
		if err != nil && err != repositories.ErrUserNotFound {
			return models.Thread{}, err
		}
		return models.Thread{}, ErrInvalidLandlord
	}

	linked, err := s.directory.IsLinked(ctx, tenantID, landlordID, propertyID)
	if err != nil {
		return models.Thread{}, err
	}
	if !linked {
		return models.Thread{}, ErrNoRelationship
	}

	return s.threads.EnsureThread(ctx, tenantID, landlordID, propertyID)
}

// ListThreads returns the user's threads, most recent activity first.
func (s *Service) ListThreads(ctx context.Context, userID int64) ([]models.Thread, error) {
	return s.threads.ListThreadsFor(ctx, userID)
}

// ListPartners returns the caller's valid counterparts grouped with the
// properties relating them.
func (s *Service) ListPartners(ctx context.Context, ident auth.Identity) ([]models.Partner, error) {
	return s.directory.ListCounterparts(ctx, ident.UserID, ident.Role)
}

// ThreadForParticipant fetches a thread and enforces participancy.
func (s *Service) ThreadForParticipant(ctx context.Context, threadID, userID int64) (models.Thread, error) {
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		if err == repositories.ErrThreadNotFound {
			return models.Thread{}, ErrThreadNotFound
		}
		return models.Thread{}, err
	}
	if !thread.HasParticipant(userID) {
		return models.Thread{}, ErrForbidden
	}
	return thread, nil
}

// GetMessages returns one page of thread history ending before the cursor,
// ordered oldest to newest.
func (s *Service) GetMessages(ctx context.Context, userID, threadID int64, before *time.Time, limit int) ([]models.Message, error) {
	if _, err := s.ThreadForParticipant(ctx, threadID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}
	return s.messages.ListMessages(ctx, threadID, before, limit)
}

// SendMessage is the central write path: validate, persist message plus
// thread counters in one transaction, fan out to the thread room and
// directly to the recipient's live connections, stamping delivered_at the
// first time any recipient connection is observed live at send time.
func (s *Service) SendMessage(ctx context.Context, senderID, threadID int64, body string, attachments []string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" && len(attachments) == 0 {
		return models.Message{}, ErrEmptyMessage
	}

	thread, err := s.ThreadForParticipant(ctx, threadID, senderID)
	if err != nil {
		return models.Message{}, err
	}

	// Fail-closed: a revoked tenancy stops the conversation even though the
	// thread row still exists.
	linked, err := s.directory.IsLinked(ctx, thread.TenantID, thread.LandlordID, thread.PropertyID)
	if err != nil {
		return models.Message{}, err
	}
	if !linked {
		return models.Message{}, ErrNoRelationship
	}

	recipientID := thread.OtherParticipant(senderID)
	msg, err := s.messages.CreateMessage(ctx, threadID, senderID, recipientID, body, attachments,
		truncatePreview(body), thread.SideOf(recipientID))
	if err != nil {
		return models.Message{}, err
	}

	// Everything past the commit is best-effort: a client that missed a live
	// push still sees the message on its next fetch.
	s.hub.BroadcastToThread(threadID, models.ServerEvent{Type: models.EventMessageNew, Message: &msg})

	if s.hub.UserOnline(recipientID) {
		at := time.Now().UTC()
		if err := s.messages.MarkDelivered(ctx, msg.ID, at); err != nil {
			log.Printf("mark delivered failed for message %d: %v", msg.ID, err)
		} else {
			msg.DeliveredAt = &at
		}
		delivered := msg
		s.hub.DeliverToUser(recipientID, models.ServerEvent{Type: models.EventMessageNew, Message: &delivered})
		s.hub.DeliverToUser(recipientID, models.ServerEvent{Type: models.EventThreadPoke, Poke: &models.ThreadPoke{
			ThreadID: threadID,
			From:     senderID,
			At:       at,
		}})
		if msg.DeliveredAt != nil {
			s.hub.BroadcastToThread(threadID, models.ServerEvent{Type: models.EventMessageDelivered, Delivery: &models.DeliveryNote{
				ThreadID:    threadID,
				MessageID:   msg.ID,
				DeliveredAt: at,
			}})
		}
	}

	// Echo to the sender's other live connections; the sending connection
	// itself reconciles through the ack or the REST response.
	echo := msg
	s.hub.DeliverToUser(senderID, models.ServerEvent{Type: models.EventMessageNew, Message: &echo})

	if err := observability.PublishEvent(ctx, "messages.sent", observability.EventEnvelope{
		EventType: "message_events",
		EventName: "message_sent",
		Payload: map[string]interface{}{
			"thread_id":    threadID,
			"message_id":   msg.ID,
			"sender_id":    senderID,
			"recipient_id": recipientID,
		},
	}, nil); err != nil {
		log.Printf("publish message_sent failed: %v", err)
	}

	return msg, nil
}

// MarkThreadRead stamps every unread message addressed to the reader, zeroes
// the reader-side counter and notifies the thread room so sender clients can
// update receipt ticks without re-fetching.
func (s *Service) MarkThreadRead(ctx context.Context, userID, threadID int64) (models.BulkRead, error) {
	thread, err := s.ThreadForParticipant(ctx, threadID, userID)
	if err != nil {
		return models.BulkRead{}, err
	}

	at := time.Now().UTC()
	if _, err := s.messages.MarkThreadRead(ctx, threadID, userID, thread.SideOf(userID), at); err != nil {
		return models.BulkRead{}, err
	}

	read := models.BulkRead{ThreadID: threadID, ReaderID: userID, ReadAt: at}
	s.hub.BroadcastToThread(threadID, models.ServerEvent{Type: models.EventBulkRead, Read: &read})

	if err := observability.PublishEvent(ctx, "threads.read", observability.EventEnvelope{
		EventType: "message_events",
		EventName: "thread_read",
		Payload: map[string]interface{}{
			"thread_id": threadID,
			"reader_id": userID,
		},
	}, nil); err != nil {
		log.Printf("publish thread_read failed: %v", err)
	}

	return read, nil
}

func truncatePreview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit])
}
