package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/chat"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type ThreadRepositoryMock struct {
	mock.Mock
}

func (m *ThreadRepositoryMock) EnsureThread(ctx context.Context, tenantID, landlordID int64, propertyID *int64) (models.Thread, error) {
	args := m.Called(ctx, tenantID, landlordID, propertyID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) GetThread(ctx context.Context, threadID int64) (models.Thread, error) {
	args := m.Called(ctx, threadID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) ListThreadsFor(ctx context.Context, userID int64) ([]models.Thread, error) {
	args := m.Called(ctx, userID)
	var threads []models.Thread
	if val := args.Get(0); val != nil {
		threads = val.([]models.Thread)
	}
	return threads, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, threadID, senderID, recipientID int64, body string, attachments []string, preview, recipientSide string) (models.Message, error) {
	args := m.Called(ctx, threadID, senderID, recipientID, body, attachments, preview, recipientSide)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, threadID int64, before *time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, threadID, before, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkDelivered(ctx context.Context, messageID int64, at time.Time) error {
	args := m.Called(ctx, messageID, at)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkThreadRead(ctx context.Context, threadID, readerID int64, readerSide string, at time.Time) (int64, error) {
	args := m.Called(ctx, threadID, readerID, readerSide, at)
	return args.Get(0).(int64), args.Error(1)
}

type DirectoryRepositoryMock struct {
	mock.Mock
}

func (m *DirectoryRepositoryMock) UserRole(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *DirectoryRepositoryMock) IsLinked(ctx context.Context, tenantID, landlordID int64, propertyID *int64) (bool, error) {
	args := m.Called(ctx, tenantID, landlordID, propertyID)
	return args.Bool(0), args.Error(1)
}

func (m *DirectoryRepositoryMock) ListCounterparts(ctx context.Context, userID int64, role string) ([]models.Partner, error) {
	args := m.Called(ctx, userID, role)
	var partners []models.Partner
	if val := args.Get(0); val != nil {
		partners = val.([]models.Partner)
	}
	return partners, args.Error(1)
}

// BroadcasterMock records live fan-out without a real hub.
type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastToThread(threadID int64, event models.ServerEvent) {
	m.Called(threadID, event)
}

func (m *BroadcasterMock) DeliverToUser(userID int64, event models.ServerEvent) int {
	args := m.Called(userID, event)
	return args.Int(0)
}

func (m *BroadcasterMock) UserOnline(userID int64) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

var _ repositories.ThreadRepository = (*ThreadRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.DirectoryRepository = (*DirectoryRepositoryMock)(nil)
var _ chat.Broadcaster = (*BroadcasterMock)(nil)
