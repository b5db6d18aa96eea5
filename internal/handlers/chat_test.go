package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/chat"
	"messaging-service/internal/handlers"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

const (
	tenantID   = int64(11)
	landlordID = int64(22)
	threadID   = int64(7)
)

type fixture struct {
	router    *gin.Engine
	threads   *mocks.ThreadRepositoryMock
	messages  *mocks.MessageRepositoryMock
	directory *mocks.DirectoryRepositoryMock
	hub       *mocks.BroadcasterMock
}

func newFixture(userID int64, role string) fixture {
	gin.SetMode(gin.TestMode)

	threads := new(mocks.ThreadRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	directory := new(mocks.DirectoryRepositoryMock)
	hub := new(mocks.BroadcasterMock)
	svc := chat.NewService(threads, messages, directory, hub)
	handler := handlers.NewThreadHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	})
	router.GET("/threads", handler.ListThreads)
	router.POST("/threads/ensure", handler.EnsureThread)
	router.GET("/partners", handler.ListPartners)
	router.GET("/threads/:thread_id/messages", handler.GetThreadMessages)
	router.POST("/threads/:thread_id/messages", handler.PostThreadMessage)
	router.POST("/threads/:thread_id/read", handler.MarkThreadRead)

	return fixture{router: router, threads: threads, messages: messages, directory: directory, hub: hub}
}

func testThread() models.Thread {
	return models.Thread{ID: threadID, TenantID: tenantID, LandlordID: landlordID, CreatedAt: time.Now().UTC()}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListThreads(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.threads.On("ListThreadsFor", mock.Anything, tenantID).Return([]models.Thread{testThread()}, nil)

	rec := doJSON(f.router, http.MethodGet, "/threads", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Threads []models.Thread `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Threads, 1)
	assert.Equal(t, threadID, resp.Threads[0].ID)
}

func TestListPartners(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.directory.On("ListCounterparts", mock.Anything, tenantID, models.RoleTenant).
		Return([]models.Partner{{Kind: models.RoleLandlord}}, nil)

	rec := doJSON(f.router, http.MethodGet, "/partners", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Role     string           `json:"role"`
		Partners []models.Partner `json:"partners"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.RoleTenant, resp.Role)
	assert.Len(t, resp.Partners, 1)
}

func TestEnsureThreadValidatesBody(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)

	rec := doJSON(f.router, http.MethodPost, "/threads/ensure", gin.H{"tenant_id": tenantID})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnsureThreadMapsRelationshipFailure(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.directory.On("UserRole", mock.Anything, tenantID).Return(models.RoleTenant, nil)
	f.directory.On("UserRole", mock.Anything, landlordID).Return(models.RoleLandlord, nil)
	f.directory.On("IsLinked", mock.Anything, tenantID, landlordID, (*int64)(nil)).Return(false, nil)

	rec := doJSON(f.router, http.MethodPost, "/threads/ensure",
		gin.H{"tenant_id": tenantID, "landlord_id": landlordID})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEnsureThreadReturnsThread(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.directory.On("UserRole", mock.Anything, tenantID).Return(models.RoleTenant, nil)
	f.directory.On("UserRole", mock.Anything, landlordID).Return(models.RoleLandlord, nil)
	f.directory.On("IsLinked", mock.Anything, tenantID, landlordID, (*int64)(nil)).Return(true, nil)
	f.threads.On("EnsureThread", mock.Anything, tenantID, landlordID, (*int64)(nil)).Return(testThread(), nil)

	rec := doJSON(f.router, http.MethodPost, "/threads/ensure",
		gin.H{"tenant_id": tenantID, "landlord_id": landlordID})

	require.Equal(t, http.StatusOK, rec.Code)
	var thread models.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	assert.Equal(t, threadID, thread.ID)
}

func TestGetThreadMessagesRejectsBadCursor(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)

	rec := doJSON(f.router, http.MethodGet, "/threads/7/messages?before=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThreadMessagesRejectsBadThreadID(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)

	rec := doJSON(f.router, http.MethodGet, "/threads/abc/messages", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThreadMessagesReturnsPage(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.threads.On("GetThread", mock.Anything, threadID).Return(testThread(), nil)
	f.messages.On("ListMessages", mock.Anything, threadID, (*time.Time)(nil), 30).
		Return([]models.Message{{ID: 301, ThreadID: threadID, Body: "hello"}}, nil)

	rec := doJSON(f.router, http.MethodGet, "/threads/7/messages", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, int64(301), resp.Messages[0].ID)
}

func TestGetThreadMessagesHidesForeignThread(t *testing.T) {
	f := newFixture(int64(99), models.RoleTenant)
	f.threads.On("GetThread", mock.Anything, threadID).Return(testThread(), nil)

	rec := doJSON(f.router, http.MethodGet, "/threads/7/messages", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostThreadMessageCreated(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.threads.On("GetThread", mock.Anything, threadID).Return(testThread(), nil)
	f.directory.On("IsLinked", mock.Anything, tenantID, landlordID, (*int64)(nil)).Return(true, nil)
	f.messages.On("CreateMessage", mock.Anything, threadID, tenantID, landlordID, "hello",
		[]string(nil), "hello", models.RoleLandlord).Return(models.Message{ID: 301, Body: "hello"}, nil)
	f.hub.On("BroadcastToThread", threadID, mock.Anything).Return()
	f.hub.On("UserOnline", landlordID).Return(false)
	f.hub.On("DeliverToUser", tenantID, mock.Anything).Return(0)

	rec := doJSON(f.router, http.MethodPost, "/threads/7/messages", gin.H{"body": "hello"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, int64(301), msg.ID)
	assert.Nil(t, msg.DeliveredAt)
}

func TestPostThreadMessageRejectsEmpty(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)

	rec := doJSON(f.router, http.MethodPost, "/threads/7/messages", gin.H{"body": "  "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkThreadReadUnknownThread(t *testing.T) {
	f := newFixture(tenantID, models.RoleTenant)
	f.threads.On("GetThread", mock.Anything, threadID).Return(nil, repositories.ErrThreadNotFound)

	rec := doJSON(f.router, http.MethodPost, "/threads/7/read", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkThreadReadOK(t *testing.T) {
	f := newFixture(landlordID, models.RoleLandlord)
	f.threads.On("GetThread", mock.Anything, threadID).Return(testThread(), nil)
	f.messages.On("MarkThreadRead", mock.Anything, threadID, landlordID, models.RoleLandlord, mock.Anything).
		Return(int64(2), nil)
	f.hub.On("BroadcastToThread", threadID, mock.Anything).Return()

	rec := doJSON(f.router, http.MethodPost, "/threads/7/read", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK     bool      `json:"ok"`
		ReadAt time.Time `json:"read_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.False(t, resp.ReadAt.IsZero())
}
