package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/auth"
	"messaging-service/internal/chat"
)

// ThreadHandler exposes the messaging operations as the REST fallback path.
// Every operation performs the same writes as its live-channel counterpart
// and returns the same message representation, so a client can reconcile an
// optimistic local echo against whichever path answers first.
type ThreadHandler struct {
	svc *chat.Service
}

// NewThreadHandler builds a ThreadHandler.
func NewThreadHandler(svc *chat.Service) *ThreadHandler {
	return &ThreadHandler{svc: svc}
}

// ListThreads returns the caller's threads, most recent activity first.
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	threads, err := h.svc.ListThreads(c.Request.Context(), c.GetInt64("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load threads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// ListPartners returns the caller's valid counterparts so a conversation can
// be started without knowing a thread id in advance.
func (h *ThreadHandler) ListPartners(c *gin.Context) {
	ident := identityFromContext(c)
	partners, err := h.svc.ListPartners(c.Request.Context(), ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load partners"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": ident.Role, "partners": partners})
}

// EnsureThread finds or creates the unique thread for a
// (tenant, landlord, property) key.
func (h *ThreadHandler) EnsureThread(c *gin.Context) {
	var req struct {
		TenantID   int64  `json:"tenant_id" binding:"required"`
		LandlordID int64  `json:"landlord_id" binding:"required"`
		PropertyID *int64 `json:"property_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, err := h.svc.EnsureThread(c.Request.Context(), c.GetInt64("userID"), req.TenantID, req.LandlordID, req.PropertyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// GetThreadMessages returns one page of history ordered oldest to newest.
// Pagination is reverse-chronological via the "before" cursor.
func (h *ThreadHandler) GetThreadMessages(c *gin.Context) {
	threadID, ok := parseThreadID(c)
	if !ok {
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor"})
			return
		}
		before = &parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	msgs, err := h.svc.GetMessages(c.Request.Context(), c.GetInt64("userID"), threadID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostThreadMessage stores a message and fans it out, identically to the
// live channel's message:send.
func (h *ThreadHandler) PostThreadMessage(c *gin.Context) {
	threadID, ok := parseThreadID(c)
	if !ok {
		return
	}

	var req struct {
		Body        string   `json:"body"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), c.GetInt64("userID"), threadID, req.Body, req.Attachments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkThreadRead bulk-stamps everything addressed to the caller and resets
// their unread counter.
func (h *ThreadHandler) MarkThreadRead(c *gin.Context) {
	threadID, ok := parseThreadID(c)
	if !ok {
		return
	}

	read, err := h.svc.MarkThreadRead(c.Request.Context(), c.GetInt64("userID"), threadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "read_at": read.ReadAt})
}

func parseThreadID(c *gin.Context) (int64, bool) {
	threadID, err := strconv.ParseInt(c.Param("thread_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return 0, false
	}
	return threadID, true
}

func identityFromContext(c *gin.Context) auth.Identity {
	return auth.Identity{UserID: c.GetInt64("userID"), Role: c.GetString("userRole")}
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrThreadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNoRelationship):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrInvalidTenant), errors.Is(err, chat.ErrInvalidLandlord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary failure, retry"})
	}
}
