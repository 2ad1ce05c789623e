package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// NotificationStore is the persisted inbox of each user.
type NotificationStore interface {
	ListByUser(ctx context.Context, f models.NotificationFilter) (models.Page[models.Notification], error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}

type NotificationHandler struct {
	store  NotificationStore
	logger *zap.Logger
}

func NewNotificationHandler(store NotificationStore, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, logger: logger}
}

func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	n.GET("", h.List)
	n.GET("/unread/count", h.UnreadCount)
	n.PUT("/mark-all-read", h.MarkAllRead)
	n.PUT("/:id/read", h.MarkRead)
	n.DELETE("/:id", h.Delete)
}

func (h *NotificationHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "notification-service"})
}

// List supports ?unreadOnly=true.
func (h *NotificationHandler) List(c *gin.Context) {
	page, err := h.store.ListByUser(c.Request.Context(), models.NotificationFilter{
		UserID:     middleware.CurrentActor(c).ID,
		UnreadOnly: c.Query("unreadOnly") == "true",
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	})
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.store.UnreadCount(c.Request.Context(), middleware.CurrentActor(c).ID)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.store.MarkRead(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c).ID)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.store.MarkAllRead(c.Request.Context(), middleware.CurrentActor(c).ID)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c).ID); err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
