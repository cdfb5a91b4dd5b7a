package transport

import (
	"net/http"
	"strconv"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/service"
	"github.com/ds124wfegd/afritix/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	list, err := h.notificationService.List(c.Request.Context(), middleware.UserID(c), unreadOnly, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []*entity.Notification{}
	}

	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllAsRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.notificationService.GetPreferences(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	var req service.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	prefs, err := h.notificationService.UpdatePreferences(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func (h *NotificationHandler) RegisterPushToken(c *gin.Context) {
	var req service.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	token, err := h.notificationService.RegisterPushToken(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, token)
}

func (h *NotificationHandler) RemovePushToken(c *gin.Context) {
	if err := h.notificationService.RemovePushToken(c.Request.Context(), middleware.UserID(c), c.Param("token")); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Dispatch sends a notification right away on behalf of an admin.
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var req service.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	n, err := h.notificationService.Dispatch(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	if n == nil {
		// recipient opted out of this type
		c.JSON(http.StatusAccepted, gin.H{"delivered": false})
		return
	}

	c.JSON(http.StatusCreated, n)
}

func (h *NotificationHandler) Schedule(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	sn, err := h.notificationService.Schedule(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sn)
}

func (h *NotificationHandler) ListScheduled(c *gin.Context) {
	limit, offset := pagination(c)
	pendingOnly, _ := strconv.ParseBool(c.Query("pending"))

	list, err := h.notificationService.ListScheduled(c.Request.Context(), pendingOnly, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []*entity.ScheduledNotification{}
	}

	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) CancelScheduled(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.CancelScheduled(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
