package notification

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
)

// NotificationHandler handles notification-related API endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications handles GET /api/v1/notifications?unread_only=true&category=course
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit > 100 {
		limit = 100
	}

	notifications, total, err := h.notificationService.GetNotificationsByUser(c.UserContext(), services.ListNotificationsOptions{
		UserID:     userID,
		UnreadOnly: c.QueryBool("unread_only"),
		Category:   c.Query("category"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	unreadCount, err := h.notificationService.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"notifications": notifications,
		"total":         total,
		"unread_count":  unreadCount,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetUnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notificationService.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{"unread_count": count})
}

// MarkAsRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.MarkAsRead(c.UserContext(), uint(id), userID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Notification marked as read", nil)
}

// MarkAllAsRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	updated, err := h.notificationService.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "All notifications marked as read", fiber.Map{"updated": updated})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.DeleteNotification(c.UserContext(), uint(id), userID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Notification deleted", nil)
}
