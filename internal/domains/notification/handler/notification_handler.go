package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"rentflow-backend/internal/domains/notification/model"
	"rentflow-backend/internal/domains/notification/service"
	"rentflow-backend/internal/shared/middleware"
	"rentflow-backend/internal/shared/response"
	"rentflow-backend/internal/shared/utils"
)

// ================================================
// NOTIFICATION HANDLER
// ================================================

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications
// GET /api/v1/notifications?unread=true&limit=20&offset=0
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	req := model.ListRequest{
		UserID:     userID,
		UnreadOnly: c.Query("unread") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	req.Normalize()

	items, err := h.notificationService.List(c.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list notifications")
		response.InternalServerError(c, "Failed to list notifications")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Limit: req.Limit, Total: len(items)})
}

// MarkAsRead
// PATCH /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, model.ErrNotificationNotFound) {
			response.NotFound(c, "Notification not found")
			return
		}
		log.Error().Err(err).Int64("notification_id", id).Msg("Failed to mark notification read")
		response.InternalServerError(c, "Failed to update notification")
		return
	}

	response.Success(c, http.StatusOK, "Notification marked as read", nil)
}
