package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"gorm.io/gorm"
)

// ListAuditLogs handles GET /api/v1/admin/audit-logs?action=&resource=&actor_id=
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.db.WithContext(c.UserContext()).Model(&model.AdminAuditLog{})
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if actor := c.Query("actor_id"); actor != "" {
		if actorID, err := strconv.ParseUint(actor, 10, 32); err == nil {
			query = query.Where("actor_id = ?", actorID)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	logs := make([]model.AdminAuditLog, 0)
	if err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}
	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}

// GetAuditLog handles GET /api/v1/admin/audit-logs/:id
func (h *AdminHandler) GetAuditLog(c *fiber.Ctx) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid log ID")
	}

	var entry model.AdminAuditLog
	if err := h.db.WithContext(c.UserContext()).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Audit log not found")
		}
		return response.InternalServerError(c, "Failed to fetch audit log")
	}
	return response.Success(c, entry)
}
