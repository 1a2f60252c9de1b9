package middleware

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a staff mutation after the handler ran. Use after Required.
func AuditLog(db *gorm.DB, log *logger.Logger, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := GetSession(c)
		if session == nil {
			return c.Next()
		}

		// fiber reuses the request buffers once the handler returns
		var payload datatypes.JSON
		if body := c.Body(); len(body) > 0 && json.Valid(body) {
			payload = datatypes.JSON(append([]byte(nil), body...))
		}
		entry := model.AdminAuditLog{
			ActorID:     session.UserID,
			ActorRole:   session.Role,
			Action:      action,
			Resource:    resource,
			ResourceID:  c.Params("id"),
			Payload:     payload,
			IPAddress:   c.IP(),
			Description: c.Method() + " " + c.Path(),
		}

		err := c.Next()

		entry.Status = c.Response().StatusCode()
		if err := db.WithContext(c.UserContext()).Create(&entry).Error; err != nil {
			log.Warn("failed to write audit log", "action", action, "error", err)
		}
		return err
	}
}
