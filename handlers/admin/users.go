package admin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// AdminHandler serves the staff console: users, course access, broadcasts and the audit trail
type AdminHandler struct {
	users         *services.UserService
	notifications *services.NotificationService
	db            *gorm.DB
	validator     *validation.Validator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *services.UserService, notifications *services.NotificationService, db *gorm.DB) *AdminHandler {
	return &AdminHandler{
		users:         users,
		notifications: notifications,
		db:            db,
		validator:     validation.NewValidator(),
	}
}

// AssignAccessRequest sets a user's access level on one course
type AssignAccessRequest struct {
	AccessLevel string `json:"access_level" validate:"required,max=50"`
}

func paramUint(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	return uint(id), err == nil
}

// ListUsers handles GET /api/v1/admin/users?page=1&limit=20&sort=email&sort_dir=desc
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	users, total, err := h.users.List(c.UserContext(), middleware.GetSession(c), database.ListOptions{
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("sort"),
		Desc:    c.Query("sort_dir") == "desc",
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// GetUser handles GET /api/v1/admin/users/:id
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	purchases, err := h.users.Purchases(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, fiber.Map{
		"user":              user,
		"purchased_courses": purchases,
	})
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req services.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	user, err := h.users.Create(c.UserContext(), middleware.GetSession(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, user)
}

// UpdateUser handles PUT /api/v1/admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req services.UpdateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	user, err := h.users.Update(c.UserContext(), middleware.GetSession(c), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := paramUint(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.users.Delete(c.UserContext(), middleware.GetSession(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "User deleted successfully", nil)
}

// AssignAccess handles PUT /api/v1/admin/users/:id/courses/:course_id
func (h *AdminHandler) AssignAccess(c *fiber.Ctx) error {
	userID, ok := paramUint(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}
	courseID, ok := paramUint(c, "course_id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req AssignAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	record, err := h.users.AssignAccess(c.UserContext(), middleware.GetSession(c), userID, courseID, req.AccessLevel)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, record)
}

// Broadcast handles POST /api/v1/admin/notifications
func (h *AdminHandler) Broadcast(c *fiber.Ctx) error {
	var req services.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	sent, err := h.notifications.Broadcast(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, fiber.Map{"sent": sent})
}
