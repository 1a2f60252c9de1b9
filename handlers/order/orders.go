package order

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// OrderHandler handles checkout and order history
type OrderHandler struct {
	orders    *services.OrderService
	validator *validation.Validator
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		validator: validation.NewValidator(),
	}
}

// Checkout handles POST /api/v1/orders
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req services.CheckoutInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	order, err := h.orders.Checkout(c.UserContext(), middleware.GetSession(c), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, order)
}

// ListOrders handles GET /api/v1/orders?page=1&limit=20
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	orders, total, err := h.orders.List(c.UserContext(), middleware.GetSession(c), database.ListOptions{Page: page, Limit: limit})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, orders, response.CalculatePagination(page, limit, total))
}
