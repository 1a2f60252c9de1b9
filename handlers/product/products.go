package product

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// ProductHandler handles product-related requests
type ProductHandler struct {
	products  *services.ProductService
	validator *validation.Validator
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{
		products:  products,
		validator: validation.NewValidator(),
	}
}

func productID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err == nil
}

// ListProducts handles GET /api/v1/products?currency=EUR.
// Staff also see unavailable products.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	availableOnly := true
	if s := middleware.GetSession(c); s != nil && access.IsStaff(s.Role) {
		availableOnly = c.Query("available") == "true"
	}

	products, err := h.products.List(c.UserContext(), c.Query("currency"), availableOnly)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, products)
}

// GetProduct handles GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return response.BadRequest(c, "Invalid product ID")
	}

	product, err := h.products.Get(c.UserContext(), id, c.Query("currency"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, product)
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req services.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	product, err := h.products.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, product)
}

// UpdateProduct handles PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return response.BadRequest(c, "Invalid product ID")
	}

	var req services.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	product, err := h.products.Update(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, product)
}

// DeleteProduct handles DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return response.BadRequest(c, "Invalid product ID")
	}

	if err := h.products.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Product deleted successfully", nil)
}
