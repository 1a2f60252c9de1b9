package discount

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// CheckPromoRequest asks for the price of a product with a promo code
type CheckPromoRequest struct {
	Code      string `json:"code" validate:"required,max=100"`
	ProductID uint   `json:"product_id" validate:"required"`
}

// ListPromos handles GET /api/v1/promo-codes
func (h *DiscountHandler) ListPromos(c *fiber.Ctx) error {
	promos, err := h.promos.List(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, promos)
}

// GetPromo handles GET /api/v1/promo-codes/:id
func (h *DiscountHandler) GetPromo(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid promo code ID")
	}

	promo, err := h.promos.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, promo)
}

// CreatePromo handles POST /api/v1/promo-codes
func (h *DiscountHandler) CreatePromo(c *fiber.Ctx) error {
	var req discount.PromoInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	promo, err := h.promos.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, promo)
}

// UpdatePromo handles PUT /api/v1/promo-codes/:id
func (h *DiscountHandler) UpdatePromo(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid promo code ID")
	}

	var req discount.PromoInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	promo, err := h.promos.Update(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, promo)
}

// DeletePromo handles DELETE /api/v1/promo-codes/:id
func (h *DiscountHandler) DeletePromo(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid promo code ID")
	}

	if err := h.promos.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Promo code deleted successfully", nil)
}

// CheckPromo handles POST /api/v1/promo-codes/check.
// An expired code is marked unavailable here even before the sweep runs.
func (h *DiscountHandler) CheckPromo(c *fiber.Ctx) error {
	var req CheckPromoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	quote, err := h.promos.Apply(c.UserContext(), req.Code, req.ProductID, h.now())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, quote)
}
