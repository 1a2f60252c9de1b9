package discount

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// DiscountHandler handles discount presets and promo codes
type DiscountHandler struct {
	presets   *discount.PresetService
	promos    *discount.PromoService
	validator *validation.Validator
	log       *logger.Logger
	now       func() time.Time
}

// NewDiscountHandler creates a new discount handler
func NewDiscountHandler(presets *discount.PresetService, promos *discount.PromoService, log *logger.Logger) *DiscountHandler {
	return &DiscountHandler{
		presets:   presets,
		promos:    promos,
		validator: validation.NewValidator(),
		log:       log.With("handler", "discount"),
		now:       time.Now,
	}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err == nil
}

// ListPresets handles GET /api/v1/discount-presets
func (h *DiscountHandler) ListPresets(c *fiber.Ctx) error {
	presets, err := h.presets.List(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, presets)
}

// GetPreset handles GET /api/v1/discount-presets/:id
func (h *DiscountHandler) GetPreset(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid preset ID")
	}

	preset, err := h.presets.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, preset)
}

// CreatePreset handles POST /api/v1/discount-presets
func (h *DiscountHandler) CreatePreset(c *fiber.Ctx) error {
	var req discount.PresetInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	preset, err := h.presets.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, preset)
}

// UpdatePreset handles PUT /api/v1/discount-presets/:id
func (h *DiscountHandler) UpdatePreset(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid preset ID")
	}

	var req discount.PresetInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	preset, err := h.presets.Update(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, preset)
}

// DeletePreset handles DELETE /api/v1/discount-presets/:id
func (h *DiscountHandler) DeletePreset(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid preset ID")
	}

	if err := h.presets.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Preset deleted successfully", nil)
}

// ActivatePreset handles POST /api/v1/discount-presets/:id/activate
func (h *DiscountHandler) ActivatePreset(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid preset ID")
	}

	preset, err := h.presets.Activate(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, preset)
}

// DeactivatePreset handles POST /api/v1/discount-presets/:id/deactivate
func (h *DiscountHandler) DeactivatePreset(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid preset ID")
	}

	preset, err := h.presets.Deactivate(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, preset)
}
