// Package collection serves the simple lookup tables (access levels, currencies, timers)
// straight off a generic repository.
package collection

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// Handler exposes CRUD over one repository. T is validated with its own struct tags.
type Handler[T any] struct {
	repo      *database.Repository[T]
	notifier  events.Notifier
	validator *validation.Validator
	log       *logger.Logger
	idOf      func(*T) uint
}

// NewHandler creates a collection handler. idOf reads the primary key of a stored record.
func NewHandler[T any](repo *database.Repository[T], notifier events.Notifier, log *logger.Logger, idOf func(*T) uint) *Handler[T] {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Handler[T]{
		repo:      repo,
		notifier:  notifier,
		validator: validation.NewValidator(),
		log:       log.With("collection", repo.Name()),
		idOf:      idOf,
	}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err == nil
}

// List handles GET /api/v1/<collection>?page=1&limit=20&sort=name&sort_dir=desc
func (h *Handler[T]) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	items, total, err := h.repo.List(c.UserContext(), database.ListOptions{
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("sort"),
		Desc:    c.Query("sort_dir") == "desc",
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, items, response.CalculatePagination(page, limit, total))
}

// Get handles GET /api/v1/<collection>/:id
func (h *Handler[T]) Get(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid ID")
	}

	item, err := h.repo.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, item)
}

// Create handles POST /api/v1/<collection>
func (h *Handler[T]) Create(c *fiber.Ctx) error {
	item := new(T)
	if err := c.BodyParser(item); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(item); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	if err := h.repo.Create(c.UserContext(), item); err != nil {
		return response.FromError(c, err)
	}
	h.notify(c.UserContext(), events.OpCreate, h.idOf(item))
	return response.Created(c, item)
}

// Update handles PUT /api/v1/<collection>/:id
func (h *Handler[T]) Update(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid ID")
	}

	item := new(T)
	if err := c.BodyParser(item); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(item); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	if err := h.repo.Update(c.UserContext(), id, item); err != nil {
		return response.FromError(c, err)
	}
	h.notify(c.UserContext(), events.OpUpdate, id)
	return response.Success(c, item)
}

// Delete handles DELETE /api/v1/<collection>/:id
func (h *Handler[T]) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid ID")
	}

	if err := h.repo.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	h.notify(c.UserContext(), events.OpDelete, id)
	return response.SuccessWithMessage(c, "Deleted successfully", nil)
}

func (h *Handler[T]) notify(ctx context.Context, op events.Op, id uint) {
	if err := h.notifier.Notify(ctx, events.NewChange(h.repo.Name(), op, id)); err != nil {
		h.log.Warn("failed to publish change", "id", id, "error", err)
	}
}
