package course

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	course, err := h.courses.CreateCourse(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	course, err := h.courses.UpdateCourse(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.courses.DeleteCourse(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}

// ImportCourse handles POST /api/v1/courses/import.
// The body is a raw course document whose modules are keyed by module id.
func (h *CourseHandler) ImportCourse(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return response.BadRequest(c, "Request body is required")
	}

	course, err := h.courses.ImportDocument(c.UserContext(), body)
	if err != nil {
		return response.FromError(c, err)
	}
	h.log.Info("course imported", "course_id", course.ID, "modules", len(course.Modules))
	return response.Created(c, course)
}

// AddModule handles POST /api/v1/courses/:id/modules
func (h *CourseHandler) AddModule(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.ModuleInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	module, err := h.courses.AddModule(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, module)
}

// UpdateModule handles PUT /api/v1/courses/:id/modules/:key
func (h *CourseHandler) UpdateModule(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.ModuleUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	module, err := h.courses.UpdateModule(c.UserContext(), id, c.Params("key"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, module)
}

// AddLesson handles POST /api/v1/courses/:id/modules/:key/lessons
func (h *CourseHandler) AddLesson(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.LessonInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	lesson, err := h.courses.AddLesson(c.UserContext(), id, c.Params("key"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, lesson)
}

// RemoveLesson handles DELETE /api/v1/courses/:id/modules/:key/lessons/:index
func (h *CourseHandler) RemoveLesson(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	index, ok := lessonIndex(c)
	if !ok {
		return response.BadRequest(c, "Invalid lesson index")
	}

	if err := h.courses.RemoveLesson(c.UserContext(), id, c.Params("key"), index); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Lesson removed", nil)
}

// UploadHandout handles POST /api/v1/courses/:id/modules/:key/lessons/:index/handout
// as multipart/form-data with a "file" field
func (h *CourseHandler) UploadHandout(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	index, ok := lessonIndex(c)
	if !ok {
		return response.BadRequest(c, "Invalid lesson index")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}

	lesson, err := h.courses.UploadHandout(c.UserContext(), id, c.Params("key"), index, fileHeader.Filename, content)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, lesson)
}
