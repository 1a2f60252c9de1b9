package course

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// DefaultStreamInterval is how often the lock stream re-evaluates unlock dates
const DefaultStreamInterval = 10 * time.Second

// CourseHandler handles course-related requests
type CourseHandler struct {
	courses        *services.CourseService
	progress       *services.ProgressService
	certificates   *services.CertificateService
	validator      *validation.Validator
	log            *logger.Logger
	streamInterval time.Duration
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courses *services.CourseService, progress *services.ProgressService, certificates *services.CertificateService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{
		courses:        courses,
		progress:       progress,
		certificates:   certificates,
		validator:      validation.NewValidator(),
		log:            log.With("handler", "course"),
		streamInterval: DefaultStreamInterval,
	}
}

func courseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err == nil
}

func lessonIndex(c *fiber.Ctx) (int, bool) {
	index, err := strconv.Atoi(c.Params("index"))
	return index, err == nil
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.courses.List(c.UserContext(), c.Query("category"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, courses)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.courses.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// GetOutline handles GET /api/v1/courses/:id/outline
func (h *CourseHandler) GetOutline(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	outline, err := h.courses.Outline(c.UserContext(), middleware.GetSession(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, outline)
}

// ToggleLesson handles POST /api/v1/courses/:id/modules/:key/lessons/:index/toggle
func (h *CourseHandler) ToggleLesson(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	index, ok := lessonIndex(c)
	if !ok {
		return response.BadRequest(c, "Invalid lesson index")
	}

	result, err := h.progress.Toggle(c.UserContext(), middleware.GetSession(c), id, c.Params("key"), index)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}

// GetProgress handles GET /api/v1/courses/:id/progress
func (h *CourseHandler) GetProgress(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	summary, err := h.progress.Summary(c.UserContext(), middleware.GetSession(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, summary)
}

// GetCertificate handles GET /api/v1/courses/:id/certificate
func (h *CourseHandler) GetCertificate(c *fiber.Ctx) error {
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	cert, err := h.certificates.Issue(c.UserContext(), middleware.GetSession(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, cert)
}
