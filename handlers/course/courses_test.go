package course

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database/dbtest"
	"github.com/sahilchouksey/learnhub-api/handlers/handlertest"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const document = `{
	"title": "Intro to SQL",
	"category": "databases",
	"accessLevel": "vanilla",
	"modules": {
		"module_2": {
			"title": "Joins",
			"unlockDate": "2099-01-01T00:00:00Z",
			"lessons": [{"title": "Inner joins", "duration": 12}]
		},
		"module_1": {
			"title": "Select",
			"lessons": [
				{"title": "Columns", "duration": 8},
				{"title": "Filters", "duration": "9"}
			]
		}
	}
}`

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	student   string
	moderator string
	studentID uint
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.Nop()

	courses := services.NewCourseService(db, log, services.CourseServiceOptions{})
	certificates := services.NewCertificateService(db, courses, nil, "", log)
	h := NewCourseHandler(courses, services.NewProgressService(db, courses, log), certificates, log)

	m := handlertest.AuthMiddleware(db)
	app := fiber.New()
	app.Get("/courses/:id/outline", m.Required(), h.GetOutline)
	app.Get("/courses/:id/certificate", m.Required(), h.GetCertificate)
	app.Post("/courses/:id/modules/:key/lessons/:index/toggle", m.Required(), h.ToggleLesson)
	staff := app.Group("/courses", m.Required(), middleware.RequireStaff())
	staff.Post("/import", h.ImportCourse)
	staff.Post("/:id/modules", h.AddModule)
	staff.Post("/:id/modules/:key/lessons/:index/handout", h.UploadHandout)
	staff.Delete("/:id/modules/:key/lessons/:index", h.RemoveLesson)

	student := handlertest.User(t, db, "student@learnhub.test", model.RoleStudent)
	moderator := handlertest.User(t, db, "mod@learnhub.test", model.RoleModerator)
	return &testEnv{
		app:       app,
		db:        db,
		student:   handlertest.Token(t, student),
		moderator: handlertest.Token(t, moderator),
		studentID: student.ID,
	}
}

func (e *testEnv) importCourse(t *testing.T) uint {
	t.Helper()
	resp, env := handlertest.Do(t, e.app, "POST", "/courses/import", e.moderator, document)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var course model.Course
	handlertest.Decode(t, env, &course)
	return course.ID
}

func (e *testEnv) grant(t *testing.T, courseID uint, level string) {
	t.Helper()
	record := model.PurchasedCourse{UserID: e.studentID, CourseID: courseID, AccessLevel: level}
	record.SetCompleted(model.CompletedLessons{})
	require.NoError(t, e.db.Omit("User", "Course").Create(&record).Error)
}

func TestImportRequiresStaff(t *testing.T) {
	e := setup(t)

	resp, _ := handlertest.Do(t, e.app, "POST", "/courses/import", e.student, document)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := handlertest.Do(t, e.app, "POST", "/courses/import", e.moderator, `{"modules": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.False(t, env.Success)

	assert.NotZero(t, e.importCourse(t))
}

func TestOutlineHidesCourseWithoutAccess(t *testing.T) {
	e := setup(t)
	id := e.importCourse(t)
	path := fmt.Sprintf("/courses/%d/outline", id)

	resp, env := handlertest.Do(t, e.app, "GET", path, e.student, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, env.Data)

	e.grant(t, id, model.AccessLevelDenied)
	resp, _ = handlertest.Do(t, e.app, "GET", path, e.student, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOutlineAndToggle(t *testing.T) {
	e := setup(t)
	id := e.importCourse(t)
	e.grant(t, id, "vanilla")

	resp, env := handlertest.Do(t, e.app, "GET", fmt.Sprintf("/courses/%d/outline", id), e.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var outline services.Outline
	handlertest.Decode(t, env, &outline)
	require.Len(t, outline.Course.Modules, 2)
	assert.Equal(t, "module_1", outline.Course.Modules[0].ID)
	require.NotNil(t, outline.Next)
	assert.Equal(t, "module_1", outline.Next.ModuleID)
	assert.Equal(t, 0, outline.Next.LessonIndex)
	assert.True(t, outline.Locks[1].Locked)

	resp, env = handlertest.Do(t, e.app, "POST", fmt.Sprintf("/courses/%d/modules/module_1/lessons/0/toggle", id), e.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result services.ToggleResult
	handlertest.Decode(t, env, &result)
	assert.True(t, result.Done)
	assert.Equal(t, 33, result.Summary.Progress)

	resp, _ = handlertest.Do(t, e.app, "POST", fmt.Sprintf("/courses/%d/modules/module_2/lessons/0/toggle", id), e.student, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "locked module")

	resp, _ = handlertest.Do(t, e.app, "POST", fmt.Sprintf("/courses/%d/modules/module_1/lessons/x/toggle", id), e.student, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = handlertest.Do(t, e.app, "GET", fmt.Sprintf("/courses/%d/certificate", id), e.student, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "course incomplete")
}

func TestRemoveLessonReconcilesProgress(t *testing.T) {
	e := setup(t)
	id := e.importCourse(t)
	e.grant(t, id, "vanilla")

	for _, index := range []int{0, 1} {
		resp, _ := handlertest.Do(t, e.app, "POST", fmt.Sprintf("/courses/%d/modules/module_1/lessons/%d/toggle", id, index), e.student, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, _ := handlertest.Do(t, e.app, "DELETE", fmt.Sprintf("/courses/%d/modules/module_1/lessons/0", id), e.moderator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record model.PurchasedCourse
	require.NoError(t, e.db.Where("user_id = ? AND course_id = ?", e.studentID, id).First(&record).Error)
	assert.Equal(t, model.CompletedLessons{"module_1": {0}}, record.Completed())
	assert.Equal(t, 50, record.Progress)

	resp, _ = handlertest.Do(t, e.app, "DELETE", fmt.Sprintf("/courses/%d/modules/module_1/lessons/5", id), e.moderator, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadHandoutRequiresFile(t *testing.T) {
	e := setup(t)
	id := e.importCourse(t)

	resp, _ := handlertest.Do(t, e.app, "POST", fmt.Sprintf("/courses/%d/modules/module_1/lessons/0/handout", id), e.moderator, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
