package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportKeepsInsertionOrderAndNormalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Len(t, f.course.Modules, 2)
	assert.Equal(t, "module_2", f.course.Modules[0].Key)
	assert.Equal(t, 0, f.course.Modules[0].Position)

	course, err := f.courses.Catalog(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, course.Modules, 2)
	assert.Equal(t, "module_1", course.Modules[0].ID)
	assert.Equal(t, "module_2", course.Modules[1].ID)
	assert.Equal(t, 30, course.Modules[0].TotalDurationMinutes)
	assert.Equal(t, 30, course.Modules[1].TotalDurationMinutes)
	assert.Equal(t, 5, course.TotalLessons)
	assert.Equal(t, 60, course.TotalDurationMinutes)
}

func TestImportRejectsBadDocuments(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing title", `{"modules": {}}`},
		{"bad unlock date", `{"title": "X", "modules": {"m1": {"unlockDate": "tomorrow"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.courses.ImportDocument(context.Background(), []byte(tt.doc))
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestOutlineWorkedExample(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, f.student.ID, "vanilla", model.CompletedLessons{"module_1": {0, 1}})

	out, err := f.courses.Outline(context.Background(), sessionFor(f.student), f.course.ID)
	require.NoError(t, err)

	m1, ok := out.Progress.Module("module_1")
	require.True(t, ok)
	assert.Equal(t, 2, m1.Completed)
	assert.Equal(t, 3, m1.Total)
	assert.Equal(t, 40, out.Progress.Progress)

	require.Len(t, out.Locks, 2)
	assert.False(t, out.Locks[0].Locked)
	assert.True(t, out.Locks[1].Locked)
	assert.Equal(t, int64(24*60*60), out.Locks[1].SecondsLeft)

	require.NotNil(t, out.Next)
	assert.Equal(t, "module_1", out.Next.ModuleID)
	assert.Equal(t, 2, out.Next.LessonIndex)
	require.NotNil(t, out.NextUnlock)
	assert.True(t, out.NextUnlock.Equal(testNow.Add(24*time.Hour)))
	assert.Equal(t, "vanilla", out.Access)
}

func TestOutlineChecksAccessFirst(t *testing.T) {
	tests := []struct {
		name    string
		level   *string
		as      func(f *fixture) model.User
		allowed bool
	}{
		{"no purchase record", nil, func(f *fixture) model.User { return f.student }, false},
		{"empty access level", strPtr(""), func(f *fixture) model.User { return f.student }, false},
		{"denied", strPtr(model.AccessLevelDenied), func(f *fixture) model.User { return f.student }, false},
		{"purchased", strPtr("vanilla"), func(f *fixture) model.User { return f.student }, true},
		{"moderator preview", nil, func(f *fixture) model.User { return f.moderator }, true},
		{"admin preview", nil, func(f *fixture) model.User { return f.admin }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			user := tt.as(f)
			if tt.level != nil {
				f.purchase(t, user.ID, *tt.level, nil)
			}

			out, err := f.courses.Outline(context.Background(), sessionFor(user), f.course.ID)
			if !tt.allowed {
				assert.ErrorIs(t, err, access.ErrNoCourseAccess)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out.Course.Modules, 2)
		})
	}
}

func TestOutlineWithoutSessionIsDenied(t *testing.T) {
	f := newFixture(t)
	_, err := f.courses.Outline(context.Background(), nil, f.course.ID)
	assert.ErrorIs(t, err, access.ErrNoCourseAccess)
}

func TestRemoveLessonReconcilesPurchasers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, f.student.ID, "vanilla", model.CompletedLessons{"module_1": {0, 2}, "module_2": {1}})
	f.purchase(t, f.moderator.ID, "vanilla", model.CompletedLessons{"module_1": {1}})

	require.NoError(t, f.courses.RemoveLesson(ctx, f.course.ID, "module_1", 1))

	student := f.record(t, f.student.ID)
	assert.Equal(t, model.CompletedLessons{"module_1": {0, 1}, "module_2": {1}}, student.Completed())
	assert.Equal(t, 75, student.Progress)

	mod := f.record(t, f.moderator.ID)
	assert.Equal(t, model.CompletedLessons{}, mod.Completed())
	assert.Equal(t, 0, mod.Progress)

	course, err := f.courses.Catalog(ctx, f.course.ID)
	require.NoError(t, err)
	m1, _ := course.Module("module_1")
	require.Len(t, m1.Lessons, 2)
	assert.Equal(t, "Syntax", m1.Lessons[0].Title)
	assert.Equal(t, "Functions", m1.Lessons[1].Title)

	err = f.courses.RemoveLesson(ctx, f.course.ID, "module_1", 5)
	assert.ErrorIs(t, err, ErrLessonNotFound)
	err = f.courses.RemoveLesson(ctx, f.course.ID, "module_9", 0)
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestModuleAuthoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.courses.AddModule(ctx, f.course.ID, ModuleInput{Key: "module_1", Title: "Again"})
	assert.ErrorIs(t, err, ErrDuplicateModule)

	unlockAt := testNow.Add(-time.Hour)
	module, err := f.courses.AddModule(ctx, f.course.ID, ModuleInput{Key: "appendix", Title: "Appendix", UnlockDate: &unlockAt})
	require.NoError(t, err)
	assert.Equal(t, 2, module.Position)

	minutes := 7
	lesson, err := f.courses.AddLesson(ctx, f.course.ID, "appendix", LessonInput{Title: "Further reading", DurationMinutes: &minutes})
	require.NoError(t, err)
	assert.Equal(t, 0, lesson.Position)

	course, err := f.courses.Catalog(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, course.Modules, 3)
	assert.Equal(t, "appendix", course.Modules[2].ID, "unnumbered ids sort last")

	order := 0
	_, err = f.courses.UpdateModule(ctx, f.course.ID, "appendix", ModuleUpdate{Order: &order})
	require.NoError(t, err)
	course, err = f.courses.Catalog(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, "appendix", course.Modules[0].ID, "explicit order wins")

	notified := testNow
	require.NoError(t, f.db.Model(&model.CourseModule{}).Where("id = ?", module.ID).Update("unlock_notified_at", &notified).Error)
	later := testNow.Add(48 * time.Hour)
	updated, err := f.courses.UpdateModule(ctx, f.course.ID, "appendix", ModuleUpdate{UnlockDate: &later})
	require.NoError(t, err)
	assert.Nil(t, updated.UnlockNotifiedAt)
}

func TestCatalogCacheIsInvalidatedOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newMemCache()
	rec := &recorder{}
	svc := NewCourseService(f.db, logger.Nop(), CourseServiceOptions{Cache: cache, Notifier: rec, Now: func() time.Time { return testNow }})

	_, err := svc.Catalog(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, cache.items, 1)

	_, err = svc.AddLesson(ctx, f.course.ID, "module_2", LessonInput{Title: "Select"})
	require.NoError(t, err)
	assert.Empty(t, cache.items)
	assert.Equal(t, 1, rec.count("courses"))

	course, err := svc.Catalog(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, course.TotalLessons)
}

func TestUploadHandoutRejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	store := newMemStore()
	svc := NewCourseService(f.db, logger.Nop(), CourseServiceOptions{Store: store})

	_, err := svc.UploadHandout(context.Background(), f.course.ID, "module_1", 0, "notes.pdf", []byte("plain text"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, store.puts)
}

func TestCourseMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.courses.CreateCourse(ctx, CourseInput{Title: " Ru\x00st ", Category: "programming", Description: "<p>Safe <script>x()</script>systems</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Rust", created.Title)
	assert.Equal(t, "Safe systems", created.Description)

	list, err := f.courses.List(ctx, "programming")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.courses.DeleteCourse(ctx, f.course.ID))
	_, err = f.courses.Get(ctx, f.course.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	var lessons int64
	require.NoError(t, f.db.Model(&model.Lesson{}).Count(&lessons).Error)
	assert.Zero(t, lessons)
}

func strPtr(s string) *string { return &s }
