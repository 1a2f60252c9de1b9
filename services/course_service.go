package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/services/catalog"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/services/progress"
	"github.com/sahilchouksey/learnhub-api/services/storage"
	"github.com/sahilchouksey/learnhub-api/services/unlock"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/pdfvalidation"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// OutlineCache stores normalized courses. utils/cache.RedisCache satisfies it.
type OutlineCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CourseService reads and authors courses. Module and lesson content is only
// returned after the access check passes.
type CourseService struct {
	db       *gorm.DB
	cache    OutlineCache
	cacheTTL time.Duration
	notifier events.Notifier
	store    storage.Store
	log      *logger.Logger
	now      func() time.Time
}

// CourseServiceOptions carries the optional collaborators of CourseService
type CourseServiceOptions struct {
	Cache    OutlineCache // nil disables caching
	CacheTTL time.Duration
	Notifier events.Notifier
	Store    storage.Store
	Now      func() time.Time
}

func NewCourseService(db *gorm.DB, log *logger.Logger, opts CourseServiceOptions) *CourseService {
	s := &CourseService{
		db:       db,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		notifier: opts.Notifier,
		store:    opts.Store,
		log:      log.With("service", "CourseService"),
		now:      opts.Now,
	}
	if s.notifier == nil {
		s.notifier = events.Nop{}
	}
	if s.store == nil {
		s.store = storage.Unconfigured{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	return s
}

// CourseInput is the create/update payload for course metadata
type CourseInput struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Category    string `json:"category" validate:"omitempty,max=100"`
	AccessLevel string `json:"access_level" validate:"omitempty,max=50"`
	Description string `json:"description" validate:"omitempty,max=10000"`
}

// ModuleInput is the payload for adding a module
type ModuleInput struct {
	Key        string     `json:"key" validate:"required,min=1,max=100"`
	Title      string     `json:"title" validate:"required,min=1,max=255"`
	Order      *int       `json:"order"`
	UnlockDate *time.Time `json:"unlock_date"`
}

// ModuleUpdate is the payload for editing a module. Nil fields are left alone
// except UnlockDate, which is cleared when ClearUnlock is set.
type ModuleUpdate struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Order       *int       `json:"order"`
	UnlockDate  *time.Time `json:"unlock_date"`
	ClearUnlock bool       `json:"clear_unlock"`
}

// LessonInput is the payload for appending a lesson to a module
type LessonInput struct {
	Title           string `json:"title" validate:"required,min=1,max=255"`
	VideoRef        string `json:"video_ref" validate:"omitempty,max=2048"`
	DurationMinutes *int   `json:"duration_minutes" validate:"omitempty,min=0"`
}

// Outline is everything a learner sees for one course
type Outline struct {
	Course     catalog.Course       `json:"course"`
	Locks      []unlock.ModuleState `json:"locks"`
	Progress   progress.Summary     `json:"progress"`
	Completed  progress.Completed   `json:"completed_lessons"`
	Next       *unlock.Position     `json:"next_lesson"`
	NextUnlock *time.Time           `json:"next_unlock,omitempty"`
	Access     string               `json:"access_level,omitempty"`
}

func outlineKey(id uint) string {
	return fmt.Sprintf("course:outline:%d", id)
}

// List returns course metadata, optionally filtered by category
func (s *CourseService) List(ctx context.Context, category string) ([]model.Course, error) {
	courses := make([]model.Course, 0)
	query := s.db.WithContext(ctx).Model(&model.Course{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("id").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// Get returns course metadata without modules
func (s *CourseService) Get(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := s.db.WithContext(ctx).First(&course, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func loadCourse(ctx context.Context, db *gorm.DB, id uint) (*model.Course, error) {
	var course model.Course
	err := db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&course, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	return &course, nil
}

// ToRaw converts stored rows into the normalizer's input, modules in insertion order
func ToRaw(course *model.Course) catalog.RawCourse {
	raw := catalog.RawCourse{
		ID:          strconv.FormatUint(uint64(course.ID), 10),
		Title:       course.Title,
		Category:    course.Category,
		AccessLevel: course.AccessLevel,
		Modules:     make([]catalog.RawModule, 0, len(course.Modules)),
	}
	for _, m := range course.Modules {
		rm := catalog.RawModule{
			ID:         m.Key,
			Title:      m.Title,
			Order:      m.Order,
			UnlockDate: m.UnlockDate,
			Lessons:    make([]catalog.RawLesson, 0, len(m.Lessons)),
		}
		for _, l := range m.Lessons {
			rm.Lessons = append(rm.Lessons, catalog.RawLesson{
				Title:    l.Title,
				VideoRef: l.VideoRef,
				Duration: l.DurationMinutes,
			})
		}
		raw.Modules = append(raw.Modules, rm)
	}
	return raw
}

// Catalog returns the normalized course, from cache when possible
func (s *CourseService) Catalog(ctx context.Context, id uint) (catalog.Course, error) {
	if s.cache != nil {
		var cached catalog.Course
		if err := s.cache.GetJSON(ctx, outlineKey(id), &cached); err == nil {
			return cached, nil
		}
	}

	stored, err := loadCourse(ctx, s.db, id)
	if err != nil {
		return catalog.Course{}, err
	}
	course := catalog.Normalize(ToRaw(stored))

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, outlineKey(id), course, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache course outline", "course_id", id, "error", err)
		}
	}
	return course, nil
}

func findPurchase(ctx context.Context, db *gorm.DB, userID, courseID uint) (*model.PurchasedCourse, error) {
	var record model.PurchasedCourse
	err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase record: %w", err)
	}
	return &record, nil
}

// Outline resolves access first and only then loads modules, lock states,
// progress and the lesson to resume
func (s *CourseService) Outline(ctx context.Context, session *auth.Session, courseID uint) (*Outline, error) {
	var record *model.PurchasedCourse
	if session != nil {
		var err error
		record, err = findPurchase(ctx, s.db, session.UserID, courseID)
		if err != nil {
			return nil, err
		}
	}
	if !access.CanViewCourse(session, record) {
		return nil, access.ErrNoCourseAccess
	}

	course, err := s.Catalog(ctx, courseID)
	if err != nil {
		return nil, err
	}

	completed := progress.Completed{}
	out := &Outline{Course: course}
	if record != nil {
		completed = progress.Completed(record.Completed())
		out.Access = record.AccessLevel
	}
	completed = progress.Reconcile(course, completed)

	now := s.now()
	out.Completed = completed
	out.Progress = progress.Calculate(course, completed)
	out.Locks = unlock.States(course.Modules, now)
	if next, ok := unlock.NextLesson(course.Modules, completed); ok {
		out.Next = &next
	}
	if at, ok := unlock.NextUnlock(course.Modules, now); ok {
		out.NextUnlock = &at
	}
	return out, nil
}

// StreamLocks checks access and then reports lock-state changes until ctx is done
func (s *CourseService) StreamLocks(ctx context.Context, session *auth.Session, courseID uint, interval time.Duration, fn func([]unlock.ModuleState)) error {
	outline, err := s.Outline(ctx, session, courseID)
	if err != nil {
		return err
	}
	unlock.Watch(ctx, interval, outline.Course.Modules, s.now, fn)
	return nil
}

// CreateCourse stores course metadata
func (s *CourseService) CreateCourse(ctx context.Context, in CourseInput) (*model.Course, error) {
	course := &model.Course{
		Title:       validation.SanitizeString(in.Title),
		Category:    validation.SanitizeString(in.Category),
		AccessLevel: in.AccessLevel,
		Description: validation.StripHTML(in.Description),
	}
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	s.changed(ctx, events.OpCreate, course.ID)
	return course, nil
}

// UpdateCourse replaces course metadata
func (s *CourseService) UpdateCourse(ctx context.Context, id uint, in CourseInput) (*model.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Title = validation.SanitizeString(in.Title)
	course.Category = validation.SanitizeString(in.Category)
	course.AccessLevel = in.AccessLevel
	course.Description = validation.StripHTML(in.Description)

	if err := s.db.WithContext(ctx).Save(course).Error; err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	s.changed(ctx, events.OpUpdate, id)
	return course, nil
}

// DeleteCourse removes a course with its modules and lessons
func (s *CourseService) DeleteCourse(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := loadCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, m := range course.Modules {
			if err := tx.Where("module_id = ?", m.ID).Delete(&model.Lesson{}).Error; err != nil {
				return fmt.Errorf("failed to delete lessons: %w", err)
			}
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseModule{}).Error; err != nil {
			return fmt.Errorf("failed to delete modules: %w", err)
		}
		if err := tx.Delete(&model.Course{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.changed(ctx, events.OpDelete, id)
	return nil
}

// ImportDocument creates a course from a raw document whose modules are a
// map keyed by module id
func (s *CourseService) ImportDocument(ctx context.Context, data []byte) (*model.Course, error) {
	raw, err := catalog.DecodeCourse(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "INVALID_DOCUMENT", "invalid course document", err)
	}
	if raw.Title == "" {
		return nil, apperr.Validation("course title is required")
	}

	course := &model.Course{
		Title:       raw.Title,
		Category:    raw.Category,
		AccessLevel: raw.AccessLevel,
		Modules:     make([]model.CourseModule, 0, len(raw.Modules)),
	}
	seen := map[string]bool{}
	for i, rm := range raw.Modules {
		if rm.ID == "" || seen[rm.ID] {
			return nil, apperr.Validation(fmt.Sprintf("module %d has a missing or duplicate id", i))
		}
		seen[rm.ID] = true

		m := model.CourseModule{
			Key:        rm.ID,
			Title:      rm.Title,
			Order:      rm.Order,
			UnlockDate: rm.UnlockDate,
			Position:   i,
			Lessons:    make([]model.Lesson, 0, len(rm.Lessons)),
		}
		for j, rl := range rm.Lessons {
			minutes := catalog.DurationMinutes(rl.Duration)
			m.Lessons = append(m.Lessons, model.Lesson{
				Position:        j,
				Title:           rl.Title,
				VideoRef:        rl.VideoRef,
				DurationMinutes: &minutes,
			})
		}
		course.Modules = append(course.Modules, m)
	}

	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, fmt.Errorf("failed to import course: %w", err)
	}
	s.changed(ctx, events.OpCreate, course.ID)
	return course, nil
}

// AddModule appends a module to a course
func (s *CourseService) AddModule(ctx context.Context, courseID uint, in ModuleInput) (*model.CourseModule, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(in.Key)
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.CourseModule{}).
		Where(`course_id = ? AND "key" = ?`, courseID, key).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check module id: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateModule
	}

	var position int
	if err := s.db.WithContext(ctx).Model(&model.CourseModule{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&position).Error; err != nil {
		return nil, fmt.Errorf("failed to compute module position: %w", err)
	}

	module := &model.CourseModule{
		CourseID:   courseID,
		Key:        key,
		Title:      validation.SanitizeString(in.Title),
		Order:      in.Order,
		UnlockDate: in.UnlockDate,
		Position:   position,
	}
	if err := s.db.WithContext(ctx).Create(module).Error; err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	s.changed(ctx, events.OpUpdate, courseID)
	return module, nil
}

func findModule(ctx context.Context, db *gorm.DB, courseID uint, key string) (*model.CourseModule, error) {
	var module model.CourseModule
	err := db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Where(`course_id = ? AND "key" = ?`, courseID, key).
		First(&module).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load module: %w", err)
	}
	return &module, nil
}

// UpdateModule edits a module. Moving the unlock date re-arms the unlock notification.
func (s *CourseService) UpdateModule(ctx context.Context, courseID uint, key string, in ModuleUpdate) (*model.CourseModule, error) {
	module, err := findModule(ctx, s.db, courseID, key)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		module.Title = validation.SanitizeString(*in.Title)
	}
	if in.Order != nil {
		module.Order = in.Order
	}
	switch {
	case in.ClearUnlock:
		module.UnlockDate = nil
		module.UnlockNotifiedAt = nil
	case in.UnlockDate != nil:
		module.UnlockDate = in.UnlockDate
		module.UnlockNotifiedAt = nil
	}

	if err := s.db.WithContext(ctx).Omit("Lessons").Save(module).Error; err != nil {
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	s.changed(ctx, events.OpUpdate, courseID)
	return module, nil
}

// AddLesson appends a lesson at the end of a module
func (s *CourseService) AddLesson(ctx context.Context, courseID uint, key string, in LessonInput) (*model.Lesson, error) {
	module, err := findModule(ctx, s.db, courseID, key)
	if err != nil {
		return nil, err
	}

	position := 0
	if n := len(module.Lessons); n > 0 {
		position = module.Lessons[n-1].Position + 1
	}
	lesson := &model.Lesson{
		ModuleID:        module.ID,
		Position:        position,
		Title:           validation.SanitizeString(in.Title),
		VideoRef:        in.VideoRef,
		DurationMinutes: in.DurationMinutes,
	}
	if err := s.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}
	s.changed(ctx, events.OpUpdate, courseID)
	return lesson, nil
}

// RemoveLesson deletes the lesson at index and rewrites every purchaser's
// completed set so later indices keep pointing at the same lessons.
// Progress is recomputed against the shortened course.
func (s *CourseService) RemoveLesson(ctx context.Context, courseID uint, key string, index int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, err := findModule(ctx, tx, courseID, key)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(module.Lessons) {
			return ErrLessonNotFound
		}

		if err := tx.Delete(&module.Lessons[index]).Error; err != nil {
			return fmt.Errorf("failed to delete lesson: %w", err)
		}
		remaining := append(module.Lessons[:index:index], module.Lessons[index+1:]...)
		for i, l := range remaining {
			if l.Position == i {
				continue
			}
			if err := tx.Model(&model.Lesson{}).Where("id = ?", l.ID).
				Update("position", i).Error; err != nil {
				return fmt.Errorf("failed to renumber lessons: %w", err)
			}
		}

		stored, err := loadCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		course := catalog.Normalize(ToRaw(stored))

		var records []model.PurchasedCourse
		if err := tx.Where("course_id = ?", courseID).Find(&records).Error; err != nil {
			return fmt.Errorf("failed to load purchase records: %w", err)
		}
		for i := range records {
			record := &records[i]
			shifted := progress.RemoveLesson(progress.Completed(record.Completed()), key, index)
			clean := progress.Reconcile(course, shifted)
			record.SetCompleted(model.CompletedLessons(clean))
			record.Progress = progress.Calculate(course, clean).Progress
			if err := tx.Model(record).
				Select("completed_lessons", "progress").
				Updates(record).Error; err != nil {
				return fmt.Errorf("failed to update purchase record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.changed(ctx, events.OpUpdate, courseID)
	return nil
}

// UploadHandout validates a PDF, stores it and links it to the lesson
func (s *CourseService) UploadHandout(ctx context.Context, courseID uint, key string, index int, filename string, content []byte) (*model.Lesson, error) {
	if _, err := pdfvalidation.Validate(filename, content, pdfvalidation.HandoutLimits); err != nil {
		return nil, err
	}

	module, err := findModule(ctx, s.db, courseID, key)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(module.Lessons) {
		return nil, ErrLessonNotFound
	}
	lesson := module.Lessons[index]

	url, err := s.store.Put(ctx, storage.Key(fmt.Sprintf("handouts/%d", courseID), filename), content, "application/pdf")
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&lesson).Update("handout_url", url).Error; err != nil {
		return nil, fmt.Errorf("failed to save handout: %w", err)
	}
	lesson.HandoutURL = url
	s.changed(ctx, events.OpUpdate, courseID)
	return &lesson, nil
}

// changed drops the cached outline and publishes the change
func (s *CourseService) changed(ctx context.Context, op events.Op, id uint) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, outlineKey(id)); err != nil {
			s.log.Warn("failed to invalidate course outline", "course_id", id, "error", err)
		}
	}
	if err := s.notifier.Notify(ctx, events.NewChange(events.Courses, op, id)); err != nil {
		s.log.Warn("failed to publish course change", "course_id", id, "error", err)
	}
}
