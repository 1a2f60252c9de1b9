package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/services/progress"
	"github.com/sahilchouksey/learnhub-api/services/unlock"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressService records lesson completion on purchase records
type ProgressService struct {
	db      *gorm.DB
	courses *CourseService
	log     *logger.Logger
	now     func() time.Time
}

func NewProgressService(db *gorm.DB, courses *CourseService, log *logger.Logger) *ProgressService {
	return &ProgressService{
		db:      db,
		courses: courses,
		log:     log.With("service", "ProgressService"),
		now:     time.Now,
	}
}

// ToggleResult is the recomputed state after a toggle
type ToggleResult struct {
	Completed progress.Completed `json:"completed_lessons"`
	Summary   progress.Summary   `json:"progress"`
	Done      bool               `json:"done"` // state of the toggled lesson
}

// Toggle flips one lesson of the caller's record and recomputes progress from
// the resulting set. Lessons in locked modules cannot be toggled.
func (s *ProgressService) Toggle(ctx context.Context, session *auth.Session, courseID uint, moduleKey string, index int) (*ToggleResult, error) {
	if session == nil {
		return nil, access.ErrNoCourseAccess
	}

	course, err := s.courses.Catalog(ctx, courseID)
	if err != nil {
		return nil, err
	}
	module, ok := course.Module(moduleKey)
	if !ok {
		return nil, ErrModuleNotFound
	}
	if index < 0 || index >= module.LessonCount() {
		return nil, ErrLessonNotFound
	}

	var result ToggleResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.PurchasedCourse
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND course_id = ?", session.UserID, courseID).
			Limit(1).Find(&record).Error
		if err != nil {
			return fmt.Errorf("failed to load purchase record: %w", err)
		}
		if record.UserID == 0 || !access.HasAccess(&record) {
			return access.ErrNoCourseAccess
		}
		if unlock.IsLocked(module, s.now()) {
			return ErrModuleLocked
		}

		toggled := progress.Toggle(progress.Completed(record.Completed()), moduleKey, index)
		clean := progress.Reconcile(course, toggled)
		summary := progress.Calculate(course, clean)

		record.SetCompleted(model.CompletedLessons(clean))
		record.Progress = summary.Progress
		if err := tx.Model(&record).
			Select("completed_lessons", "progress").
			Updates(&record).Error; err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}

		result = ToggleResult{Completed: clean, Summary: summary, Done: clean.IsDone(moduleKey, index)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("lesson toggled", "user_id", session.UserID, "course_id", courseID, "module", moduleKey, "index", index, "progress", result.Summary.Progress)
	return &result, nil
}

// Summary recomputes the caller's progress without changing it
func (s *ProgressService) Summary(ctx context.Context, session *auth.Session, courseID uint) (*progress.Summary, error) {
	if session == nil {
		return nil, access.ErrNoCourseAccess
	}
	record, err := findPurchase(ctx, s.db, session.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !access.HasAccess(record) {
		return nil, access.ErrNoCourseAccess
	}
	course, err := s.courses.Catalog(ctx, courseID)
	if err != nil {
		return nil, err
	}
	summary := progress.Calculate(course, progress.Completed(record.Completed()))
	return &summary, nil
}
