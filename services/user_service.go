package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/services/catalog"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/services/progress"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserService manages accounts and course entitlements
type UserService struct {
	db       *gorm.DB
	notifier events.Notifier
	log      *logger.Logger
	cost     int
}

func NewUserService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *UserService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &UserService{db: db, notifier: notifier, log: log.With("service", "UserService"), cost: auth.DefaultCost}
}

// WithHashCost overrides the bcrypt cost (tests use the minimum)
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// CreateUserInput is the payload of the privileged create-user operation
type CreateUserInput struct {
	Email    string     `json:"email" validate:"required,email,max=255"`
	Name     string     `json:"name" validate:"required,min=1,max=255"`
	Password string     `json:"password" validate:"required,min=8,max=72"`
	Role     model.Role `json:"role" validate:"required,role"`
}

// UpdateUserInput is the payload of the normal edit path
type UpdateUserInput struct {
	Name *string     `json:"name" validate:"omitempty,min=1,max=255"`
	Role *model.Role `json:"role" validate:"omitempty,role"`
}

// Authenticate checks credentials. Unknown emails and wrong passwords look the same.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List returns a page of users, staff only
func (s *UserService) List(ctx context.Context, session *auth.Session, opts database.ListOptions) ([]model.User, int64, error) {
	if err := access.RequireStaff(session); err != nil {
		return nil, 0, err
	}
	return database.NewRepository[model.User](s.db, events.Users, "email", "name", "role").List(ctx, opts)
}

// Create is a privileged operation: the caller's token must carry the admin claim
func (s *UserService) Create(ctx context.Context, session *auth.Session, in CreateUserInput) (*model.User, error) {
	if err := access.RequireAdminClaim(session); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("unknown role")
	}

	hash, err := auth.HashPasswordWithCost(in.Password, s.cost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperr.Validation(err.Error())
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        normalizeEmail(in.Email),
		Name:         validation.SanitizeString(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateEmail
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user created", "user_id", user.ID, "role", user.Role, "by", session.UserID)
	s.notify(ctx, events.OpCreate, user.ID)
	return user, nil
}

// Delete is a privileged operation: the caller's token must carry the admin claim
func (s *UserService) Delete(ctx context.Context, session *auth.Session, id uint) error {
	if err := access.RequireAdminClaim(session); err != nil {
		return err
	}
	if session.UserID == id {
		return apperr.Validation("you cannot delete your own account")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.User{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.PurchasedCourse{}).Error; err != nil {
			return fmt.Errorf("failed to delete purchase records: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("user deleted", "user_id", id, "by", session.UserID)
	s.notify(ctx, events.OpDelete, id)
	return nil
}

// Update is the normal edit path. Admin records cannot be changed here and
// only admins may grant the admin role. A role change invalidates the user's tokens.
func (s *UserService) Update(ctx context.Context, session *auth.Session, id uint, in UpdateUserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newRole := user.Role
	if in.Role != nil {
		newRole = *in.Role
	}
	if err := access.CanEditUser(session, user, newRole); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = validation.SanitizeString(*in.Name)
	}
	if newRole != user.Role {
		updates["role"] = newRole
		updates["token_version"] = gorm.Expr("token_version + 1")
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.notify(ctx, events.OpUpdate, id)
	return s.Get(ctx, id)
}

// AssignAccess sets the access level of a user's purchase record, creating it
// when missing. "denied" revokes access while keeping completed lessons.
func (s *UserService) AssignAccess(ctx context.Context, session *auth.Session, userID, courseID uint, level string) (*model.PurchasedCourse, error) {
	if err := access.RequireStaff(session); err != nil {
		return nil, err
	}
	level = strings.TrimSpace(level)
	if level == "" {
		return nil, apperr.Validation("access level is required")
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if level != model.AccessLevelDenied {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.AccessLevel{}).Where("name = ?", level).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check access level: %w", err)
		}
		if count == 0 {
			return nil, apperr.NotFound(fmt.Sprintf("access level %q not found", level))
		}
	}

	var record *model.PurchasedCourse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = grantAccess(ctx, tx, userID, courseID, level)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("course access assigned", "user_id", userID, "course_id", courseID, "level", level, "by", session.UserID)
	s.notify(ctx, events.OpUpdate, userID)
	return record, nil
}

// grantAccess upserts a purchase record inside tx and recomputes its progress
func grantAccess(ctx context.Context, tx *gorm.DB, userID, courseID uint, level string) (*model.PurchasedCourse, error) {
	stored, err := loadCourse(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	course := catalog.Normalize(ToRaw(stored))

	record := model.PurchasedCourse{UserID: userID, CourseID: courseID}
	if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to load purchase record: %w", err)
	}

	clean := progress.Reconcile(course, progress.Completed(record.Completed()))
	record.UserID = userID
	record.CourseID = courseID
	record.AccessLevel = level
	record.SetCompleted(model.CompletedLessons(clean))
	record.Progress = progress.Calculate(course, clean).Progress

	err = tx.Omit("User", "Course").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_level", "completed_lessons", "progress", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save purchase record: %w", err)
	}
	return &record, nil
}

// Purchases lists the caller's purchase records
func (s *UserService) Purchases(ctx context.Context, userID uint) ([]model.PurchasedCourse, error) {
	records := make([]model.PurchasedCourse, 0)
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("course_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return records, nil
}

func (s *UserService) notify(ctx context.Context, op events.Op, id uint) {
	if err := s.notifier.Notify(ctx, events.NewChange(events.Users, op, id)); err != nil {
		s.log.Warn("failed to publish user change", "user_id", id, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
