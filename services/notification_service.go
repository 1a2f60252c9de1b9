package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService handles user notifications
type NotificationService struct {
	db       *gorm.DB
	notifier events.Notifier
	log      *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *NotificationService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &NotificationService{db: db, notifier: notifier, log: log.With("service", "NotificationService")}
}

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	UserID   uint
	Type     model.NotificationType
	Category model.NotificationCategory
	Title    string
	Message  string
	Metadata *model.NotificationMetadata
}

// BroadcastRequest sends one notification to many users. No user ids means everyone.
type BroadcastRequest struct {
	UserIDs  []uint                     `json:"user_ids"`
	Type     model.NotificationType     `json:"type" validate:"omitempty,oneof=info success warning"`
	Category model.NotificationCategory `json:"category" validate:"omitempty,oneof=course promo system"`
	Title    string                     `json:"title" validate:"required,min=1,max=255"`
	Message  string                     `json:"message" validate:"omitempty,max=5000"`
}

// ListNotificationsOptions represents options for listing notifications
type ListNotificationsOptions struct {
	UserID     uint
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

func buildNotification(req CreateNotificationRequest) (*model.UserNotification, error) {
	notification := &model.UserNotification{
		UserID:   req.UserID,
		Type:     req.Type,
		Category: req.Category,
		Title:    req.Title,
		Message:  req.Message,
	}
	if notification.Type == "" {
		notification.Type = model.NotificationTypeInfo
	}
	if notification.Category == "" {
		notification.Category = model.NotificationCategorySystem
	}

	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(metadataJSON)
	}
	return notification, nil
}

// Broadcast creates the same notification for every listed user, or for all users
func (s *NotificationService) Broadcast(ctx context.Context, req BroadcastRequest) (int, error) {
	userIDs := req.UserIDs
	if len(userIDs) == 0 {
		if err := s.db.WithContext(ctx).Model(&model.User{}).Pluck("id", &userIDs).Error; err != nil {
			return 0, fmt.Errorf("failed to list users: %w", err)
		}
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	created, err := s.createMany(ctx, s.db, userIDs, CreateNotificationRequest{
		Type:     req.Type,
		Category: req.Category,
		Title:    strings.TrimSpace(req.Title),
		Message:  req.Message,
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("notification broadcast", "recipients", created, "title", req.Title)
	return created, nil
}

func (s *NotificationService) createMany(ctx context.Context, db *gorm.DB, userIDs []uint, req CreateNotificationRequest) (int, error) {
	rows := make([]model.UserNotification, 0, len(userIDs))
	for _, id := range userIDs {
		req.UserID = id
		n, err := buildNotification(req)
		if err != nil {
			return 0, err
		}
		rows = append(rows, *n)
	}
	if err := db.WithContext(ctx).Omit("User").CreateInBatches(&rows, 200).Error; err != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}
	for _, n := range rows {
		s.notify(ctx, events.OpCreate, n.ID)
	}
	return len(rows), nil
}

// GetNotificationsByUser retrieves notifications for a user
func (s *NotificationService) GetNotificationsByUser(ctx context.Context, opts ListNotificationsOptions) ([]model.UserNotification, int64, error) {
	notifications := make([]model.UserNotification, 0)
	var total int64

	query := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ?", opts.UserID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50)
	}

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}

	s.notify(ctx, events.OpUpdate, notificationID)
	return nil
}

// MarkAllAsRead marks all notifications for a user as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteNotification deletes a notification
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}

	s.notify(ctx, events.OpDelete, notificationID)
	return nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64

	err := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// NotifyUnlockedModules tells every user with access that a module has opened.
// Each module is announced once; the stamp is reset when its unlock date moves.
func (s *NotificationService) NotifyUnlockedModules(ctx context.Context, now time.Time) (int, error) {
	var modules []model.CourseModule
	liveCourses := s.db.WithContext(ctx).Model(&model.Course{}).Select("id")
	err := s.db.WithContext(ctx).
		Where("unlock_date IS NOT NULL AND unlock_date <= ? AND unlock_notified_at IS NULL", now).
		Where("course_id IN (?)", liveCourses).
		Order("unlock_date, id").
		Find(&modules).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find unlocked modules: %w", err)
	}

	sent := 0
	for _, m := range modules {
		var course model.Course
		if err := s.db.WithContext(ctx).Select("id", "title").First(&course, m.CourseID).Error; err != nil {
			return sent, fmt.Errorf("failed to load course %d: %w", m.CourseID, err)
		}

		var userIDs []uint
		err := s.db.WithContext(ctx).Model(&model.PurchasedCourse{}).
			Where("course_id = ? AND access_level <> '' AND access_level <> ?", m.CourseID, model.AccessLevelDenied).
			Pluck("user_id", &userIDs).Error
		if err != nil {
			return sent, fmt.Errorf("failed to list course users: %w", err)
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if len(userIDs) > 0 {
				n, err := s.createMany(ctx, tx, userIDs, CreateNotificationRequest{
					Type:     model.NotificationTypeInfo,
					Category: model.NotificationCategoryCourse,
					Title:    fmt.Sprintf("%s is now available", m.Title),
					Message:  fmt.Sprintf("A new module of %s has unlocked.", course.Title),
					Metadata: &model.NotificationMetadata{CourseID: m.CourseID, ModuleKey: m.Key},
				})
				if err != nil {
					return err
				}
				sent += n
			}
			stamp := now
			return tx.Model(&model.CourseModule{}).Where("id = ?", m.ID).Update("unlock_notified_at", &stamp).Error
		})
		if err != nil {
			return sent, apperr.Backend("failed to announce unlocked module", err)
		}
		s.log.Info("module unlock announced", "course_id", m.CourseID, "module", m.Key, "recipients", len(userIDs))
	}
	return sent, nil
}

// CleanupOldNotifications removes read notifications older than the specified duration
func (s *NotificationService) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.log.Info("cleaned up old notifications", "count", result.RowsAffected)
	}

	return result.RowsAffected, nil
}

func (s *NotificationService) notify(ctx context.Context, op events.Op, id uint) {
	if err := s.notifier.Notify(ctx, events.NewChange(events.Notifications, op, id)); err != nil {
		s.log.Warn("failed to publish notification change", "notification_id", id, "error", err)
	}
}
