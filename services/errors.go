package services

import "github.com/sahilchouksey/learnhub-api/utils/apperr"

var (
	ErrUnauthenticated      = apperr.New(apperr.KindAuthorization, "UNAUTHENTICATED", "authentication required")
	ErrCourseNotFound       = apperr.New(apperr.KindNotFound, "COURSE_NOT_FOUND", "course not found")
	ErrModuleNotFound       = apperr.New(apperr.KindNotFound, "MODULE_NOT_FOUND", "module not found")
	ErrLessonNotFound       = apperr.New(apperr.KindNotFound, "LESSON_NOT_FOUND", "lesson not found")
	ErrModuleLocked         = apperr.New(apperr.KindValidation, "MODULE_LOCKED", "module is locked")
	ErrDuplicateModule      = apperr.New(apperr.KindConflict, "DUPLICATE_MODULE", "module id already exists in this course")
	ErrUserNotFound         = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrDuplicateEmail       = apperr.New(apperr.KindConflict, "DUPLICATE_EMAIL", "a user with this email already exists")
	ErrInvalidCredentials   = apperr.New(apperr.KindAuthorization, "INVALID_CREDENTIALS", "invalid email or password")
	ErrProductNotFound      = apperr.New(apperr.KindNotFound, "PRODUCT_NOT_FOUND", "product not found")
	ErrProductUnavailable   = apperr.New(apperr.KindValidation, "PRODUCT_UNAVAILABLE", "product is not available")
	ErrAccessRevoked        = apperr.New(apperr.KindAuthorization, "ACCESS_REVOKED", "access to this course was revoked")
	ErrAlreadyOwned         = apperr.New(apperr.KindConflict, "ALREADY_OWNED", "you already own this access level")
	ErrCurrencyNotFound     = apperr.New(apperr.KindNotFound, "CURRENCY_NOT_FOUND", "currency not found")
	ErrCourseIncomplete     = apperr.New(apperr.KindValidation, "COURSE_INCOMPLETE", "course is not complete yet")
	ErrNotificationNotFound = apperr.New(apperr.KindNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
)
