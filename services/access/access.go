// Package access is the single authority for course entitlement and role checks.
package access

import (
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
)

var (
	ErrStaffOnly      = apperr.New(apperr.KindAuthorization, "STAFF_ONLY", "only admins and moderators can do this")
	ErrAdminClaim     = apperr.New(apperr.KindAuthorization, "ADMIN_CLAIM_REQUIRED", "admin claim required")
	ErrAdminImmutable = apperr.New(apperr.KindAuthorization, "ADMIN_IMMUTABLE", "admin accounts cannot be edited")
	ErrRoleEscalation = apperr.New(apperr.KindAuthorization, "ROLE_ESCALATION", "only admins can grant the admin role")
	ErrNoCourseAccess = apperr.New(apperr.KindNotFound, "COURSE_ACCESS_DENIED", "course not found")
)

// HasAccess reports whether a purchase record grants access to its course.
// A missing record, an empty access level and the "denied" level all deny.
func HasAccess(record *model.PurchasedCourse) bool {
	if record == nil {
		return false
	}
	return record.AccessLevel != "" && record.AccessLevel != model.AccessLevelDenied
}

// IsStaff reports whether the role may mutate catalog and user data
func IsStaff(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleModerator
}

// CanViewCourse lets staff preview any course and everyone else only
// courses their purchase record grants
func CanViewCourse(s *auth.Session, record *model.PurchasedCourse) bool {
	if s != nil && IsStaff(s.Role) {
		return true
	}
	return HasAccess(record)
}

// RequireStaff returns ErrStaffOnly unless the session belongs to staff
func RequireStaff(s *auth.Session) error {
	if s == nil || !IsStaff(s.Role) {
		return ErrStaffOnly
	}
	return nil
}

// RequireAdminClaim guards the privileged user operations. Only the token's
// admin claim counts, not the stored role.
func RequireAdminClaim(s *auth.Session) error {
	if s == nil || !s.Admin {
		return ErrAdminClaim
	}
	return nil
}

// CanEditUser checks the normal edit path: staff only, admin records are
// immutable, and only admins may hand out the admin role.
func CanEditUser(s *auth.Session, target *model.User, newRole model.Role) error {
	if err := RequireStaff(s); err != nil {
		return err
	}
	if target.Role == model.RoleAdmin {
		return ErrAdminImmutable
	}
	if newRole == model.RoleAdmin && s.Role != model.RoleAdmin {
		return ErrRoleEscalation
	}
	return nil
}
