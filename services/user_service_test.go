package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(f *fixture, rec *recorder) *UserService {
	return NewUserService(f.db, rec, logger.Nop()).WithHashCost(4)
}

func TestCreateUserRequiresAdminClaim(t *testing.T) {
	tests := []struct {
		name    string
		session func(f *fixture) *auth.Session
		want    error
	}{
		{"anonymous", func(*fixture) *auth.Session { return nil }, access.ErrAdminClaim},
		{"student", func(f *fixture) *auth.Session { return sessionFor(f.student) }, access.ErrAdminClaim},
		{"moderator", func(f *fixture) *auth.Session { return sessionFor(f.moderator) }, access.ErrAdminClaim},
		{"admin role without claim", func(f *fixture) *auth.Session {
			s := sessionFor(f.admin)
			s.Admin = false
			return s
		}, access.ErrAdminClaim},
		{"admin claim", func(f *fixture) *auth.Session { return sessionFor(f.admin) }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := &recorder{}
			user, err := newUserService(f, rec).Create(context.Background(), tt.session(f), CreateUserInput{
				Email:    " New@LearnHub.test ",
				Name:     "New Person",
				Password: "correct-horse",
				Role:     model.RoleStudent,
			})
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.Empty(t, rec.changes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "new@learnhub.test", user.Email)
			assert.Equal(t, 1, rec.count("users"))
		})
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	_, err := newUserService(f, &recorder{}).Create(context.Background(), sessionFor(f.admin), CreateUserInput{
		Email: "STUDENT@learnhub.test", Name: "Dup", Password: "correct-horse", Role: model.RoleStudent,
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newUserService(f, &recorder{})
	_, err := svc.Create(ctx, sessionFor(f.admin), CreateUserInput{Email: "kim@learnhub.test", Name: "Kim", Password: "correct-horse", Role: model.RoleStudent})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "KIM@learnhub.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Kim", user.Name)

	_, err = svc.Authenticate(ctx, "kim@learnhub.test", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@learnhub.test", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserEditRules(t *testing.T) {
	admin, student := model.RoleAdmin, model.RoleStudent
	moderator := model.RoleModerator

	tests := []struct {
		name   string
		actor  func(f *fixture) model.User
		target func(f *fixture) model.User
		role   *model.Role
		want   error
	}{
		{"student cannot edit", func(f *fixture) model.User { return f.student }, func(f *fixture) model.User { return f.moderator }, nil, access.ErrStaffOnly},
		{"admin record is immutable", func(f *fixture) model.User { return f.admin }, func(f *fixture) model.User { return f.admin }, &student, access.ErrAdminImmutable},
		{"moderator cannot grant admin", func(f *fixture) model.User { return f.moderator }, func(f *fixture) model.User { return f.student }, &admin, access.ErrRoleEscalation},
		{"moderator promotes student", func(f *fixture) model.User { return f.moderator }, func(f *fixture) model.User { return f.student }, &moderator, nil},
		{"admin grants admin", func(f *fixture) model.User { return f.admin }, func(f *fixture) model.User { return f.student }, &admin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			target := tt.target(f)
			name := "Renamed"
			updated, err := newUserService(f, &recorder{}).Update(context.Background(), sessionFor(tt.actor(f)), target.ID, UpdateUserInput{Name: &name, Role: tt.role})
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Renamed", updated.Name)
			assert.Equal(t, *tt.role, updated.Role)
			assert.Equal(t, target.TokenVersion+1, updated.TokenVersion)
		})
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newUserService(f, &recorder{})
	f.purchase(t, f.student.ID, "vanilla", nil)

	err := svc.Delete(ctx, sessionFor(f.moderator), f.student.ID)
	assert.ErrorIs(t, err, access.ErrAdminClaim)

	err = svc.Delete(ctx, sessionFor(f.admin), f.admin.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, svc.Delete(ctx, sessionFor(f.admin), f.student.ID))
	_, err = svc.Get(ctx, f.student.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	var records int64
	require.NoError(t, f.db.Model(&model.PurchasedCourse{}).Count(&records).Error)
	assert.Zero(t, records)

	err = svc.Delete(ctx, sessionFor(f.admin), f.student.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAssignAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newUserService(f, &recorder{})
	f.purchase(t, f.student.ID, "vanilla", model.CompletedLessons{"module_1": {0}})

	record, err := svc.AssignAccess(ctx, sessionFor(f.moderator), f.student.ID, f.course.ID, model.AccessLevelDenied)
	require.NoError(t, err)
	assert.Equal(t, model.AccessLevelDenied, record.AccessLevel)
	stored := f.record(t, f.student.ID)
	assert.Equal(t, model.AccessLevelDenied, stored.AccessLevel)
	assert.Equal(t, model.CompletedLessons{"module_1": {0}}, stored.Completed())
	assert.Equal(t, 20, stored.Progress)

	_, err = svc.AssignAccess(ctx, sessionFor(f.moderator), f.moderator.ID, f.course.ID, "standard")
	require.NoError(t, err)
	assert.Equal(t, "standard", f.record(t, f.moderator.ID).AccessLevel)

	_, err = svc.AssignAccess(ctx, sessionFor(f.moderator), f.student.ID, f.course.ID, "platinum")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = svc.AssignAccess(ctx, sessionFor(f.student), f.student.ID, f.course.ID, "vanilla")
	assert.ErrorIs(t, err, access.ErrStaffOnly)
	_, err = svc.AssignAccess(ctx, sessionFor(f.admin), f.student.ID, 999, "vanilla")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestListUsersIsStaffOnly(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f, &recorder{})

	users, total, err := svc.List(context.Background(), sessionFor(f.moderator), database.ListOptions{OrderBy: "email"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "admin@learnhub.test", users[0].Email)

	_, _, err = svc.List(context.Background(), sessionFor(f.student), database.ListOptions{})
	assert.ErrorIs(t, err, access.ErrStaffOnly)
}
